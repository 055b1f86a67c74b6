package table

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

// RedisStore keeps each table as a hash at <prefix>:cwa:<fingerprint>, so
// several runs on different machines can share one build.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects with opts. prefix defaults to "dpwordle".
func NewRedisStore(opts *redis.Options, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "dpwordle"
	}
	return &RedisStore{rdb: redis.NewClient(opts), prefix: prefix}
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) String() string {
	return "redis:" + s.rdb.Options().Addr + "/" + s.prefix
}

func (s *RedisStore) key(fingerprint string) string {
	return s.prefix + ":cwa:" + fingerprint
}

func (s *RedisStore) Load(ctx context.Context, v *words.Vocabulary) (*Table, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(v.Fingerprint())).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNotCached
	}
	guesses, err := strconv.Atoi(vals["guesses"])
	if err != nil {
		return nil, fmt.Errorf("bad guesses field %q: %w", vals["guesses"], err)
	}
	answers, err := strconv.Atoi(vals["answers"])
	if err != nil {
		return nil, fmt.Errorf("bad answers field %q: %w", vals["answers"], err)
	}
	return decodeBlob([]byte(vals["codes"]), guesses, answers, v)
}

func (s *RedisStore) Save(ctx context.Context, t *Table) error {
	if t.fingerprint == "" {
		return fmt.Errorf("clue table has no vocabulary fingerprint")
	}
	err := s.rdb.HSet(ctx, s.key(t.fingerprint),
		"guesses", t.guesses,
		"answers", t.answers,
		"codes", encodeBlob(t),
	).Err()
	if err != nil {
		return fmt.Errorf("redis HSET: %w", err)
	}
	return nil
}
