package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"

	"github.com/benjaminjkraft/dp-wordle/internal/config"
	"github.com/benjaminjkraft/dp-wordle/internal/engine"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
	"github.com/benjaminjkraft/dp-wordle/internal/table"
	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

// openStore returns the configured clue-table cache, or nil for the "none"
// backend. The returned close func is never nil.
func openStore(ctx context.Context, c config.CacheConfig, v *words.Vocabulary) (table.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.Backend {
	case config.CacheFile:
		path := c.Path
		if filepath.Ext(path) != ".txt" {
			path = table.DefaultPath(path, v)
		}
		return &table.FileStore{Path: path}, noop, nil
	case config.CacheSQLite:
		s, err := table.OpenSQL(c.Path)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.CacheRedis:
		s := table.NewRedisStore(&redis.Options{Addr: c.Addr, DB: c.DB}, c.Prefix)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, noop, fmt.Errorf("connect to redis at %s: %w", c.Addr, err)
		}
		return s, s.Close, nil
	case config.CacheNone:
		return nil, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown cache backend %q", c.Backend)
}

// buildBar returns a table.Progress option that starts a progress bar on
// progress the first time rows are reported, so nothing is drawn when the
// table comes from the cache.
func buildBar(w io.Writer, total int) (table.BuildOption, func()) {
	var (
		once sync.Once
		mu   sync.Mutex
		bar  *progressbar.ProgressBar
	)
	opt := table.Progress(func(rows int) {
		once.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("clue table"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		})
		mu.Lock()
		defer mu.Unlock()
		bar.Add(rows)
	})
	finish := func() {
		mu.Lock()
		defer mu.Unlock()
		if bar != nil {
			bar.Finish()
		}
	}
	return opt, finish
}

// loadEngine reads the word lists, fetches or builds the clue table, and
// wraps both in an engine.
func loadEngine(ctx context.Context, c *config.Config, progress io.Writer) (*engine.Engine, error) {
	v, err := words.Load(c.Words.Guesses, c.Words.Answers)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openStore(ctx, c.Cache, v)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	opts := []table.BuildOption{table.Workers(c.Workers)}
	var finish func()
	if progress != nil {
		var bar table.BuildOption
		bar, finish = buildBar(progress, v.NumGuesses())
		opts = append(opts, bar)
	}
	t, err := table.LoadOrBuild(ctx, store, v, logging.New("table"), opts...)
	if finish != nil {
		finish()
	}
	if err != nil {
		return nil, err
	}
	return engine.New(v, t, engine.Workers(c.Workers), engine.WithLogger(logging.New("engine")))
}

// strategyConfig finds the configured strategy called name.
func strategyConfig(c *config.Config, name string) (config.StrategyConfig, error) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, nil
		}
	}
	if name == "" && len(c.Strategies) > 0 {
		return c.Strategies[0], nil
	}
	names := make([]string, len(c.Strategies))
	for i, s := range c.Strategies {
		names[i] = s.Name
	}
	return config.StrategyConfig{}, fmt.Errorf("no strategy named %q (configured: %v)", name, names)
}
