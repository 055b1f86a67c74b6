// Package config loads dpwordle run configuration from YAML, with a .env
// file and DPWORDLE_* environment variables layered on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Strategy kinds.
const (
	KindExpectedWin    = "expected_win"
	KindMaxEntropy     = "max_entropy"
	KindBayesian       = "bayesian"
	KindOracleBayesian = "oracle_bayesian"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is a dpwordle.yml file.
type Config struct {
	Words WordsConfig `yaml:"words"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`

	Trials  int           `yaml:"trials"`
	Timeout time.Duration `yaml:"timeout"`
	Workers int           `yaml:"workers"`          // 0 = GOMAXPROCS
	Seed    int64         `yaml:"seed"`             // 0 = time-based
	Output  string        `yaml:"output,omitempty"` // CSV results file

	Strategies []StrategyConfig `yaml:"strategies"`
}

type WordsConfig struct {
	Guesses string `yaml:"guesses"`
	Answers string `yaml:"answers"`
}

// CacheConfig says where the clue table is kept between runs.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"` // file: the file or its directory; sqlite: database file
	Addr    string `yaml:"addr,omitempty"` // redis
	DB      int    `yaml:"db,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StrategyConfig is one strategy under test. Which fields apply depends on
// Kind.
type StrategyConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Turns is the total number of moves, the last being the final guess.
	// For the Bayesian kinds it is a cap.
	Turns    int       `yaml:"turns,omitempty"`
	Epsilon  float64   `yaml:"epsilon,omitempty"`
	Epsilons []float64 `yaml:"epsilons,omitempty"`

	// expected_win
	FirstGuess  string  `yaml:"first_guess,omitempty"`
	TopFraction float64 `yaml:"top_fraction,omitempty"`

	// max_entropy
	MonteCarlo int  `yaml:"monte_carlo,omitempty"`
	HardMode   bool `yaml:"hard_mode,omitempty"`

	// bayesian, oracle_bayesian
	Certainty float64 `yaml:"certainty,omitempty"`
	Mode      string  `yaml:"mode,omitempty"` // greedy or random
	Jitter    bool    `yaml:"jitter,omitempty"`

	Seed int64 `yaml:"seed,omitempty"`
}

// Default is the configuration used for anything a file leaves out.
func Default() *Config {
	return &Config{
		Words: WordsConfig{Guesses: "valid.txt", Answers: "answers.txt"},
		Cache: CacheConfig{Backend: CacheFile, Path: "cache", Prefix: "dpwordle"},
		Log:   LogConfig{Level: "info", Format: "text"},

		Trials:  10001,
		Timeout: 10 * time.Second,
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then DPWORDLE_* overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DPWORDLE_GUESSES":       &c.Words.Guesses,
		"DPWORDLE_ANSWERS":       &c.Words.Answers,
		"DPWORDLE_CACHE_BACKEND": &c.Cache.Backend,
		"DPWORDLE_CACHE_PATH":    &c.Cache.Path,
		"DPWORDLE_REDIS_ADDR":    &c.Cache.Addr,
		"DPWORDLE_LOG_LEVEL":     &c.Log.Level,
		"DPWORDLE_LOG_FORMAT":    &c.Log.Format,
		"DPWORDLE_OUTPUT":        &c.Output,
	}
	for k, p := range strs {
		if v, ok := lookup(k); ok {
			*p = v
		}
	}
	ints := map[string]*int{
		"DPWORDLE_TRIALS":   &c.Trials,
		"DPWORDLE_WORKERS":  &c.Workers,
		"DPWORDLE_REDIS_DB": &c.Cache.DB,
	}
	for k, p := range ints {
		if v, ok := lookup(k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*p = n
		}
	}
	if v, ok := lookup("DPWORDLE_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DPWORDLE_SEED: %w", err)
		}
		c.Seed = n
	}
	if v, ok := lookup("DPWORDLE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DPWORDLE_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the configuration and fills in per-strategy defaults.
func (c *Config) Validate() error {
	if c.Words.Guesses == "" || c.Words.Answers == "" {
		return fmt.Errorf("words.guesses and words.answers are required")
	}
	switch c.Cache.Backend {
	case CacheFile, CacheSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the %s backend", c.Cache.Backend)
		}
	case CacheRedis:
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache.addr is required for the redis backend")
		}
	case CacheNone:
	default:
		return fmt.Errorf("invalid cache.backend: %q (must be 'file', 'sqlite', 'redis', or 'none')", c.Cache.Backend)
	}
	if c.Trials <= 0 {
		return fmt.Errorf("trials must be > 0, got %d", c.Trials)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0 (0 = all CPUs), got %d", c.Workers)
	}

	names := map[string]bool{}
	for i := range c.Strategies {
		s := &c.Strategies[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("%s-%d", s.Kind, i+1)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate strategy name %q", s.Name)
		}
		names[s.Name] = true
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func positive(name, field string, x float64) error {
	if !(x > 0) {
		return fmt.Errorf("strategy %q: %s must be > 0, got %v", name, field, x)
	}
	return nil
}

// Validate checks one strategy and fills in its defaults.
func (s *StrategyConfig) Validate() error {
	switch s.Kind {
	case KindExpectedWin:
		if s.Turns == 0 {
			s.Turns = 4
		}
		if len(s.Epsilons) == 0 && s.Epsilon > 0 {
			s.Epsilons = []float64{s.Epsilon}
		}
		if len(s.Epsilons) == 0 {
			return fmt.Errorf("strategy %q: epsilons is required", s.Name)
		}
		for _, e := range s.Epsilons {
			if err := positive(s.Name, "each epsilon", e); err != nil {
				return err
			}
		}
		if s.FirstGuess == "" {
			s.FirstGuess = "salet"
		}
		if s.TopFraction == 0 {
			s.TopFraction = 0.02
		}
		if s.TopFraction < 0 || s.TopFraction > 1 {
			return fmt.Errorf("strategy %q: top_fraction must be in (0, 1], got %v", s.Name, s.TopFraction)
		}
	case KindMaxEntropy:
		if s.Turns == 0 {
			s.Turns = 4
		}
		if err := positive(s.Name, "epsilon", s.Epsilon); err != nil {
			return err
		}
		if s.MonteCarlo < 0 {
			return fmt.Errorf("strategy %q: monte_carlo must be >= 0, got %d", s.Name, s.MonteCarlo)
		}
	case KindBayesian, KindOracleBayesian:
		if s.Turns == 0 {
			s.Turns = 20
		}
		if err := positive(s.Name, "epsilon", s.Epsilon); err != nil {
			return err
		}
		if s.Certainty <= 0 || s.Certainty >= 1 {
			return fmt.Errorf("strategy %q: certainty must be in (0, 1), got %v", s.Name, s.Certainty)
		}
		if s.Mode == "" {
			s.Mode = "greedy"
		}
		if s.Mode != "greedy" && s.Mode != "random" {
			return fmt.Errorf("strategy %q: invalid mode: %s (must be 'greedy' or 'random')", s.Name, s.Mode)
		}
	default:
		return fmt.Errorf("strategy %q: invalid kind: %q (must be '%s', '%s', '%s', or '%s')",
			s.Name, s.Kind, KindExpectedWin, KindMaxEntropy, KindBayesian, KindOracleBayesian)
	}
	if s.Turns < 2 {
		return fmt.Errorf("strategy %q: turns must be >= 2, got %d", s.Name, s.Turns)
	}
	return nil
}
