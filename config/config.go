// Package config loads the engine configuration from defaults, an
// optional YAML file and environment variable overrides, in that
// precedence order.
package config

import (
	"fmt"
	"time"
)

// Config is the complete engine configuration.
type Config struct {
	Memory   MemoryConfig   `yaml:"memory" env:"MEMORY"`
	Pattern  PatternConfig  `yaml:"pattern" env:"PATTERN"`
	Sleep    SleepConfig    `yaml:"sleep" env:"SLEEP"`
	Provider ProviderConfig `yaml:"provider" env:"PROVIDER"`
	Store    StoreConfig    `yaml:"store" env:"STORE"`
	Log      LogConfig      `yaml:"log" env:"LOG"`
	Metrics  MetricsConfig  `yaml:"metrics" env:"METRICS"`
}

// MemoryConfig configures the working-memory buffer.
type MemoryConfig struct {
	// Capacity bounds the buffer size.
	Capacity int `yaml:"capacity" env:"CAPACITY"`
	// Strategy is "recency" or "weight".
	Strategy string `yaml:"strategy" env:"STRATEGY"`
	// SampleFloor excludes facts below this weight from replay sampling.
	SampleFloor float64 `yaml:"sample_floor" env:"SAMPLE_FLOOR"`
	// SensoryWindow is the per-source sliding window size.
	SensoryWindow int `yaml:"sensory_window" env:"SENSORY_WINDOW"`
}

// PatternConfig configures the long-term pattern engine.
type PatternConfig struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
	SimilarFactLimit    int           `yaml:"similar_fact_limit" env:"SIMILAR_FACT_LIMIT"`
	HalfLife            time.Duration `yaml:"half_life" env:"HALF_LIFE"`
	MinRetention        float64       `yaml:"min_retention" env:"MIN_RETENTION"`
	CreationThreshold   float64       `yaml:"creation_threshold" env:"CREATION_THRESHOLD"`
	WeightIncrement     float64       `yaml:"weight_increment" env:"WEIGHT_INCREMENT"`
}

// SleepConfig configures the periodic consolidation cycle.
type SleepConfig struct {
	Interval         time.Duration `yaml:"interval" env:"INTERVAL"`
	FactCount        int           `yaml:"fact_count" env:"FACT_COUNT"`
	ReplayRate       float64       `yaml:"replay_rate" env:"REPLAY_RATE"`
	DecayRate        float64       `yaml:"decay_rate" env:"DECAY_RATE"`
	PruneProbability float64       `yaml:"prune_probability" env:"PRUNE_PROBABILITY"`
	// Retention and MinWeight drive old-data cleanup during prune cycles.
	Retention time.Duration `yaml:"retention" env:"RETENTION"`
	MinWeight float64       `yaml:"min_weight" env:"MIN_WEIGHT"`
}

// ProviderConfig configures the external LLM collaborators.
type ProviderConfig struct {
	// Dimension is the embedding dimensionality.
	Dimension int `yaml:"dimension" env:"DIMENSION"`
	// Timeout bounds each provider call.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// RatePerSecond limits provider calls; zero disables the limiter.
	RatePerSecond float64 `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	// Burst is the limiter's burst allowance.
	Burst int `yaml:"burst" env:"BURST"`
	// ContextWindow is how many recent facts feed extraction context.
	ContextWindow int `yaml:"context_window" env:"CONTEXT_WINDOW"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	// Kind is "memory", "redis" or "sqlite".
	Kind   string       `yaml:"kind" env:"KIND"`
	Redis  RedisConfig  `yaml:"redis" env:"REDIS"`
	SQLite SQLiteConfig `yaml:"sqlite" env:"SQLITE"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Port    int    `yaml:"port" env:"PORT"`
	Path    string `yaml:"path" env:"PATH"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			Capacity:      50,
			Strategy:      "recency",
			SampleFloor:   0,
			SensoryWindow: 10,
		},
		Pattern: PatternConfig{
			SimilarityThreshold: 0.8,
			SimilarFactLimit:    10,
			HalfLife:            30 * 24 * time.Hour,
			MinRetention:        0.2,
			CreationThreshold:   0.5,
			WeightIncrement:     0.1,
		},
		Sleep: SleepConfig{
			Interval:         24 * time.Hour,
			FactCount:        10,
			ReplayRate:       0.1,
			DecayRate:        0.1,
			PruneProbability: 0.2,
			Retention:        90 * 24 * time.Hour,
			MinWeight:        0.2,
		},
		Provider: ProviderConfig{
			Dimension:     1536,
			Timeout:       30 * time.Second,
			RatePerSecond: 10,
			Burst:         5,
			ContextWindow: 5,
		},
		Store: StoreConfig{
			Kind: "memory",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "cogmem:",
			},
			SQLite: SQLiteConfig{
				Path: "cogmem.db",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Memory.Capacity <= 0 {
		return fmt.Errorf("config: memory capacity must be positive, got %d", c.Memory.Capacity)
	}
	switch c.Memory.Strategy {
	case "recency", "weight":
	default:
		return fmt.Errorf("config: unknown eviction strategy %q", c.Memory.Strategy)
	}
	if c.Pattern.SimilarityThreshold <= 0 || c.Pattern.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity threshold must be in (0, 1], got %v", c.Pattern.SimilarityThreshold)
	}
	if c.Pattern.HalfLife <= 0 {
		return fmt.Errorf("config: pattern half-life must be positive")
	}
	if c.Sleep.Interval <= 0 {
		return fmt.Errorf("config: sleep interval must be positive")
	}
	if c.Sleep.ReplayRate <= 0 || c.Sleep.ReplayRate > 1 {
		return fmt.Errorf("config: replay rate must be in (0, 1], got %v", c.Sleep.ReplayRate)
	}
	if c.Sleep.PruneProbability < 0 || c.Sleep.PruneProbability > 1 {
		return fmt.Errorf("config: prune probability must be in [0, 1], got %v", c.Sleep.PruneProbability)
	}
	if c.Provider.Dimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be positive, got %d", c.Provider.Dimension)
	}
	switch c.Store.Kind {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("config: redis store requires an address")
	}
	if c.Store.Kind == "sqlite" && c.Store.SQLite.Path == "" {
		return fmt.Errorf("config: sqlite store requires a path")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	return nil
}
