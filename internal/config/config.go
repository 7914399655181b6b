// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/kira/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount configures the number of shards in the score store.
	ShardCount int `koanf:"shard_count"`

	// DedupeWindow bounds how far behind a platform's newest event an id is
	// still remembered. Zero keeps ids forever.
	DedupeWindow time.Duration `koanf:"dedupe_window"`

	// DedupeStripes sets the lock striping of the dedup filter.
	DedupeStripes int `koanf:"dedupe_stripes"`

	// DedupeSweepInterval is how often expired ids are evicted and the
	// watermark checkpoint is written.
	DedupeSweepInterval time.Duration `koanf:"dedupe_sweep_interval"`

	// CheckpointPath is the SQLite file holding dedup watermarks. Empty disables it.
	CheckpointPath string `koanf:"checkpoint_path"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxBatchSize caps POST /events/batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// ReplayFiles lists JSONL event files replayed at startup.
	ReplayFiles []string `koanf:"replay_files"`

	// Weights overrides base weights as platform -> action -> points.
	Weights map[string]map[string]int `koanf:"weights"`

	// PlatformDefaults overrides the fallback weight per platform.
	PlatformDefaults map[string]int `koanf:"platform_defaults"`

	// MinClaimPoints is the lowest total score allowed to claim an airdrop.
	MinClaimPoints int64 `koanf:"min_claim_points"`

	// TokenDecimals is the precision used to convert airdrop amounts to base units.
	TokenDecimals int32 `koanf:"token_decimals"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":8080",
		EventQueueSize:      100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		ShardCount:          32,
		DedupeWindow:        72 * time.Hour,
		DedupeStripes:       64,
		DedupeSweepInterval: time.Minute,
		MaxLeaderboardLimit: 1000,
		MaxBatchSize:        1000,
		MinClaimPoints:      10,
		TokenDecimals:       9,
		ShutdownTimeout:     30 * time.Second,
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr", "must not be empty")
	case c.EventQueueSize < 1:
		return invalid("queue_size", "must be positive")
	case c.WorkerCount < 1:
		return invalid("worker_count", "must be positive")
	case c.ShardCount < 1:
		return invalid("shard_count", "must be positive")
	case c.DedupeWindow < 0:
		return invalid("dedupe_window", "must not be negative")
	case c.DedupeStripes < 1:
		return invalid("dedupe_stripes", "must be positive")
	case c.DedupeSweepInterval <= 0:
		return invalid("dedupe_sweep_interval", "must be positive")
	case c.MaxLeaderboardLimit < 1:
		return invalid("max_leaderboard_limit", "must be positive")
	case c.MaxBatchSize < 1:
		return invalid("max_batch_size", "must be positive")
	case c.MinClaimPoints < 0:
		return invalid("min_claim_points", "must not be negative")
	case c.TokenDecimals < 0 || c.TokenDecimals > 18:
		return invalid("token_decimals", "must be between 0 and 18")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("log_format", fmt.Sprintf("unknown format %q", c.LogFormat))
	}

	for p, actions := range c.Weights {
		if !model.Platform(p).Valid() {
			return invalid("weights."+p, "unknown platform")
		}
		for a, w := range actions {
			if !model.Action(a).Valid() {
				return invalid("weights."+p+"."+a, "unknown action")
			}
			if w < 0 {
				return invalid("weights."+p+"."+a, "must not be negative")
			}
		}
	}
	for p, w := range c.PlatformDefaults {
		if !model.Platform(p).Valid() {
			return invalid("platform_defaults."+p, "unknown platform")
		}
		if w < 0 {
			return invalid("platform_defaults."+p, "must not be negative")
		}
	}
	return nil
}

func invalid(key, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, key, msg)
}
