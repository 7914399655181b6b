// Package simulate drives a running engagement service with synthetic
// multi-platform traffic and checks the resulting leaderboard.
package simulate

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultEvents      = 10_000
	DefaultUsers       = 500
	DefaultBatchSize   = 100
	DefaultWorkers     = 8
	DefaultRate        = 5_000
	DefaultTopN        = 50
	DefaultTimeout     = 10 * time.Second
	DefaultSettle      = 30 * time.Second
	DefaultSpread      = time.Hour
	DefaultDuplicates  = 0.1
	DefaultBonusChance = 0.3
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Events         int           // Number of distinct events to generate
	Users          int           // Size of the user pool
	DuplicateRatio float64       // Share of extra redeliveries, 0..1
	BonusChance    float64       // Chance a twitter event carries a bonus
	Spread         time.Duration // occurred_at is spread over [now-Spread, now]
	Rate           float64       // Events per second, 0 means unpaced
	BatchSize      int           // Events per POST /events/batch
	Workers        int           // Concurrent submitters
	TopN           int           // Leaderboard entries to verify
	Timeout        time.Duration // HTTP request timeout
	Settle         time.Duration // How long to wait for the queue to drain
	Seed           uint64        // Generator seed, 0 picks one from the clock
	CheckTotals    bool          // Compare leaderboard totals with locally expected ones
	OutputFile     string        // Optional JSONL dump of the submitted events
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Events:         DefaultEvents,
		Users:          DefaultUsers,
		DuplicateRatio: DefaultDuplicates,
		BonusChance:    DefaultBonusChance,
		Spread:         DefaultSpread,
		Rate:           DefaultRate,
		BatchSize:      DefaultBatchSize,
		Workers:        DefaultWorkers,
		TopN:           DefaultTopN,
		Timeout:        DefaultTimeout,
		Settle:         DefaultSettle,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Events < 1:
		return fmt.Errorf("%w: events must be positive", ErrInvalidConfig)
	case c.Users < 1:
		return fmt.Errorf("%w: users must be positive", ErrInvalidConfig)
	case c.DuplicateRatio < 0 || c.DuplicateRatio > 1:
		return fmt.Errorf("%w: duplicate ratio must be within [0, 1]", ErrInvalidConfig)
	case c.BonusChance < 0 || c.BonusChance > 1:
		return fmt.Errorf("%w: bonus chance must be within [0, 1]", ErrInvalidConfig)
	case c.Rate < 0:
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrInvalidConfig)
	}
	return nil
}

// Report summarizes a simulation run.
type Report struct {
	Generated  int           `json:"generated"`
	Duplicates int           `json:"duplicates"`
	Accepted   int           `json:"accepted"`
	Rejected   int           `json:"rejected"`
	Retries    int           `json:"retries"`
	Users      int           `json:"users"`
	Verified   int           `json:"verified"`
	Duration   time.Duration `json:"duration"`
}
