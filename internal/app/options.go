package service

import (
	"time"

	"github.com/okian/kira/internal/adapters/checkpoint"
	"github.com/okian/kira/internal/adapters/disburse"
	"github.com/okian/kira/internal/adapters/producer"
	"github.com/okian/kira/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the async ingest queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithShardCount sets the number of score store shards.
func WithShardCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithDedupeWindow sets the maximum tolerated out-of-order delay.
// Zero keeps every event id for the life of the process.
func WithDedupeWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.dedupeWindow = d
		}
	}
}

// WithDedupeStripes sets the number of dedup lock stripes.
func WithDedupeStripes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeStripes = n
		}
	}
}

// WithSweepInterval sets how often expired dedup entries are evicted and
// watermarks checkpointed.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithWeights overrides base weights and per-platform fallback weights.
func WithWeights(overrides map[string]map[string]int, platformDefaults map[string]int) Option {
	return func(s *Service) {
		s.weightOverrides = overrides
		s.platformDefaults = platformDefaults
	}
}

// WithCheckpoint persists dedup watermarks across restarts.
func WithCheckpoint(store checkpoint.Store) Option {
	return func(s *Service) {
		s.checkpoint = store
	}
}

// WithDisburser sets the transfer capability used by Claim.
func WithDisburser(d disburse.Disburser) Option {
	return func(s *Service) {
		s.disburser = d
	}
}

// WithProducers adds event sources started with the service.
func WithProducers(producers ...producer.Producer) Option {
	return func(s *Service) {
		s.producers = append(s.producers, producers...)
	}
}

// WithMinClaimPoints sets the score a user needs before claiming.
func WithMinClaimPoints(points int64) Option {
	return func(s *Service) {
		if points >= 0 {
			s.minClaimPoints = points
		}
	}
}

// WithTokenDecimals sets the token's base-unit precision.
func WithTokenDecimals(decimals int32) Option {
	return func(s *Service) {
		if decimals >= 0 {
			s.tokenDecimals = decimals
		}
	}
}

// WithClock overrides the time source used for events without a timestamp.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
