// Package service provides the ingestion coordinator and the read and claim
// operations exposed to the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/kira/internal/adapters/checkpoint"
	"github.com/okian/kira/internal/adapters/disburse"
	eventqueue "github.com/okian/kira/internal/adapters/mq/queue"
	workerpool "github.com/okian/kira/internal/adapters/mq/worker"
	"github.com/okian/kira/internal/adapters/producer"
	"github.com/okian/kira/internal/adapters/repository"
	"github.com/okian/kira/internal/domain/dedupe"
	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/internal/domain/weights"
	"github.com/okian/kira/pkg/logger"
	"github.com/okian/kira/pkg/metrics"
)

// Service coordinates ingestion: validate, admit through the dedup filter,
// resolve the weight and apply it to the score store. It also serves the
// read side and airdrop claims.
type Service struct {
	// lifecycle serializes Start and Stop; mu guards the running state read by Submit.
	lifecycle sync.Mutex
	mu        sync.RWMutex

	// Core components, ready from New.
	resolver *weights.Resolver
	filter   dedupe.Filter
	store    repository.Store
	ranker   *repository.Ranker
	claims   *claimBook

	// Runtime components, built by Start.
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// Collaborators
	checkpoint checkpoint.Store
	disburser  disburse.Disburser
	producers  []producer.Producer

	// Configuration
	workerCount      int
	queueSize        int
	shardCount       int
	dedupeWindow     time.Duration
	dedupeStripes    int
	sweepInterval    time.Duration
	weightOverrides  map[string]map[string]int
	platformDefaults map[string]int
	minClaimPoints   int64
	tokenDecimals    int32
	clock            func() time.Time

	// State. cancel stops producers and the sweep loop; stopWorkers is only
	// called after the pool has drained the queue.
	started     bool
	cancel      context.CancelFunc
	stopWorkers context.CancelFunc
	bg          sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Ingest and the read operations work immediately;
// Submit needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      100000,
		shardCount:     32,
		dedupeWindow:   72 * time.Hour,
		dedupeStripes:  64,
		sweepInterval:  time.Minute,
		minClaimPoints: 10,
		tokenDecimals:  9,
		clock:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.resolver = weights.NewResolver(
		weights.WithOverrides(s.weightOverrides),
		weights.WithPlatformDefaults(s.platformDefaults),
	)
	s.filter = dedupe.New(
		dedupe.WithWindow(s.dedupeWindow),
		dedupe.WithStripes(s.dedupeStripes),
		dedupe.WithClock(s.clock),
	)
	s.store = repository.NewShardedStore(repository.WithShards(s.shardCount))
	s.ranker = repository.NewRanker(s.store)
	s.claims = newClaimBook()

	return s
}

// Start loads the checkpoint, starts the worker pool, the producers and the
// sweep loop. It is a no-op if the service is already running.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting engagement service...")

	if s.checkpoint != nil {
		marks, err := s.checkpoint.Load(ctx)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		s.filter.Restore(marks)
		for p, t := range marks {
			s.logger.Info(ctx, "restored dedup watermark", logger.String("platform", string(p)), logger.Time("high_water", t))
		}
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	workCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	s.stopWorkers = stopWorkers

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s, workerpool.WithPoolLogger(s.logger.Named("workers")))
	s.workerPool.Start(workCtx)

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.sweepLoop(bgCtx)
	}()

	if len(s.producers) > 0 {
		group := producer.NewGroup(s.logger.Named("producers"), s.producers...)
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			if err := group.Run(bgCtx, s.emit); err != nil {
				s.logger.Warn(bgCtx, "producers finished with errors", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.logger.Info(ctx, "engagement service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("shards", s.shardCount),
		logger.Duration("dedupeWindow", s.dedupeWindow),
		logger.Int("producers", len(s.producers)),
	)
	return nil
}

// Stop stops the producers, drains the queue and writes a final checkpoint.
func (s *Service) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	stopWorkers := s.stopWorkers
	pool := s.workerPool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping engagement service...")

	// Producers may still be inside Submit; they see ErrNotStarted or a
	// canceled context and return.
	s.bg.Wait()

	// Workers keep running until the closed queue is empty.
	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	stopWorkers()
	if err := s.maintain(ctx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info(ctx, "engagement service stopped")
	return errors.Join(errs...)
}

func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.maintain(ctx); err != nil {
				s.logger.Error(ctx, "maintenance failed", logger.Error(err))
			}
		}
	}
}

// maintain evicts expired dedup keys, refreshes gauges and saves watermarks.
func (s *Service) maintain(ctx context.Context) error {
	evicted := s.filter.Sweep(ctx)
	metrics.RecordDedupeSweep(evicted)
	metrics.UpdateDedupeEntries(s.filter.Size())
	for tier, n := range s.store.TierCounts(ctx) {
		metrics.UpdateTierCount(string(tier), n)
	}
	if evicted > 0 {
		s.logger.Debug(ctx, "dedup sweep", logger.Int("evicted", evicted), logger.Int64("entries", s.filter.Size()))
	}

	if s.checkpoint == nil {
		return nil
	}
	if err := s.checkpoint.Save(ctx, s.filter.Watermarks()); err != nil {
		metrics.RecordErrorByComponent("checkpoint", "save")
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// emit feeds producer events into the async path.
func (s *Service) emit(ctx context.Context, e model.EngagementEvent) error {
	return s.Submit(ctx, e)
}

// Ingest scores one event synchronously. Invalid events return an error
// wrapping model.ErrInvalidEvent; duplicates and expired events are
// reported through the result, not as errors.
func (s *Service) Ingest(ctx context.Context, e model.EngagementEvent) (model.IngestResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIngestLatency(time.Since(start).Seconds())
	}()

	e = e.Normalize()
	if err := e.Validate(); err != nil {
		metrics.RecordEventInvalid(invalidReason(err))
		return model.IngestResult{}, err
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.clock()
	}

	var (
		weight int64
		score  model.UnifiedScore
	)
	d := s.filter.Admit(ctx, e.Platform, e.SourceEventID, e.OccurredAt, func() {
		weight = s.resolver.Resolve(e.Platform, e.Action, e.RawMetricBonus)
		score = s.store.Apply(ctx, e.UserID, e.Username, e.Platform, weight, e.OccurredAt)
	})

	res := model.IngestResult{Admitted: d.OK(), Outcome: d.Outcome()}
	switch d {
	case dedupe.DecisionAdmitted:
		metrics.RecordEventAdmitted(string(e.Platform), weight)
		res.Score = &score
	case dedupe.DecisionExpired:
		metrics.RecordEventExpired(string(e.Platform))
		s.logger.Debug(ctx, "event behind dedup window", logger.String("key", e.DedupKey()), logger.Time("occurredAt", e.OccurredAt))
	default:
		metrics.RecordEventDuplicate(string(e.Platform))
	}
	return res, nil
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, model.ErrUnknownPlatform):
		return "unknown_platform"
	case errors.Is(err, model.ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, model.ErrMissingField):
		return "missing_field"
	default:
		return "invalid"
	}
}

// Submit validates e and queues it for asynchronous ingestion.
func (s *Service) Submit(ctx context.Context, e model.EngagementEvent) error {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		metrics.RecordEventInvalid(invalidReason(err))
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	if !s.eventQueue.Enqueue(ctx, e) {
		return ErrBackpressure
	}
	return nil
}

// GetUserScore returns the user's current score or repository.ErrNotFound.
func (s *Service) GetUserScore(ctx context.Context, userID string) (model.UnifiedScore, error) {
	return s.store.Get(ctx, userID)
}

// Rank returns up to limit leaderboard entries.
func (s *Service) Rank(ctx context.Context, limit int) ([]repository.Entry, error) {
	return s.ranker.Rank(ctx, limit)
}

// Position returns the user's leaderboard entry.
func (s *Service) Position(ctx context.Context, userID string) (repository.Entry, error) {
	return s.ranker.Position(ctx, userID)
}

// GetTierCounts returns the number of users in each tier.
func (s *Service) GetTierCounts(ctx context.Context) map[model.Tier]int {
	return s.store.TierCounts(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	totals := s.store.Totals(ctx)
	avg := 0.0
	if totals.Users > 0 {
		avg = float64(totals.Points) / float64(totals.Users)
	}

	stats := map[string]interface{}{
		"started":       s.started,
		"totalUsers":    totals.Users,
		"totalPoints":   totals.Points,
		"averageScore":  avg,
		"tiers":         s.store.TierCounts(ctx),
		"dedupeEntries": s.filter.Size(),
		"workerCount":   s.workerCount,
		"queueCapacity": s.queueSize,
	}

	if s.started {
		queueLen := s.eventQueue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	metrics.UpdateUsersTotal(totals.Users)

	return stats
}
