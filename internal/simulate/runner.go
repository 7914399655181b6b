package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	maxBackpressureRetries = 50
	backpressureDelay      = 50 * time.Millisecond
	settlePoll             = 200 * time.Millisecond
	outputFilePermission   = 0o600
)

// Runner executes simulations against one service.
type Runner struct {
	cfg    Config
	client *Client
	log    logger.Logger
	now    func() time.Time
}

// NewRunner builds a runner. A nil logger uses the global one.
func NewRunner(cfg Config, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Get().Named("simulate")
	}
	return &Runner{
		cfg:    cfg,
		client: NewClient(cfg.BaseURL, cfg.Timeout, NewLimiter(cfg.Rate, cfg.BatchSize)),
		log:    log,
		now:    time.Now,
	}
}

// Run generates a workload, submits it, waits for the service to drain its
// queue and verifies the top of the leaderboard.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := r.now()
	if err := r.cfg.Validate(); err != nil {
		return Report{}, err
	}
	if err := r.client.Health(ctx); err != nil {
		return Report{}, err
	}

	w := NewGenerator(r.cfg, r.now).Generate()
	rep := Report{
		Generated:  len(w.Events),
		Duplicates: w.Duplicates,
		Users:      len(w.Expected),
	}
	r.log.Info(ctx, "generated workload",
		logger.Int("events", len(w.Events)),
		logger.Int("duplicates", w.Duplicates),
		logger.Int("users", len(w.Expected)))

	if r.cfg.OutputFile != "" {
		if err := writeJSONL(r.cfg.OutputFile, w.Events); err != nil {
			r.log.Warn(ctx, "failed to save events", logger.String("file", r.cfg.OutputFile), logger.Error(err))
		}
	}

	if err := r.submit(ctx, w.Events, &rep); err != nil {
		return rep, err
	}
	if err := r.settle(ctx); err != nil {
		return rep, err
	}

	entries, err := r.client.Leaderboard(ctx, r.cfg.TopN)
	if err != nil {
		return rep, err
	}
	var expected map[string]int64
	if r.cfg.CheckTotals {
		expected = w.Expected
	}
	if err := Verify(entries, expected); err != nil {
		return rep, err
	}
	rep.Verified = len(entries)
	rep.Duration = r.now().Sub(start)

	r.log.Info(ctx, "simulation passed",
		logger.Int("accepted", rep.Accepted),
		logger.Int("rejected", rep.Rejected),
		logger.Int("retries", rep.Retries),
		logger.Int("verified", rep.Verified),
		logger.Duration("duration", rep.Duration))
	return rep, nil
}

func (r *Runner) submit(ctx context.Context, events []model.EventPayload, rep *Report) error {
	var accepted, rejected, retries atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for lo := 0; lo < len(events); lo += r.cfg.BatchSize {
		batch := events[lo:min(lo+r.cfg.BatchSize, len(events))]
		g.Go(func() error {
			for attempt := 0; ; attempt++ {
				res, err := r.client.SubmitBatch(gctx, batch)
				if err != nil {
					return err
				}
				if !res.Backpressure() {
					accepted.Add(int64(res.Accepted))
					rejected.Add(int64(len(res.Rejected)))
					// Events refused for backpressure inside an accepted batch are resent.
					if retry := backpressured(batch, res.Rejected); len(retry) > 0 {
						rejected.Add(-int64(len(retry)))
						batch = retry
					} else {
						return nil
					}
				}
				if attempt >= maxBackpressureRetries {
					return fmt.Errorf("batch starting at %d: %w", lo, ErrNotSettled)
				}
				retries.Add(1)
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(backpressureDelay):
				}
			}
		})
	}
	err := g.Wait()

	rep.Accepted = int(accepted.Load())
	rep.Rejected = int(rejected.Load())
	rep.Retries = int(retries.Load())
	return err
}

func backpressured(batch []model.EventPayload, rejected []Rejection) []model.EventPayload {
	var out []model.EventPayload
	for _, rj := range rejected {
		if rj.Code == "backpressure" && rj.Index >= 0 && rj.Index < len(batch) {
			out = append(out, batch[rj.Index])
		}
	}
	return out
}

// settle waits until the queue is empty and the point total stops moving.
func (r *Runner) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Settle)
	defer cancel()

	last := -1.0
	for {
		stats, err := r.client.Stats(ctx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err == nil {
			queued, _ := stats["queueLength"].(float64)
			points, _ := stats["totalPoints"].(float64)
			if queued == 0 && points == last {
				return nil
			}
			last = points
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w within %s", ErrNotSettled, r.cfg.Settle)
		case <-time.After(settlePoll):
		}
	}
}

func writeJSONL(path string, events []model.EventPayload) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}
