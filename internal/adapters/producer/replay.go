package producer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/pkg/logger"
)

const (
	defaultRetryInterval = 50 * time.Millisecond
	maxLineBytes         = 1 << 20
)

// Replay emits events read from a newline-delimited JSON file of
// model.EventPayload objects. Malformed lines are logged and skipped.
type Replay struct {
	path          string
	retryIf       func(error) bool
	retryInterval time.Duration
	logger        logger.Logger
}

// ReplayOption configures a Replay producer.
type ReplayOption func(*Replay)

// WithRetryIf makes Replay re-emit an event while retry(err) is true.
func WithRetryIf(retry func(error) bool) ReplayOption {
	return func(r *Replay) { r.retryIf = retry }
}

// WithRetryInterval sets the pause between retries.
func WithRetryInterval(d time.Duration) ReplayOption {
	return func(r *Replay) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

// WithReplayLogger sets the logger.
func WithReplayLogger(l logger.Logger) ReplayOption {
	return func(r *Replay) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReplay creates a producer for the file at path.
func NewReplay(path string, opts ...ReplayOption) *Replay {
	r := &Replay{
		path:          path,
		retryIf:       func(error) bool { return false },
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("replay")
	}
	return r
}

// Name implements Producer.
func (r *Replay) Name() string {
	return "replay:" + filepath.Base(r.path)
}

// Run implements Producer.
func (r *Replay) Run(ctx context.Context, emit Emit) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	line, emitted, skipped := 0, 0, 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var p model.EventPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			skipped++
			r.logger.Warn(ctx, "skipping malformed line", logger.Int("line", line), logger.Error(err))
			continue
		}
		e, err := p.ToEvent()
		if err != nil {
			skipped++
			r.logger.Warn(ctx, "skipping invalid event", logger.Int("line", line), logger.Error(err))
			continue
		}

		if err := r.emit(ctx, emit, e); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			skipped++
			r.logger.Warn(ctx, "event not accepted", logger.Int("line", line), logger.Error(err))
			continue
		}
		emitted++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read replay file: %w", err)
	}

	r.logger.Info(ctx, "replay complete",
		logger.String("path", r.path),
		logger.Int("emitted", emitted),
		logger.Int("skipped", skipped),
	)
	return nil
}

func (r *Replay) emit(ctx context.Context, emit Emit, e model.EngagementEvent) error {
	for {
		err := emit(ctx, e)
		if err == nil || !r.retryIf(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryInterval):
		}
	}
}
