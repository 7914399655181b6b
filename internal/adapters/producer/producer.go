// Package producer connects external event sources to the ingest path.
//
// Producers own their cursors, retries and rate limits. A failing producer
// never stops the others; its error is logged and counted.
package producer

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/pkg/logger"
	"github.com/okian/kira/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Emit hands one normalized event to the core.
type Emit func(ctx context.Context, e model.EngagementEvent) error

// Producer emits events until its source is exhausted or ctx is canceled.
type Producer interface {
	Name() string
	Run(ctx context.Context, emit Emit) error
}

// Group runs producers concurrently.
type Group struct {
	producers []Producer
	logger    logger.Logger
}

// NewGroup creates a group over producers.
func NewGroup(l logger.Logger, producers ...Producer) *Group {
	if l == nil {
		l = logger.Get().Named("producers")
	}
	return &Group{producers: producers, logger: l}
}

// Len returns the number of producers.
func (g *Group) Len() int {
	return len(g.producers)
}

// Run starts every producer and blocks until all have returned. Individual
// failures are logged and joined into the returned error; cancellation is not
// treated as a failure.
func (g *Group) Run(ctx context.Context, emit Emit) error {
	var eg errgroup.Group
	errs := make([]error, len(g.producers))

	for i, p := range g.producers {
		eg.Go(func() error {
			counted := func(ctx context.Context, e model.EngagementEvent) error {
				metrics.RecordProducerEvent(p.Name())
				return emit(ctx, e)
			}

			g.logger.Info(ctx, "producer started", logger.String("producer", p.Name()))
			err := p.Run(ctx, counted)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				g.logger.Info(ctx, "producer finished", logger.String("producer", p.Name()))
			default:
				metrics.RecordProducerError(p.Name())
				g.logger.Error(ctx, "producer failed", logger.String("producer", p.Name()), logger.Error(err))
				errs[i] = fmt.Errorf("producer %s: %w", p.Name(), err)
			}
			return errs[i]
		})
	}

	// The group has no shared context, so one failure never cancels the
	// others. Wait only keeps the first error; every failure is joined.
	if err := eg.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}
