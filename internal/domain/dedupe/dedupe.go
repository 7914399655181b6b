// Package dedupe guarantees that each (platform, source event id) pair is scored at most once.
package dedupe

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kira/internal/domain/model"
)

// Default filter configuration.
const (
	defaultStripes = 64
	defaultWindow  = 72 * time.Hour
)

// Decision is the result of an admission attempt.
type Decision int

// Admission decisions. Only DecisionAdmitted runs the commit callback.
const (
	DecisionAdmitted Decision = iota
	DecisionDuplicate
	DecisionExpired
)

// OK reports whether the event was admitted.
func (d Decision) OK() bool { return d == DecisionAdmitted }

// Outcome maps the decision to the ingest outcome reported to callers.
func (d Decision) Outcome() model.Outcome {
	switch d {
	case DecisionAdmitted:
		return model.OutcomeAdmitted
	case DecisionExpired:
		return model.OutcomeExpired
	default:
		return model.OutcomeDuplicate
	}
}

// Filter records admitted event keys.
type Filter interface {
	// Admit atomically checks and records (platform, id). For a new key, commit
	// runs before the key's lock is released, so a concurrent duplicate cannot
	// observe the key as admitted until commit has returned. commit may be nil.
	Admit(ctx context.Context, platform model.Platform, id string, occurredAt time.Time, commit func()) Decision

	// Sweep evicts keys older than their platform's watermark and returns how many were removed.
	Sweep(ctx context.Context) int

	// Watermarks returns the per-platform high-water marks of admitted events.
	Watermarks() map[model.Platform]time.Time

	// Restore raises the high-water marks to at least the given values.
	Restore(marks map[model.Platform]time.Time)

	Size() int64
}

type entry struct {
	platform model.Platform
	at       time.Time
}

type stripe struct {
	mu   sync.Mutex
	seen map[string]entry
}

// windowFilter is a striped set of keys bounded by a rolling time window.
//
// Every platform keeps a high-water mark: the newest occurredAt admitted so far,
// never ahead of the clock. Keys older than mark-window are rejected as expired
// and become eligible for eviction. The cutoff only moves forward, so an evicted
// key can never be admitted again.
// A window <= 0 disables expiry and eviction.
type windowFilter struct {
	stripes []stripe
	window  time.Duration
	clock   func() time.Time

	wmMu sync.RWMutex
	high map[model.Platform]time.Time

	size atomic.Int64
}

// New creates a filter with configuration options.
func New(opts ...Option) Filter {
	f := &windowFilter{
		window: defaultWindow,
		clock:  time.Now,
		high:   make(map[model.Platform]time.Time),
	}
	n := defaultStripes

	cfg := options{stripes: &n}
	for _, opt := range opts {
		opt(f, &cfg)
	}

	f.stripes = make([]stripe, n)
	for i := range f.stripes {
		f.stripes[i].seen = make(map[string]entry)
	}
	return f
}

func (f *windowFilter) stripeFor(key string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &f.stripes[h.Sum32()%uint32(len(f.stripes))]
}

// cutoff returns the oldest occurredAt still admissible for platform.
// The zero time means no cutoff.
func (f *windowFilter) cutoff(platform model.Platform) time.Time {
	if f.window <= 0 {
		return time.Time{}
	}
	f.wmMu.RLock()
	hw := f.high[platform]
	f.wmMu.RUnlock()
	if hw.IsZero() {
		return time.Time{}
	}
	return hw.Add(-f.window)
}

func (f *windowFilter) advance(platform model.Platform, at time.Time) {
	if now := f.clock(); at.After(now) {
		at = now
	}
	f.wmMu.Lock()
	if at.After(f.high[platform]) {
		f.high[platform] = at
	}
	f.wmMu.Unlock()
}

func (f *windowFilter) Admit(_ context.Context, platform model.Platform, id string, occurredAt time.Time, commit func()) Decision {
	if occurredAt.IsZero() {
		occurredAt = f.clock()
	}
	key := string(platform) + ":" + id
	s := f.stripeFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return DecisionDuplicate
	}
	if c := f.cutoff(platform); !c.IsZero() && occurredAt.Before(c) {
		return DecisionExpired
	}

	s.seen[key] = entry{platform: platform, at: occurredAt}
	f.size.Add(1)
	f.advance(platform, occurredAt)

	if commit != nil {
		commit()
	}
	return DecisionAdmitted
}

func (f *windowFilter) Sweep(_ context.Context) int {
	if f.window <= 0 {
		return 0
	}
	cutoffs := make(map[model.Platform]time.Time)
	for _, p := range model.Platforms() {
		if c := f.cutoff(p); !c.IsZero() {
			cutoffs[p] = c
		}
	}
	if len(cutoffs) == 0 {
		return 0
	}

	evicted := 0
	for i := range f.stripes {
		s := &f.stripes[i]
		s.mu.Lock()
		for key, e := range s.seen {
			if c, ok := cutoffs[e.platform]; ok && e.at.Before(c) {
				delete(s.seen, key)
				evicted++
			}
		}
		s.mu.Unlock()
	}
	f.size.Add(-int64(evicted))
	return evicted
}

func (f *windowFilter) Watermarks() map[model.Platform]time.Time {
	f.wmMu.RLock()
	defer f.wmMu.RUnlock()
	out := make(map[model.Platform]time.Time, len(f.high))
	for p, t := range f.high {
		out[p] = t
	}
	return out
}

func (f *windowFilter) Restore(marks map[model.Platform]time.Time) {
	for p, t := range marks {
		if p.Valid() {
			f.advance(p, t)
		}
	}
}

func (f *windowFilter) Size() int64 {
	return f.size.Load()
}
