package dedupe

import "time"

type options struct {
	stripes *int
}

// Option applies a configuration option to the filter.
type Option func(*windowFilter, *options)

// WithWindow sets the maximum expected out-of-order delay. Keys older than
// the platform's high-water mark minus window are expired and evicted.
// A window <= 0 keeps every key forever.
func WithWindow(window time.Duration) Option {
	return func(f *windowFilter, _ *options) {
		f.window = window
	}
}

// WithStripes sets the number of independent lock stripes.
func WithStripes(n int) Option {
	return func(_ *windowFilter, o *options) {
		if n > 0 {
			*o.stripes = n
		}
	}
}

// WithClock overrides the time source used for missing timestamps and to
// keep watermarks from running ahead of real time.
func WithClock(clock func() time.Time) Option {
	return func(f *windowFilter, _ *options) {
		if clock != nil {
			f.clock = clock
		}
	}
}
