// Package weights resolves the point value of an engagement action.
package weights

import (
	"github.com/okian/kira/internal/domain/model"
)

// MaxTwitterBonus caps the engagement bonus added to a twitter action.
const MaxTwitterBonus = 50

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithOverrides replaces individual base weights. Unknown platforms or actions
// and negative weights are ignored.
func WithOverrides(overrides map[string]map[string]int) Option {
	return func(r *Resolver) {
		for ps, actions := range overrides {
			p := model.Platform(ps)
			if !p.Valid() {
				continue
			}
			for as, w := range actions {
				a := model.Action(as)
				if !a.Valid() || w < 0 {
					continue
				}
				r.table[p][a] = int64(w)
			}
		}
	}
}

// WithPlatformDefaults replaces the fallback weight used for actions a platform does not list.
func WithPlatformDefaults(defaults map[string]int) Option {
	return func(r *Resolver) {
		for ps, w := range defaults {
			p := model.Platform(ps)
			if p.Valid() && w >= 0 {
				r.fallback[p] = int64(w)
			}
		}
	}
}

// Resolver maps (platform, action) to a non-negative weight. It is read-only
// after construction and safe for concurrent use.
type Resolver struct {
	table    map[model.Platform]map[model.Action]int64
	fallback map[model.Platform]int64
}

// NewResolver builds a resolver from the base tables plus options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		table: map[model.Platform]map[model.Action]int64{
			model.PlatformTwitter: {
				model.ActionMention: 10,
				model.ActionLike:    5,
				model.ActionReply:   20,
				model.ActionRetweet: 15,
				model.ActionQuote:   25,
			},
			model.PlatformTelegram: {
				model.ActionMessage:  1,
				model.ActionReaction: 2,
				model.ActionInvite:   10,
				model.ActionCommand:  3,
			},
			model.PlatformDiscord: {
				model.ActionMessage:  1,
				model.ActionReaction: 2,
				model.ActionVoice:    5,
				model.ActionInvite:   10,
			},
		},
		fallback: map[model.Platform]int64{
			model.PlatformTwitter:  5,
			model.PlatformTelegram: 1,
			model.PlatformDiscord:  1,
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the weight for an action, including the twitter engagement bonus.
// Actions a platform does not list fall back to that platform's default. Callers
// must pass a valid platform; an unknown one resolves to zero.
func (r *Resolver) Resolve(platform model.Platform, action model.Action, rawMetricBonus int) int64 {
	w, ok := r.table[platform][action]
	if !ok {
		w = r.fallback[platform]
	}
	if platform == model.PlatformTwitter && rawMetricBonus > 0 {
		w += int64(min(rawMetricBonus, MaxTwitterBonus))
	}
	return w
}

// Known reports whether the platform's table lists the action explicitly.
func (r *Resolver) Known(platform model.Platform, action model.Action) bool {
	_, ok := r.table[platform][action]
	return ok
}

// Table returns a copy of the effective base weights.
func (r *Resolver) Table() map[model.Platform]map[model.Action]int64 {
	out := make(map[model.Platform]map[model.Action]int64, len(r.table))
	for p, actions := range r.table {
		m := make(map[model.Action]int64, len(actions))
		for a, w := range actions {
			m[a] = w
		}
		out[p] = m
	}
	return out
}
