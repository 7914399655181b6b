package simulate

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/internal/domain/weights"
)

// crossActionChance is how often an event uses an action the platform's
// table does not list, which exercises the platform default weight.
const crossActionChance = 0.05

// Workload is a generated event stream plus the totals a correct service
// must end up with.
type Workload struct {
	Events     []model.EventPayload
	Duplicates int
	Expected   map[string]int64
}

// Generator produces synthetic engagement events.
type Generator struct {
	cfg      Config
	rng      *rand.Rand
	ids      io.Reader
	resolver *weights.Resolver
	actions  map[model.Platform][]model.Action
	now      func() time.Time
}

// NewGenerator builds a generator. Expected totals are computed with the
// base weight tables, so they only hold for a service running without overrides.
func NewGenerator(cfg Config, now func() time.Time) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}
	resolver := weights.NewResolver()
	actions := make(map[model.Platform][]model.Action)
	for p, table := range resolver.Table() {
		for a := range table {
			actions[p] = append(actions[p], a)
		}
		// Map order is random; sort so a seed reproduces the same stream.
		sort.Slice(actions[p], func(i, j int) bool { return actions[p][i] < actions[p][j] })
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Generator{
		cfg:      cfg,
		rng:      rng,
		ids:      rngReader{rng},
		resolver: resolver,
		actions:  actions,
		now:      now,
	}
}

// Generate returns cfg.Events distinct events plus redeliveries, shuffled.
func (g *Generator) Generate() Workload {
	users := make([]string, g.cfg.Users)
	for i := range users {
		users[i] = fmt.Sprintf("user-%05d", i)
	}
	platforms := model.Platforms()
	vocabulary := model.Actions()
	now := g.now().UTC()

	w := Workload{Expected: make(map[string]int64)}
	unique := make([]model.EventPayload, 0, g.cfg.Events)
	for i := 0; i < g.cfg.Events; i++ {
		p := platforms[g.rng.IntN(len(platforms))]
		a := g.pick(p, vocabulary)
		user := users[g.rng.IntN(len(users))]

		bonus := 0
		if p == model.PlatformTwitter && g.rng.Float64() < g.cfg.BonusChance {
			bonus = g.rng.IntN(weights.MaxTwitterBonus*2 + 1)
		}
		at := now
		if g.cfg.Spread > 0 {
			at = now.Add(-time.Duration(g.rng.Int64N(int64(g.cfg.Spread))))
		}

		id, err := uuid.NewRandomFromReader(g.ids)
		if err != nil {
			id = uuid.New()
		}
		e := model.EventPayload{
			SourceEventID:  id.String(),
			UserID:         user,
			Username:       user,
			Platform:       string(p),
			Action:         string(a),
			RawMetricBonus: bonus,
			OccurredAt:     at.Format(time.RFC3339Nano),
		}
		unique = append(unique, e)
		w.Expected[user] += g.resolver.Resolve(p, a, bonus)
	}

	w.Duplicates = int(float64(len(unique)) * g.cfg.DuplicateRatio)
	w.Events = make([]model.EventPayload, 0, len(unique)+w.Duplicates)
	w.Events = append(w.Events, unique...)
	for i := 0; i < w.Duplicates; i++ {
		w.Events = append(w.Events, unique[g.rng.IntN(len(unique))])
	}
	g.rng.Shuffle(len(w.Events), func(i, j int) {
		w.Events[i], w.Events[j] = w.Events[j], w.Events[i]
	})
	return w
}

func (g *Generator) pick(p model.Platform, vocabulary []model.Action) model.Action {
	if g.rng.Float64() < crossActionChance {
		return vocabulary[g.rng.IntN(len(vocabulary))]
	}
	listed := g.actions[p]
	return listed[g.rng.IntN(len(listed))]
}

// rngReader feeds uuid generation from the seeded source.
type rngReader struct{ rng *rand.Rand }

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}
