package repository

import (
	"context"
	"sort"
	"time"

	"github.com/okian/kira/pkg/metrics"
)

// Ranker is a read-only leaderboard projection over a Store.
//
// Ordering: total score DESC, then first admission ASC. Users with equal
// totals keep the order in which they first scored, so the board never
// flaps between them.
type Ranker struct {
	store Store
}

// NewRanker creates a ranker reading from store.
func NewRanker(store Store) *Ranker {
	return &Ranker{store: store}
}

// before reports whether a ranks ahead of b.
func before(a, b Record) bool {
	if a.Score.TotalScore != b.Score.TotalScore {
		return a.Score.TotalScore > b.Score.TotalScore
	}
	return a.Seq < b.Seq
}

// Rank returns up to limit entries in leaderboard order. Ranks are 1-based positions.
func (r *Ranker) Rank(ctx context.Context, limit int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardQueryLatency(time.Since(start).Seconds())
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("ranker", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	records := r.store.Snapshot(ctx)
	sort.Slice(records, func(i, j int) bool {
		return before(records[i], records[j])
	})
	if len(records) > limit {
		records = records[:limit]
	}

	out := make([]Entry, len(records))
	for i, rec := range records {
		out[i] = Entry{Rank: i + 1, UnifiedScore: rec.Score}
	}
	return out, nil
}

// Position returns the user's entry with the rank it would have in Rank.
// Returns ErrNotFound if the user is unknown.
func (r *Ranker) Position(ctx context.Context, userID string) (Entry, error) {
	records := r.store.Snapshot(ctx)

	idx := -1
	for i := range records {
		if records[i].Score.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		metrics.RecordErrorByComponent("ranker", "not_found")
		return Entry{}, ErrNotFound
	}

	target := records[idx]
	rank := 1
	for i := range records {
		if i != idx && before(records[i], target) {
			rank++
		}
	}
	return Entry{Rank: rank, UnifiedScore: target.Score}, nil
}
