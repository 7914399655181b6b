// Package repository owns per-user score state and the leaderboard projection over it.
package repository

import (
	"context"
	"time"

	"github.com/okian/kira/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank int `json:"rank"`
	model.UnifiedScore
}

// Record is a user snapshot together with the order in which the user was first admitted.
type Record struct {
	Score model.UnifiedScore
	Seq   uint64
}

// Totals summarizes the whole store.
type Totals struct {
	Users  int
	Points int64
}

// Store provides read/write access to per-user score state.
type Store interface {
	// Apply adds weight to the user's platform and total scores and returns
	// the post-update snapshot. The user is created on first use.
	Apply(ctx context.Context, userID, username string, platform model.Platform, weight int64, occurredAt time.Time) model.UnifiedScore

	// Get returns the user's snapshot or ErrNotFound.
	Get(ctx context.Context, userID string) (model.UnifiedScore, error)

	// Snapshot returns every user. Each record is internally consistent;
	// the set as a whole is not a point-in-time cut across users.
	Snapshot(ctx context.Context) []Record

	// TierCounts returns the number of users per tier, with every tier present.
	TierCounts(ctx context.Context) map[model.Tier]int

	Totals(ctx context.Context) Totals

	// Count returns the number of users tracked.
	Count(ctx context.Context) int
}
