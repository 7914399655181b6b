package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/internal/domain/reward"
	"github.com/okian/kira/pkg/metrics"
)

const defaultShards = 32

// record is the mutable state of one user. Tier and airdrop are never stored;
// they are derived from total whenever a snapshot is taken.
type record struct {
	username  string
	platforms map[model.Platform]int64
	total     int64
	last      time.Time
	seq       uint64
}

func (r *record) snapshot(userID string) model.UnifiedScore {
	platforms := make(map[model.Platform]int64, len(r.platforms))
	for p, v := range r.platforms {
		platforms[p] = v
	}
	return model.UnifiedScore{
		UserID:          userID,
		Username:        r.username,
		Platforms:       platforms,
		TotalScore:      r.total,
		Tier:            reward.ClassifyTier(r.total),
		AirdropEligible: reward.CalculateAirdrop(r.total),
		LastActivity:    r.last,
	}
}

type shard struct {
	mu    sync.RWMutex
	users map[string]*record
}

// ShardedStore is an in-memory Store that spreads users over independently
// locked shards so that unrelated users never contend.
type ShardedStore struct {
	shardCount int
	shards     []shard

	seq   atomic.Uint64
	users atomic.Int64
}

var _ Store = (*ShardedStore)(nil)

// NewShardedStore constructs a store with configuration options.
func NewShardedStore(opts ...Option) *ShardedStore {
	s := &ShardedStore{shardCount: defaultShards}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]shard, s.shardCount)
	for i := range s.shards {
		s.shards[i].users = make(map[string]*record)
	}
	metrics.UpdateStoreShardCount(s.shardCount)
	return s
}

func (s *ShardedStore) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Apply implements Store.Apply.
func (s *ShardedStore) Apply(_ context.Context, userID, username string, platform model.Platform, weight int64, occurredAt time.Time) model.UnifiedScore {
	start := time.Now()
	defer func() {
		metrics.RecordStoreApplyLatency(time.Since(start).Seconds())
	}()

	if weight < 0 {
		weight = 0
	}

	sh := s.shardFor(userID)
	sh.mu.Lock()
	rec, ok := sh.users[userID]
	if !ok {
		rec = &record{
			platforms: make(map[model.Platform]int64, 1),
			seq:       s.seq.Add(1),
		}
		sh.users[userID] = rec
	}
	rec.platforms[platform] += weight
	rec.total += weight
	if occurredAt.After(rec.last) {
		rec.last = occurredAt
	}
	if username != "" {
		rec.username = username
	}
	out := rec.snapshot(userID)
	sh.mu.Unlock()

	if !ok {
		metrics.UpdateUsersTotal(int(s.users.Add(1)))
	}
	return out
}

// Get implements Store.Get.
func (s *ShardedStore) Get(_ context.Context, userID string) (model.UnifiedScore, error) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok {
		return model.UnifiedScore{}, ErrNotFound
	}
	return rec.snapshot(userID), nil
}

// Snapshot implements Store.Snapshot. Shards are read one at a time so a
// scan never holds more than one lock.
func (s *ShardedStore) Snapshot(_ context.Context) []Record {
	out := make([]Record, 0, s.users.Load())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for id, rec := range sh.users {
			out = append(out, Record{Score: rec.snapshot(id), Seq: rec.seq})
		}
		sh.mu.RUnlock()
	}
	return out
}

// TierCounts implements Store.TierCounts.
func (s *ShardedStore) TierCounts(_ context.Context) map[model.Tier]int {
	counts := make(map[model.Tier]int, len(model.Tiers()))
	for _, t := range model.Tiers() {
		counts[t] = 0
	}
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for _, rec := range sh.users {
			counts[reward.ClassifyTier(rec.total)]++
		}
		sh.mu.RUnlock()
	}
	return counts
}

// Totals implements Store.Totals.
func (s *ShardedStore) Totals(_ context.Context) Totals {
	var t Totals
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		t.Users += len(sh.users)
		for _, rec := range sh.users {
			t.Points += rec.total
		}
		sh.mu.RUnlock()
	}
	return t
}

// Count implements Store.Count.
func (s *ShardedStore) Count(_ context.Context) int {
	return int(s.users.Load())
}
