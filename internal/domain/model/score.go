package model

import "time"

// Tier is one of five ordered reward classes derived from a total score.
type Tier string

// Tiers, lowest first.
const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// Tiers returns all tiers in ascending order.
func Tiers() []Tier {
	return []Tier{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}
}

// UnifiedScore is a point-in-time snapshot of a user's cumulative engagement.
// Tier and AirdropEligible are always derived from TotalScore when the snapshot is taken.
type UnifiedScore struct {
	UserID          string             `json:"user_id"`
	Username        string             `json:"username"`
	Platforms       map[Platform]int64 `json:"platforms"`
	TotalScore      int64              `json:"total_score"`
	Tier            Tier               `json:"tier"`
	AirdropEligible int64              `json:"airdrop_eligible"`
	LastActivity    time.Time          `json:"last_activity"`
}

// Outcome describes what happened to an ingested event.
type Outcome string

// Ingest outcomes. Only OutcomeAdmitted changes state.
const (
	OutcomeAdmitted  Outcome = "admitted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeExpired   Outcome = "expired" // older than the dedup watermark
)

// IngestResult is returned for every event that passed validation.
type IngestResult struct {
	Admitted bool          `json:"admitted"`
	Outcome  Outcome       `json:"outcome"`
	Score    *UnifiedScore `json:"score,omitempty"`
}
