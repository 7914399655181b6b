// Package reward derives tiers and airdrop eligibility from a total score.
// Everything here is pure and total over non-negative scores.
package reward

import (
	"github.com/okian/kira/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Tier thresholds (minimum total score, inclusive).
const (
	SilverMin   = 500
	GoldMin     = 2000
	PlatinumMin = 5000
	DiamondMin  = 10000
)

// Airdrop parameters: one token per ten points, capped.
const (
	AirdropPointsPerToken = 10
	AirdropCap            = 1000
)

// ClassifyTier returns the highest tier whose minimum the score reaches.
func ClassifyTier(totalScore int64) model.Tier {
	switch {
	case totalScore >= DiamondMin:
		return model.TierDiamond
	case totalScore >= PlatinumMin:
		return model.TierPlatinum
	case totalScore >= GoldMin:
		return model.TierGold
	case totalScore >= SilverMin:
		return model.TierSilver
	default:
		return model.TierBronze
	}
}

// CalculateAirdrop returns min(floor(totalScore * 0.1), 1000). Negative input yields zero.
func CalculateAirdrop(totalScore int64) int64 {
	if totalScore <= 0 {
		return 0
	}
	return min(totalScore/AirdropPointsPerToken, AirdropCap)
}

// MinScore returns the minimum total score of a tier.
func MinScore(t model.Tier) int64 {
	switch t {
	case model.TierSilver:
		return SilverMin
	case model.TierGold:
		return GoldMin
	case model.TierPlatinum:
		return PlatinumMin
	case model.TierDiamond:
		return DiamondMin
	default:
		return 0
	}
}

// ToBaseUnits converts a whole-token amount into the token's smallest unit.
func ToBaseUnits(amount int64, decimals int32) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(decimals)
}
