package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/okian/kira/internal/adapters/disburse"
	"github.com/okian/kira/internal/domain/reward"
	"github.com/okian/kira/pkg/logger"
	"github.com/okian/kira/pkg/metrics"
)

const (
	minWalletLen = 8
	maxWalletLen = 128
)

// ClaimResult describes a successful airdrop claim.
type ClaimResult struct {
	UserID       string           `json:"user_id"`
	Amount       int64            `json:"amount"`
	TotalClaimed int64            `json:"total_claimed"`
	Receipt      disburse.Receipt `json:"receipt"`
}

type claimAccount struct {
	mu      sync.Mutex
	claimed int64
}

// claimBook tracks how much each user has already been paid.
type claimBook struct {
	mu       sync.Mutex
	accounts map[string]*claimAccount
}

func newClaimBook() *claimBook {
	return &claimBook{accounts: make(map[string]*claimAccount)}
}

func (b *claimBook) account(userID string) *claimAccount {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[userID]
	if !ok {
		a = &claimAccount{}
		b.accounts[userID] = a
	}
	return a
}

func (b *claimBook) claimed(userID string) int64 {
	b.mu.Lock()
	a, ok := b.accounts[userID]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.claimed
}

// validWallet checks shape only; ownership is not verified.
func validWallet(w string) bool {
	if len(w) < minWalletLen || len(w) > maxWalletLen {
		return false
	}
	return strings.IndexFunc(w, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == ':')
	}) < 0
}

// Claimed returns the total amount already disbursed to userID.
func (s *Service) Claimed(userID string) int64 {
	return s.claims.claimed(userID)
}

// Claim pays out the part of the user's airdrop eligibility not yet claimed.
// Claims for the same user are serialized; the claimed amount only grows
// after the disburser succeeds. Score state is never touched.
func (s *Service) Claim(ctx context.Context, userID, wallet string) (ClaimResult, error) {
	if s.disburser == nil {
		return ClaimResult{}, ErrNoDisburser
	}
	wallet = strings.TrimSpace(wallet)
	if !validWallet(wallet) {
		metrics.RecordClaim("invalid_wallet")
		return ClaimResult{}, fmt.Errorf("%w: %q", ErrInvalidWallet, wallet)
	}

	score, err := s.store.Get(ctx, userID)
	if err != nil {
		metrics.RecordClaim("unknown_user")
		return ClaimResult{}, err
	}
	if score.TotalScore < s.minClaimPoints {
		metrics.RecordClaim("below_minimum")
		return ClaimResult{}, fmt.Errorf("%w: score %d below minimum %d", ErrNothingToClaim, score.TotalScore, s.minClaimPoints)
	}

	acct := s.claims.account(userID)
	acct.mu.Lock()
	defer acct.mu.Unlock()

	// Re-read under the account lock so a concurrent claim's payout is accounted for.
	score, err = s.store.Get(ctx, userID)
	if err != nil {
		return ClaimResult{}, err
	}
	payable := score.AirdropEligible - acct.claimed
	if payable <= 0 {
		metrics.RecordClaim("nothing_to_claim")
		return ClaimResult{}, fmt.Errorf("%w: %d of %d already claimed", ErrNothingToClaim, acct.claimed, score.AirdropEligible)
	}

	units := reward.ToBaseUnits(payable, s.tokenDecimals)
	receipt, err := s.disburser.Disburse(ctx, wallet, payable, units)
	if err != nil {
		metrics.RecordClaim("disbursement_failed")
		metrics.RecordErrorByComponent("claims", "disburse")
		s.logger.Error(ctx, "disbursement failed",
			logger.String("user", userID),
			logger.Int64("amount", payable),
			logger.Error(err),
		)
		return ClaimResult{}, fmt.Errorf("%w: %w", ErrDisbursementFailed, err)
	}

	acct.claimed += payable
	metrics.RecordClaim("success")
	metrics.RecordTokensClaimed(payable)
	s.logger.Info(ctx, "airdrop claimed",
		logger.String("user", userID),
		logger.Int64("amount", payable),
		logger.Int64("totalClaimed", acct.claimed),
		logger.String("receipt", receipt.ID),
	)

	return ClaimResult{
		UserID:       userID,
		Amount:       payable,
		TotalClaimed: acct.claimed,
		Receipt:      receipt,
	}, nil
}
