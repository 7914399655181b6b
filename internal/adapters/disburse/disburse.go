// Package disburse defines the opaque token transfer capability used to pay out airdrop claims.
package disburse

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/okian/kira/pkg/logger"
	"github.com/shopspring/decimal"
)

// ErrRejected is returned by a Disburser that refused a transfer.
var ErrRejected = errors.New("disbursement rejected")

// Receipt identifies a completed transfer.
type Receipt struct {
	ID        string          `json:"id"`
	Wallet    string          `json:"wallet"`
	Amount    int64           `json:"amount"`
	BaseUnits decimal.Decimal `json:"base_units"`
	DryRun    bool            `json:"dry_run"`
	IssuedAt  time.Time       `json:"issued_at"`
}

// Disburser transfers tokens to a wallet. Amount is in whole tokens;
// baseUnits is the same amount scaled to the token's smallest unit.
type Disburser interface {
	Disburse(ctx context.Context, wallet string, amount int64, baseUnits decimal.Decimal) (Receipt, error)
}

// DryRun logs transfers and returns a synthetic receipt without moving tokens.
type DryRun struct {
	logger logger.Logger
	now    func() time.Time
}

// NewDryRun creates a dry-run disburser.
func NewDryRun(l logger.Logger) *DryRun {
	if l == nil {
		l = logger.Get().Named("disburse")
	}
	return &DryRun{logger: l, now: time.Now}
}

// Disburse implements Disburser.
func (d *DryRun) Disburse(ctx context.Context, wallet string, amount int64, baseUnits decimal.Decimal) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	r := Receipt{
		ID:        uuid.NewString(),
		Wallet:    wallet,
		Amount:    amount,
		BaseUnits: baseUnits,
		DryRun:    true,
		IssuedAt:  d.now().UTC(),
	}
	d.logger.Info(ctx, "dry-run disbursement",
		logger.String("receipt", r.ID),
		logger.String("wallet", wallet),
		logger.Int64("amount", amount),
		logger.String("base_units", baseUnits.String()),
	)
	return r, nil
}

// Func adapts a function to Disburser.
type Func func(ctx context.Context, wallet string, amount int64, baseUnits decimal.Decimal) (Receipt, error)

// Disburse implements Disburser.
func (f Func) Disburse(ctx context.Context, wallet string, amount int64, baseUnits decimal.Decimal) (Receipt, error) {
	return f(ctx, wallet, amount, baseUnits)
}
