package simulate

import (
	"errors"
	"fmt"

	"github.com/okian/kira/internal/adapters/repository"
	"github.com/okian/kira/internal/domain/reward"
)

// Verify checks that entries form a valid leaderboard page: ranks run 1..n,
// totals never increase, per-platform points add up, and the derived tier
// and airdrop match the total. When expected is non-nil each total must
// also match it.
func Verify(entries []repository.Entry, expected map[string]int64) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for i, e := range entries {
		if e.Rank != i+1 {
			fail("entry %d (%s): rank %d, want %d", i, e.UserID, e.Rank, i+1)
		}
		if i > 0 && e.TotalScore > entries[i-1].TotalScore {
			fail("entry %d (%s): total %d above previous %d", i, e.UserID, e.TotalScore, entries[i-1].TotalScore)
		}

		var sum int64
		for _, pts := range e.Platforms {
			sum += pts
		}
		if sum != e.TotalScore {
			fail("%s: platforms sum to %d, total is %d", e.UserID, sum, e.TotalScore)
		}
		if want := reward.ClassifyTier(e.TotalScore); e.Tier != want {
			fail("%s: tier %s, want %s for %d", e.UserID, e.Tier, want, e.TotalScore)
		}
		if want := reward.CalculateAirdrop(e.TotalScore); e.AirdropEligible != want {
			fail("%s: airdrop %d, want %d for %d", e.UserID, e.AirdropEligible, want, e.TotalScore)
		}
		if expected != nil {
			if want, ok := expected[e.UserID]; !ok {
				fail("%s: not generated by this run", e.UserID)
			} else if e.TotalScore != want {
				fail("%s: total %d, want %d", e.UserID, e.TotalScore, want)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
	}
	return nil
}
