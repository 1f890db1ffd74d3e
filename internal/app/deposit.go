package app

import (
	"context"
	"fmt"
	"os"

	"savings-vault-engine/internal/ledger"
)

// Deposit validates a deposit request, runs the approve-then-deposit
// sequence, and prints the created position.
func (a *App) Deposit(ctx context.Context, amountStr string, planID uint32) error {
	amount, err := a.parseAmount(amountStr)
	if err != nil {
		return err
	}

	eng, err := a.newEngine(nil)
	if err != nil {
		return err
	}

	if err := eng.svc.SyncPlans(ctx); err != nil {
		return err
	}

	pos, err := eng.positions.Create(ctx, eng.client.OwnerAddress(), amount, planID)
	if err != nil {
		return a.explainLedgerError(err)
	}

	fmt.Fprintf(os.Stdout, "position %d created: %s locked until %s (plan %d, %d bps)\n",
		pos.ID,
		a.formatAmount(pos.Principal),
		pos.MaturityTime.Format("2006-01-02 15:04 MST"),
		pos.PlanID,
		pos.RateBps,
	)
	return nil
}

// explainLedgerError appends the retry guidance the error taxonomy
// distinguishes: retry unchanged, check outcome first, or fix and retry.
func (a *App) explainLedgerError(err error) error {
	switch {
	case ledger.IsRetryable(err):
		return fmt.Errorf("%w (submission failed; safe to retry unchanged)", err)
	case ledger.OutcomeUnknown(err):
		return fmt.Errorf("%w (outcome unknown; check the ledger before retrying)", err)
	default:
		return err
	}
}
