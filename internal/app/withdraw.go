package app

import (
	"context"
	"fmt"
	"os"
)

// Withdraw exits a position: the normal path for matured positions, the
// emergency path (with penalty) for active ones.
func (a *App) Withdraw(ctx context.Context, id uint64, emergency bool) error {
	eng, err := a.newEngine(nil)
	if err != nil {
		return err
	}

	owner := eng.client.OwnerAddress()

	if emergency {
		receipt, err := eng.positions.EmergencyWithdraw(ctx, owner, id)
		if err != nil {
			return a.explainLedgerError(err)
		}
		fmt.Fprintf(os.Stdout, "position %d emergency withdrawn: payout %s (penalty %s)\n",
			id, a.formatAmount(receipt.Payout), a.formatAmount(receipt.Penalty))
		return nil
	}

	receipt, err := eng.positions.Withdraw(ctx, owner, id)
	if err != nil {
		return a.explainLedgerError(err)
	}
	fmt.Fprintf(os.Stdout, "position %d withdrawn: payout %s (principal %s + interest %s)\n",
		id,
		a.formatAmount(receipt.Payout),
		a.formatAmount(receipt.Position.Principal),
		a.formatAmount(receipt.Position.AccruedInterest),
	)
	return nil
}
