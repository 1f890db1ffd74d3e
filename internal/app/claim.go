package app

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Claim requests the faucet grant for the configured account.
func (a *App) Claim(ctx context.Context) error {
	eng, err := a.newEngine(nil)
	if err != nil {
		return err
	}

	owner := eng.client.OwnerAddress()

	granted, err := eng.limiter.Claim(ctx, owner)
	if err != nil {
		return a.explainLedgerError(err)
	}

	fmt.Fprintf(os.Stdout, "faucet claim confirmed: %s granted to %s\n", a.formatAmount(granted), owner)

	remaining, err := eng.limiter.NextClaim(ctx, owner)
	if err == nil && remaining > 0 {
		fmt.Fprintf(os.Stdout, "next claim available in %s\n", remaining.Round(time.Second))
	}
	return nil
}
