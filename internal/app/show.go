package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"savings-vault-engine/internal/portfolio"
	"savings-vault-engine/internal/service"
)

// Show prints the owner's positions, the portfolio summary, and the
// faucet countdown. When the ledger is unreachable it falls back to the
// snapshot cache and says so.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	eng, err := a.newEngine(store)
	if err != nil {
		return err
	}

	views, summary, liveErr := eng.svc.PositionViews(ctx)
	if liveErr != nil {
		if store == nil {
			return liveErr
		}
		var fetchedAt time.Time
		views, summary, fetchedAt, err = eng.svc.CachedViews(ctx)
		if err != nil {
			return fmt.Errorf("ledger unreachable and cache unusable: %w", liveErr)
		}
		fmt.Fprintf(os.Stdout, "ledger unreachable; showing cached snapshots from %s (not authoritative)\n",
			fetchedAt.UTC().Format(time.RFC3339))
	}

	if opts.Limit > 0 && len(views) > opts.Limit {
		views = views[:opts.Limit]
	}

	a.printPositions(views)
	a.printSummary(summary)

	if liveErr == nil {
		if faucetView, err := eng.svc.FaucetView(ctx); err == nil {
			a.printFaucet(faucetView)
		} else {
			a.Logger.Warn().Err(err).Msg("faucet view unavailable")
		}
	}
	return nil
}

func (a *App) printPositions(views []service.PositionView) {
	if len(views) == 0 {
		fmt.Fprintln(os.Stdout, "no positions found")
		return
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tState\tPrincipal\tAccrued\tPending\tValue\tDays Left\tWithdrawable")

	for _, view := range views {
		pos := view.Position
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\t%d\t%t\n",
			pos.ID,
			view.ObservedState,
			a.formatAmount(pos.Principal),
			a.formatAmount(pos.AccruedInterest),
			a.formatAmount(view.PendingInterest),
			a.formatAmount(view.CurrentValue),
			view.DaysRemaining,
			view.CanWithdraw,
		)
	}
	writer.Flush()
}

func (a *App) printSummary(summary portfolio.Summary) {
	fmt.Fprintf(os.Stdout, "\nportfolio: %d active, principal %s, accrued %s, current value %s\n",
		summary.ActiveCount,
		a.formatAmount(summary.TotalPrincipal),
		a.formatAmount(summary.TotalAccrued),
		a.formatAmount(summary.TotalCurrentValue),
	)
}

func (a *App) printFaucet(view service.FaucetView) {
	if view.CanClaim {
		fmt.Fprintln(os.Stdout, "faucet: claim available now")
	} else {
		fmt.Fprintf(os.Stdout, "faucet: next claim in %s\n",
			(time.Duration(view.SecondsUntilNextClaim) * time.Second).String())
	}
	fmt.Fprintf(os.Stdout, "faucet pool: %s distributed, %s remaining, %d users\n",
		a.formatAmount(view.Stats.Distributed),
		a.formatAmount(view.Stats.Remaining),
		view.Stats.UniqueUsers,
	)
}
