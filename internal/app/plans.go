package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Plans prints the savings-plan catalog.
func (a *App) Plans(ctx context.Context) error {
	eng, err := a.newEngine(nil)
	if err != nil {
		return err
	}

	if err := eng.svc.SyncPlans(ctx); err != nil {
		return err
	}

	plans := eng.plans.List()
	if len(plans) == 0 {
		fmt.Fprintln(os.Stdout, "no plans configured")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Plan\tDuration\tRate (bps)\tMin\tMax\tActive")
	for _, p := range plans {
		fmt.Fprintf(writer, "%d\t%dd\t%d\t%s\t%s\t%t\n",
			p.ID,
			p.DurationDays,
			p.RateBps,
			a.formatAmount(p.MinAmount),
			a.formatAmount(p.MaxAmount),
			p.Active,
		)
	}
	writer.Flush()
	return nil
}
