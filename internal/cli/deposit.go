package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	depositAmount string
	depositPlan   uint32
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Open a new time-locked savings position",
	RunE: func(cmd *cobra.Command, args []string) error {
		if depositAmount == "" {
			return errors.New("--amount is required")
		}
		if depositPlan == 0 {
			return errors.New("--plan is required")
		}
		return getApp().Deposit(cmd.Context(), depositAmount, depositPlan)
	},
}

func init() {
	depositCmd.Flags().StringVar(&depositAmount, "amount", "", "Deposit amount in tokens")
	depositCmd.Flags().Uint32Var(&depositPlan, "plan", 0, "Plan id (lock duration in days)")
}
