package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	withdrawID        uint64
	withdrawEmergency bool
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw a matured position, or exit early with --emergency",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("id") {
			return errors.New("--id is required")
		}
		return getApp().Withdraw(cmd.Context(), withdrawID, withdrawEmergency)
	},
}

func init() {
	withdrawCmd.Flags().Uint64Var(&withdrawID, "id", 0, "Position id")
	withdrawCmd.Flags().BoolVar(&withdrawEmergency, "emergency", false, "Exit before maturity and pay the penalty")
}
