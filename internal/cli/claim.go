package cli

import (
	"github.com/spf13/cobra"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the test-token faucet grant",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Claim(cmd.Context())
	},
}
