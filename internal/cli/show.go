package cli

import (
	"github.com/spf13/cobra"

	"savings-vault-engine/internal/app"
)

var showLimit int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show positions, portfolio summary, and faucet countdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), app.ShowOptions{Limit: showLimit})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Maximum positions to display (0 = all)")
}
