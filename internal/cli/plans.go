package cli

import (
	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the savings plan catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Plans(cmd.Context())
	},
}
