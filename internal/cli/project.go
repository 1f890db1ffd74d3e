package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"savings-vault-engine/internal/app"
)

var (
	projectAmount    string
	projectPlan      uint32
	projectPNGPath   string
	projectCSVPath   string
	projectMaxPoints int
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Export a pre-deposit accrual projection as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectAmount == "" || projectPlan == 0 {
			return errors.New("--amount 与 --plan 必须配置")
		}
		return getApp().Project(cmd.Context(), app.ProjectOptions{
			Amount:    projectAmount,
			PlanID:    projectPlan,
			PNGPath:   projectPNGPath,
			CSVPath:   projectCSVPath,
			MaxPoints: projectMaxPoints,
		})
	},
}

func init() {
	projectCmd.Flags().StringVar(&projectAmount, "amount", "", "Hypothetical deposit amount in tokens")
	projectCmd.Flags().Uint32Var(&projectPlan, "plan", 0, "Plan id (lock duration in days)")
	projectCmd.Flags().StringVar(&projectPNGPath, "png", "", "Path to write PNG chart")
	projectCmd.Flags().StringVar(&projectCSVPath, "csv", "", "Path to write CSV data")
	projectCmd.Flags().IntVar(&projectMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
