package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"savings-vault-engine/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "vaultkeeper %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildDate)
	},
}
