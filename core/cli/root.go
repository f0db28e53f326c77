package cli

import (
	"github.com/spf13/cobra"

	"github.com/emenda-labs/relevo/pkg/logging"
)

// NewRootCmd creates the top-level relevo command.
func NewRootCmd(version string) *cobra.Command {
	var verbosity int

	cmd := &cobra.Command{
		Use:   "relevo",
		Short: "Rule-driven dependency range updater",
		Long:  "Relevo updates package.json dependency ranges in bounded batches, following per-pattern rules for how far and how many packages may move at once.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
		},
	}

	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	cmd.Version = version

	return cmd
}
