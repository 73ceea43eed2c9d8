package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show utilization and bottlenecks of the inventory",
	Long: `Loads the inventory and prints per-cluster and per-host utilization of
the active view under the configured overcommit ratios, together with the
capacity bottlenecks that cross the warning or critical thresholds.`,
	RunE: runInspect,
}

func init() {
	addOutputFlags(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = orch.Inspect(ctx)
	return err
}
