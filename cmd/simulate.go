package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/guimove/capviz/internal/orchestrator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Apply a migration plan to the inventory",
	Long: `Replays a plan of actions (moves, locks, ratio changes, undo and redo)
against the engine, then prints the resulting utilization and the migration
ledger. The ledger accumulates across runs unless --fresh is given.

Example plan:

  description: drain host-1-1
  steps:
    - type: MOVE_VMS
      vm_ids: [vm-1-1-1, vm-1-1-2]
      target_host_id: host-1-2
    - type: UNDO`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.String("plan", "", "path to plan file, YAML or JSON (required)")
	f.Bool("fresh", false, "start from an empty ledger instead of the persisted one")
	addOutputFlags(simulateCmd)

	_ = simulateCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	planPath, _ := cmd.Flags().GetString("plan")
	plan, err := orchestrator.LoadPlan(planPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("fresh") {
		plan.Fresh, _ = cmd.Flags().GetBool("fresh")
	}

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = orch.Simulate(ctx, plan)
	return err
}
