package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guimove/capviz/internal/placement"
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Recommend target hosts for VMs",
	Long: `Packs the selected VMs onto the hosts of the target clusters and prints
where each one should go. VMs are selected by id, by draining hosts, or both.
Host capacity follows the overcommit ratios, less the HA reserve.

Strategies:
  first-fit     first host in inventory order with room
  best-fit      host left most tightly packed
  balanced      host with the lowest current utilization
  performance   host left with the most headroom

With --apply the moves are dispatched and saved to the migration ledger.
With --optimize every unlocked VM of the target clusters is re-placed with
the balanced strategy.`,
	Example: `  capviz place --drain esx-04 --strategy balanced
  capviz place --vms vm-12,vm-31 --clusters cluster-dr --ha-policy n+1
  capviz place --optimize --clusters cluster-prod --apply`,
	RunE: runPlace,
}

func init() {
	f := placeCmd.Flags()
	f.StringSlice("vms", nil, "VM ids to place")
	f.StringSlice("drain", nil, "host ids to empty; their VMs are placed elsewhere")
	f.StringSlice("clusters", nil, "target cluster ids (default: all visible clusters)")
	f.String("strategy", "", "first-fit, best-fit, balanced or performance (default from config)")
	f.Bool("optimize", false, "re-place every unlocked VM of the target clusters")
	f.Bool("apply", false, "dispatch the moves and save them to the ledger")
	addOutputFlags(placeCmd)

	rootCmd.AddCommand(placeCmd)
}

func runPlace(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	f := cmd.Flags()

	var req placement.Request
	req.VMIDs, _ = f.GetStringSlice("vms")
	req.DrainHostIDs, _ = f.GetStringSlice("drain")
	req.TargetClusterIDs, _ = f.GetStringSlice("clusters")
	raw, _ := f.GetString("strategy")
	optimize, _ := f.GetBool("optimize")
	apply, _ := f.GetBool("apply")

	if raw != "" {
		s, err := placement.ParseStrategy(raw)
		if err != nil {
			return err
		}
		req.Strategy = s
	}
	req.Optimize = optimize
	if !optimize && len(req.VMIDs) == 0 && len(req.DrainHostIDs) == 0 {
		return fmt.Errorf("select VMs with --vms or --drain, or use --optimize")
	}

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, _, err := orch.Place(ctx, req, apply)
	if err != nil {
		return err
	}
	if !res.Feasible() {
		logger.Sugar().Warnw("some VMs could not be placed", "unplaced", res.Summary.Unplaced)
	}
	return nil
}
