package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/guimove/capviz/internal/report"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the partition layout of the inventory as JSON",
	Long: `Computes the radial partition layout (cluster, host, VM rings) of the
inventory for the active view and prints it as JSON. With --focus the
layout is zoomed to the given cluster, host or VM.`,
	RunE: runLayout,
}

func init() {
	f := layoutCmd.Flags()
	f.String("focus", "", "id of the node to zoom to")
	f.Float64("width", 0, "canvas width (default from config)")
	f.Float64("height", 0, "canvas height (default from config)")
	f.String("output-file", "", "write output to file instead of stdout")

	rootCmd.AddCommand(layoutCmd)
}

func runLayout(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cmd.Flags().Changed("width") {
		cfg.Layout.Width, _ = cmd.Flags().GetFloat64("width")
	}
	if cmd.Flags().Changed("height") {
		cfg.Layout.Height, _ = cmd.Flags().GetFloat64("height")
	}

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	focus, _ := cmd.Flags().GetString("focus")
	l, err := orch.Layout(ctx, focus)
	if err != nil {
		return err
	}
	return report.WriteJSON(orch.Writer, l)
}
