package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guimove/capviz/internal/model"
)

var whatifCmd = &cobra.Command{
	Use:   "what-if",
	Short: "Compare overcommit ratio sets side by side",
	Long: `Computes the utilization of the inventory under several CPU:memory
overcommit ratio sets and compares them directly. Useful for deciding how
far a cluster can be consolidated before it hits its thresholds.`,
	Example: `  capviz what-if --ratios 2:1,4:1.5,8:2
  capviz what-if --ratios 1:1,4:1.5 --view memory --output markdown`,
	RunE: runWhatIf,
}

func init() {
	f := whatifCmd.Flags()
	f.StringSlice("ratios", []string{"1:1", "2:1", "4:1.5"}, "ratio sets as cpu:memory")
	addOutputFlags(whatifCmd)

	rootCmd.AddCommand(whatifCmd)
}

func runWhatIf(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, _ := cmd.Flags().GetStringSlice("ratios")
	ratios, err := parseRatios(raw)
	if err != nil {
		return err
	}

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = orch.WhatIf(ctx, ratios)
	return err
}

// parseRatios parses "cpu:memory" pairs. A bare number applies to CPU only.
func parseRatios(raw []string) ([]model.OvercommitRatios, error) {
	out := make([]model.OvercommitRatios, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cpuStr, memStr, hasMem := strings.Cut(s, ":")
		cpu, err := strconv.ParseFloat(cpuStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ratio set %q: %w", s, err)
		}
		r := model.OvercommitRatios{CPU: cpu, Memory: 1}
		if hasMem {
			if r.Memory, err = strconv.ParseFloat(memStr, 64); err != nil {
				return nil, fmt.Errorf("invalid ratio set %q: %w", s, err)
			}
		}
		if r.CPU <= 0 || r.Memory <= 0 {
			return nil, fmt.Errorf("invalid ratio set %q: ratios must be positive", s)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no ratio sets given")
	}
	return out, nil
}
