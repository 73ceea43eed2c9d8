package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/guimove/capviz/internal/orchestrator"
	"github.com/guimove/capviz/internal/persist"
	"github.com/guimove/capviz/internal/seed"
)

// addOutputFlags registers the report flags shared by the reporting commands.
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("output", "", "output format: table, json, markdown, xlsx")
	f.String("output-file", "", "write output to file instead of stdout")
}

// newOrchestrator resolves the seed source and the ledger store from the
// configuration. The returned cleanup closes the store and the output file.
func newOrchestrator(cmd *cobra.Command) (*orchestrator.Orchestrator, func(), error) {
	if cmd.Flags().Lookup("output") != nil && cmd.Flags().Changed("output") {
		cfg.Output.Format, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Lookup("output-file") != nil && cmd.Flags().Changed("output-file") {
		cfg.Output.File, _ = cmd.Flags().GetString("output-file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	source, err := seed.New(cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving seed source: %w", err)
	}
	store, err := persist.Open(cfg.Persistence)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger store: %w", err)
	}

	var w io.Writer = os.Stdout
	var out *os.File
	if cfg.Output.File != "" {
		out, err = os.Create(cfg.Output.File)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("creating output file: %w", err)
		}
		w = out
	}

	orch := orchestrator.New(source, store, cfg)
	orch.Writer = w

	cleanup := func() {
		if out != nil {
			_ = out.Close()
		}
		_ = store.Close()
	}
	return orch, cleanup, nil
}
