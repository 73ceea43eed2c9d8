package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the persisted migration ledger",
	Long: `Reads the migration ledger from the configured store and renders it as
a migration plan: a table, JSON, markdown, or an Excel workbook with one
sheet per migration, cluster and host summary.`,
	Example: `  capviz export --output xlsx --output-file migrations.xlsx
  capviz export --store sqlite --store-path .capviz/capviz.db --output json`,
	RunE: runExport,
}

var clearLedger bool

func init() {
	addOutputFlags(exportCmd)
	exportCmd.Flags().BoolVar(&clearLedger, "clear", false, "clear the persisted ledger after exporting")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, cleanup, err := newOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := orch.Export(ctx); err != nil {
		return err
	}
	if clearLedger {
		return orch.ClearLedger(ctx)
	}
	return nil
}
