package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/guimove/capviz/internal/ledger"
)

// TableReporter outputs the ledger as a formatted terminal table.
type TableReporter struct {
	w io.Writer
}

func (r *TableReporter) Report(ctx context.Context, exp ledger.Export, meta Meta) error {
	// Header
	fmt.Fprintf(r.w, "\n")
	fmt.Fprintf(r.w, "Migration Plan\n")
	fmt.Fprintf(r.w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(r.w, "Source:      %s\n", meta.Source)
	fmt.Fprintf(r.w, "Exported:    %s\n", exp.ExportDate.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(r.w, "Ratios:      cpu %g:1, memory %g:1\n", meta.Ratios.CPU, meta.Ratios.Memory)
	fmt.Fprintf(r.w, "Migrations:  %d\n", exp.TotalMigrations)
	fmt.Fprintf(r.w, "%s\n\n", strings.Repeat("=", 60))

	if exp.TotalMigrations == 0 {
		fmt.Fprintf(r.w, "No migrations planned.\n")
		return nil
	}

	fmt.Fprintf(r.w, "%-4s %-24s %-30s %-30s %-8s\n", "#", "VM", "From", "To", "Status")
	fmt.Fprintf(r.w, "%s\n", strings.Repeat("-", 100))

	for i, m := range exp.Migrations {
		fmt.Fprintf(r.w, "%-4d %-24s %-30s %-30s %-8s\n",
			i+1,
			truncate(m.VMName, 24),
			truncate(m.SourceClusterName+"/"+m.SourceHostName, 30),
			truncate(m.DestinationClusterName+"/"+m.DestinationHostName, 30),
			m.Status,
		)
	}
	fmt.Fprintf(r.w, "%s\n", strings.Repeat("-", 100))

	fmt.Fprintf(r.w, "\nBy cluster pair:\n")
	for _, p := range exp.Summary.Pairs() {
		fmt.Fprintf(r.w, "  %-50s %d\n", p.Pair, p.Count)
	}
	fmt.Fprintf(r.w, "\n")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
