package report

import (
	"context"
	"fmt"
	"io"

	"github.com/guimove/capviz/internal/ledger"
)

// MarkdownReporter outputs the ledger as GitHub-flavored markdown.
type MarkdownReporter struct {
	w io.Writer
}

func (r *MarkdownReporter) Report(ctx context.Context, exp ledger.Export, meta Meta) error {
	fmt.Fprintf(r.w, "# Migration Plan\n\n")
	fmt.Fprintf(r.w, "- **Source:** %s\n", meta.Source)
	fmt.Fprintf(r.w, "- **Exported:** %s\n", exp.ExportDate.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(r.w, "- **Ratios:** cpu %g:1, memory %g:1\n", meta.Ratios.CPU, meta.Ratios.Memory)
	fmt.Fprintf(r.w, "- **Migrations:** %d\n\n", exp.TotalMigrations)

	if exp.TotalMigrations == 0 {
		fmt.Fprintf(r.w, "_No migrations planned._\n")
		return nil
	}

	fmt.Fprintf(r.w, "| # | VM | Source | Destination | Status | Time |\n")
	fmt.Fprintf(r.w, "|---|----|--------|-------------|--------|------|\n")
	for i, m := range exp.Migrations {
		fmt.Fprintf(r.w, "| %d | %s | %s / %s | %s / %s | %s | %s |\n",
			i+1, m.VMName,
			m.SourceClusterName, m.SourceHostName,
			m.DestinationClusterName, m.DestinationHostName,
			m.Status, m.Timestamp.Format("2006-01-02 15:04"),
		)
	}

	fmt.Fprintf(r.w, "\n## By cluster pair\n\n")
	fmt.Fprintf(r.w, "| Pair | Migrations |\n|------|-----------:|\n")
	for _, p := range exp.Summary.Pairs() {
		fmt.Fprintf(r.w, "| %s | %d |\n", p.Pair, p.Count)
	}
	return nil
}
