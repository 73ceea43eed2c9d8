package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/guimove/capviz/internal/placement"
)

// WritePlacement renders a placement recommendation.
func WritePlacement(w io.Writer, format string, res *placement.Result) error {
	switch format {
	case "json":
		return WriteJSON(w, res)
	case "xlsx":
		return writePlacementXLSX(w, res)
	case "markdown":
		writePlacementMarkdown(w, res)
	default:
		writePlacementTable(w, res)
	}
	return nil
}

func writePlacementTable(w io.Writer, res *placement.Result) {
	s := res.Summary
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Placement (%s)\n", s.Strategy)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "VMs:         %d placed, %d unplaced, %d moving\n", s.Placed, s.Unplaced, s.Moves)
	fmt.Fprintf(w, "Hosts used:  %d (avg util %.1f%%)\n", s.HostsUsed, s.AvgHostUtilizationPct)
	fmt.Fprintf(w, "Balance:     %.2f (%d stranded hosts)\n", s.ResourceBalanceScore, s.StrandedHosts)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 60))

	if len(res.Placements) > 0 {
		fmt.Fprintf(w, "%-24s %-20s %-20s %6s %8s %7s\n", "VM", "From", "To", "vCPU", "Mem GB", "Score")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 90))
		for _, p := range res.Placements {
			to := p.TargetHostID
			if !p.Moves() {
				to = "(stays)"
			}
			fmt.Fprintf(w, "%-24s %-20s %-20s %6.1f %8.1f %6.1f\n",
				truncate(p.VMName, 24), truncate(p.SourceHostID, 20), truncate(to, 20), p.CPU, p.MemoryGB, p.Score)
		}
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 90))
	}

	if len(res.Unplaced) > 0 {
		fmt.Fprintf(w, "\nUnplaced:\n")
		for _, u := range res.Unplaced {
			fmt.Fprintf(w, "  %s on %s: %s\n", u.VMName, u.HostID, u.Reason)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, msg := range res.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	fmt.Fprintf(w, "\n")
}

func writePlacementMarkdown(w io.Writer, res *placement.Result) {
	s := res.Summary
	fmt.Fprintf(w, "# Placement (%s)\n\n", s.Strategy)
	fmt.Fprintf(w, "%d of %d VMs placed on %d hosts, %d moving, average utilization %.1f%%.\n\n",
		s.Placed, s.TotalVMs, s.HostsUsed, s.Moves, s.AvgHostUtilizationPct)

	fmt.Fprintf(w, "| VM | Source host | Target host | vCPU | Memory GB | Score |\n")
	fmt.Fprintf(w, "|----|-------------|-------------|-----:|----------:|------:|\n")
	for _, p := range res.Placements {
		fmt.Fprintf(w, "| %s | %s | %s | %.1f | %.1f | %.1f |\n", p.VMName, p.SourceHostID, p.TargetHostID, p.CPU, p.MemoryGB, p.Score)
	}

	if len(res.Unplaced) > 0 {
		fmt.Fprintf(w, "\n## Unplaced\n\n")
		for _, u := range res.Unplaced {
			fmt.Fprintf(w, "- %s (%s): %s\n", u.VMName, u.HostID, u.Reason)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "\n## Warnings\n\n")
		for _, msg := range res.Warnings {
			fmt.Fprintf(w, "- %s\n", msg)
		}
	}
}

func writePlacementXLSX(w io.Writer, res *placement.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := make([][]any, 0, len(res.Placements))
	for _, p := range res.Placements {
		rows = append(rows, []any{
			p.VMID, p.VMName, p.SourceClusterID, p.SourceHostID,
			p.TargetClusterID, p.TargetHostID, p.CPU, p.MemoryGB, p.StorageGB, p.Score, p.Moves(),
		})
	}
	if err := writeSheet(f, SheetPlacements,
		[]string{"VM ID", "VM", "Source Cluster", "Source Host", "Target Cluster", "Target Host",
			"vCPU", "Memory GB", "Storage GB", "Score", "Moves"},
		rows); err != nil {
		return err
	}

	unplaced := make([][]any, 0, len(res.Unplaced))
	for _, u := range res.Unplaced {
		unplaced = append(unplaced, []any{u.VMID, u.VMName, u.HostID, u.Reason})
	}
	if err := writeSheet(f, SheetUnplaced, []string{"VM ID", "VM", "Host", "Reason"}, unplaced); err != nil {
		return err
	}
	return finishWorkbook(f, SheetPlacements, w)
}
