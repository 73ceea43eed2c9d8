package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/model"
)

// UtilizationView is what inspect and simulate print about the model.
type UtilizationView struct {
	Utilization capacity.Utilization  `json:"utilization"`
	Bottlenecks []capacity.Bottleneck `json:"bottlenecks"`
	Headroom    []capacity.Headroom   `json:"headroom,omitempty"`
	Clusters    []model.Cluster       `json:"-"`
}

// WriteUtilization renders per-cluster utilization and bottlenecks.
func WriteUtilization(w io.Writer, format string, v UtilizationView) error {
	switch format {
	case "json":
		return WriteJSON(w, v)
	case "xlsx":
		return writeUtilizationXLSX(w, v)
	case "markdown":
		writeUtilizationMarkdown(w, v)
	default:
		writeUtilizationTable(w, v)
	}
	return nil
}

func writeUtilizationTable(w io.Writer, v UtilizationView) {
	u := v.Utilization
	unit := u.View.Unit()

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Capacity (%s, ratios %s)\n", u.View, u.Ratios)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "Clusters:    %d\n", u.Overall.TotalClusters)
	fmt.Fprintf(w, "Hosts:       %d\n", u.Overall.TotalHosts)
	fmt.Fprintf(w, "VMs:         %d\n", u.Overall.TotalVMs)
	fmt.Fprintf(w, "Avg util:    %.1f%%\n", u.Overall.AvgUtilizationPct)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 60))

	fmt.Fprintf(w, "%-24s %6s %12s %12s %7s %s\n", "Cluster", "Hosts", "Capacity", "Allocated", "Util%", "Notes")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))
	for _, c := range model.VisibleClusters(v.Clusters) {
		cu := u.PerCluster[c.ID]
		notes := ""
		if cu.Overcommitted {
			notes = "overcommitted"
		}
		fmt.Fprintf(w, "%-24s %6d %9.1f %-2s %9.1f %-2s %6.1f%% %s\n",
			truncate(c.Name, 24), len(c.Hosts),
			cu.Capacity, unit, cu.Allocated, unit, cu.UtilizationPct, notes)
	}
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))

	if len(v.Bottlenecks) > 0 {
		fmt.Fprintf(w, "\nBottlenecks:\n")
		for _, b := range v.Bottlenecks {
			fmt.Fprintf(w, "  [%s] %s\n", b.Severity, b.Message)
			fmt.Fprintf(w, "      %s\n", b.Recommendation)
		}
	}

	if len(v.Headroom) > 0 {
		fmt.Fprintf(w, "\nHA headroom (%s):\n", v.Headroom[0].Policy)
		fmt.Fprintf(w, "%-24s %12s %12s %12s %s\n", "Cluster", "Reserved", "Usable", "Available", "")
		for _, hr := range v.Headroom {
			status := "ok"
			if !hr.Sufficient {
				status = "INSUFFICIENT"
			}
			fmt.Fprintf(w, "%-24s %9.1f %-2s %9.1f %-2s %9.1f %-2s %s\n",
				truncate(hr.ClusterName, 24), hr.HAReserved, unit, hr.Usable, unit, hr.Available, unit, status)
		}
	}
	fmt.Fprintf(w, "\n")
}

func writeUtilizationMarkdown(w io.Writer, v UtilizationView) {
	u := v.Utilization
	fmt.Fprintf(w, "# Capacity (%s)\n\n", u.View)
	fmt.Fprintf(w, "Ratios %s, %d clusters, %d hosts, %d VMs, average utilization %.1f%%.\n\n",
		u.Ratios, u.Overall.TotalClusters, u.Overall.TotalHosts, u.Overall.TotalVMs, u.Overall.AvgUtilizationPct)

	fmt.Fprintf(w, "| Cluster | Hosts | Capacity (%[1]s) | Allocated (%[1]s) | Util%% |\n", u.View.Unit())
	fmt.Fprintf(w, "|---------|------:|---------:|----------:|------:|\n")
	for _, c := range model.VisibleClusters(v.Clusters) {
		cu := u.PerCluster[c.ID]
		fmt.Fprintf(w, "| %s | %d | %.1f | %.1f | %.1f |\n", c.Name, len(c.Hosts), cu.Capacity, cu.Allocated, cu.UtilizationPct)
	}

	if len(v.Bottlenecks) > 0 {
		fmt.Fprintf(w, "\n## Bottlenecks\n\n")
		for _, b := range v.Bottlenecks {
			fmt.Fprintf(w, "- **%s** %s. %s\n", b.Severity, b.Message, b.Recommendation)
		}
	}

	if len(v.Headroom) > 0 {
		fmt.Fprintf(w, "\n## HA headroom (%s)\n\n", v.Headroom[0].Policy)
		fmt.Fprintf(w, "| Cluster | Reserved | Usable | Available | Sufficient |\n")
		fmt.Fprintf(w, "|---------|---------:|-------:|----------:|:----------:|\n")
		for _, hr := range v.Headroom {
			fmt.Fprintf(w, "| %s | %.1f | %.1f | %.1f | %t |\n", hr.ClusterName, hr.HAReserved, hr.Usable, hr.Available, hr.Sufficient)
		}
	}
}

func writeUtilizationXLSX(w io.Writer, v UtilizationView) error {
	f := excelize.NewFile()
	defer f.Close()

	u := v.Utilization
	var clusterRows, hostRows [][]any
	for _, c := range model.VisibleClusters(v.Clusters) {
		cu := u.PerCluster[c.ID]
		clusterRows = append(clusterRows, []any{c.ID, c.Name, len(c.Hosts), c.VMCount(), cu.Capacity, cu.Allocated, cu.UtilizationPct, cu.Overcommitted})
		for _, h := range c.Hosts {
			hu := u.PerHost[h.ID]
			hostRows = append(hostRows, []any{c.Name, h.ID, h.Name, len(h.VMs), hu.Capacity, hu.Allocated, capacity.Percent(hu.Allocated, hu.Capacity)})
		}
	}

	unit := u.View.Unit()
	if err := writeSheet(f, SheetClusters,
		[]string{"Cluster ID", "Cluster", "Hosts", "VMs", "Capacity (" + unit + ")", "Allocated (" + unit + ")", "Utilization %", "Overcommitted"},
		clusterRows); err != nil {
		return err
	}
	if err := writeSheet(f, SheetHosts,
		[]string{"Cluster", "Host ID", "Host", "VMs", "Capacity (" + unit + ")", "Allocated (" + unit + ")", "Utilization %"},
		hostRows); err != nil {
		return err
	}
	return finishWorkbook(f, SheetClusters, w)
}

// WriteScenarios renders a ratio comparison.
func WriteScenarios(w io.Writer, format string, clusters []model.Cluster, scenarios []capacity.RatioScenario) error {
	if format == "json" {
		return WriteJSON(w, scenarios)
	}

	visible := model.VisibleClusters(clusters)
	fmt.Fprintf(w, "\n%-14s", "Ratios")
	for _, c := range visible {
		fmt.Fprintf(w, " %14s", truncate(c.Name, 14))
	}
	fmt.Fprintf(w, " %9s %s\n", "Avg%", "Bottlenecks")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 14+15*len(visible)+24))

	for _, s := range scenarios {
		fmt.Fprintf(w, "%-14s", s.Ratios.String())
		for _, c := range visible {
			fmt.Fprintf(w, " %13.1f%%", s.Utilization.PerCluster[c.ID].UtilizationPct)
		}
		critical := 0
		for _, b := range s.Bottlenecks {
			if b.Severity == capacity.SeverityCritical {
				critical++
			}
		}
		fmt.Fprintf(w, " %8.1f%% %d (%d critical)\n", s.Utilization.Overall.AvgUtilizationPct, len(s.Bottlenecks), critical)
	}
	fmt.Fprintf(w, "\n")
	return nil
}
