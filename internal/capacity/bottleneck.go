package capacity

import (
	"fmt"
	"sort"

	"github.com/guimove/capviz/internal/model"
)

// Severity grades a bottleneck.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Thresholds are the utilization percentages at which a cluster is flagged.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// DefaultThresholds returns the thresholds used for a view.
func DefaultThresholds(view model.ResourceView) Thresholds {
	if view == model.ViewStorage {
		return Thresholds{Warning: 70, Critical: 85}
	}
	return Thresholds{Warning: 80, Critical: 90}
}

// Bottleneck flags a visible cluster that is close to or past its capacity.
type Bottleneck struct {
	ClusterID      string             `json:"cluster_id"`
	ClusterName    string             `json:"cluster_name"`
	View           model.ResourceView `json:"view"`
	Severity       Severity           `json:"severity"`
	UtilizationPct float64            `json:"utilization_pct"`
	Message        string             `json:"message"`
	Recommendation string             `json:"recommendation"`
}

// Assess returns the bottlenecks of the visible clusters in u, critical first,
// then by utilization descending.
func Assess(clusters []model.Cluster, u Utilization) []Bottleneck {
	th := DefaultThresholds(u.View)

	var out []Bottleneck
	for i := range clusters {
		c := &clusters[i]
		cu, ok := u.PerCluster[c.ID]
		if !ok || (cu.Capacity <= 0 && cu.Allocated <= 0) {
			continue
		}

		b := Bottleneck{
			ClusterID:      c.ID,
			ClusterName:    c.Name,
			View:           u.View,
			UtilizationPct: cu.UtilizationPct,
		}

		switch {
		case cu.Overcommitted:
			b.Severity = SeverityCritical
			b.Message = fmt.Sprintf("%s allocation %.1f %s exceeds effective capacity %.1f %s",
				u.View, cu.Allocated, u.View.Unit(), cu.Capacity, u.View.Unit())
			b.Recommendation = recommendation(u.View, SeverityCritical)
		case cu.UtilizationPct > th.Critical:
			b.Severity = SeverityCritical
			b.Message = fmt.Sprintf("%s capacity insufficient: %.1f%% utilization (%.1f of %.1f %s)",
				u.View, cu.UtilizationPct, cu.Allocated, cu.Capacity, u.View.Unit())
			b.Recommendation = recommendation(u.View, SeverityCritical)
		case cu.UtilizationPct > th.Warning:
			b.Severity = SeverityWarning
			b.Message = fmt.Sprintf("%s capacity approaching limit: %.1f%%", u.View, cu.UtilizationPct)
			b.Recommendation = recommendation(u.View, SeverityWarning)
		default:
			continue
		}

		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity == SeverityCritical
		}
		return out[i].UtilizationPct > out[j].UtilizationPct
	})
	return out
}

func recommendation(view model.ResourceView, sev Severity) string {
	switch view {
	case model.ViewCPU:
		if sev == SeverityCritical {
			return "Add CPU cores, move VMs to another cluster, or raise the CPU overcommit ratio"
		}
		return "Consider adding CPU headroom for growth"
	case model.ViewMemory:
		if sev == SeverityCritical {
			return "Add memory, move VMs to another cluster, or raise the memory overcommit ratio"
		}
		return "Consider adding memory headroom"
	default:
		if sev == SeverityCritical {
			return "Add storage capacity"
		}
		return "Plan for storage expansion"
	}
}
