package capacity

import (
	"github.com/guimove/capviz/internal/model"
)

// RatioScenario is the outcome of evaluating an inventory under one ratio set.
type RatioScenario struct {
	Ratios      model.OvercommitRatios `json:"ratios"`
	Utilization Utilization            `json:"utilization"`
	Bottlenecks []Bottleneck           `json:"bottlenecks,omitempty"`
}

// CompareRatios evaluates the same inventory under each ratio set, in the
// order given. Ratios are normalized first.
func CompareRatios(clusters []model.Cluster, view model.ResourceView, ratios []model.OvercommitRatios) []RatioScenario {
	out := make([]RatioScenario, 0, len(ratios))
	for _, r := range ratios {
		r = r.Normalize()
		u := Compute(clusters, view, r)
		out = append(out, RatioScenario{
			Ratios:      r,
			Utilization: u,
			Bottlenecks: Assess(clusters, u),
		})
	}
	return out
}
