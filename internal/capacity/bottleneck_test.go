package capacity

import (
	"testing"

	"github.com/guimove/capviz/internal/model"
)

func TestAssess(t *testing.T) {
	clusters := []model.Cluster{
		{ID: "ok", Name: "OK", IsVisible: true, Hosts: []model.Host{makeHost("h1", "ok", 100, 100, 100, makeVM("a", "h1", "ok", 50, 1, 1))}},
		{ID: "warn", Name: "Warn", IsVisible: true, Hosts: []model.Host{makeHost("h2", "warn", 100, 100, 100, makeVM("b", "h2", "warn", 85, 1, 1))}},
		{ID: "crit", Name: "Crit", IsVisible: true, Hosts: []model.Host{makeHost("h3", "crit", 100, 100, 100, makeVM("c", "h3", "crit", 95, 1, 1))}},
		{ID: "over", Name: "Over", IsVisible: true, Hosts: []model.Host{makeHost("h4", "over", 10, 100, 100, makeVM("d", "h4", "over", 20, 1, 1))}},
		{ID: "hidden", Name: "Hidden", IsVisible: false, Hosts: []model.Host{makeHost("h5", "hidden", 10, 100, 100, makeVM("e", "h5", "hidden", 20, 1, 1))}},
	}

	u := Compute(clusters, model.ViewCPU, model.OvercommitRatios{CPU: 1, Memory: 1})
	got := Assess(clusters, u)

	if len(got) != 3 {
		t.Fatalf("expected 3 bottlenecks, got %d: %+v", len(got), got)
	}
	if got[0].ClusterID != "over" || got[0].Severity != SeverityCritical {
		t.Errorf("first bottleneck = %s/%s, want over/critical", got[0].ClusterID, got[0].Severity)
	}
	if got[1].ClusterID != "crit" || got[1].Severity != SeverityCritical {
		t.Errorf("second bottleneck = %s/%s, want crit/critical", got[1].ClusterID, got[1].Severity)
	}
	if got[2].ClusterID != "warn" || got[2].Severity != SeverityWarning {
		t.Errorf("third bottleneck = %s/%s, want warn/warning", got[2].ClusterID, got[2].Severity)
	}
	for _, b := range got {
		if b.Message == "" || b.Recommendation == "" {
			t.Errorf("bottleneck %s missing message or recommendation", b.ClusterID)
		}
	}
}

func TestAssess_StorageThresholds(t *testing.T) {
	clusters := []model.Cluster{
		{ID: "s", IsVisible: true, Hosts: []model.Host{makeHost("h", "s", 1, 1, 100, makeVM("a", "h", "s", 0, 0, 75))}},
	}
	u := Compute(clusters, model.ViewStorage, model.DefaultRatios())
	got := Assess(clusters, u)
	if len(got) != 1 || got[0].Severity != SeverityWarning {
		t.Fatalf("expected one storage warning at 75%%, got %+v", got)
	}
}

func TestCompareRatios(t *testing.T) {
	clusters := []model.Cluster{
		{ID: "c", IsVisible: true, Hosts: []model.Host{makeHost("h", "c", 10, 10, 10, makeVM("a", "h", "c", 19, 1, 1))}},
	}

	scenarios := CompareRatios(clusters, model.ViewCPU, []model.OvercommitRatios{
		{CPU: 1, Memory: 1},
		{CPU: 4, Memory: 1},
		{CPU: 0.5, Memory: 1},
	})

	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(scenarios))
	}
	if scenarios[0].Utilization.PerCluster["c"].UtilizationPct != 100 {
		t.Errorf("1:1 should saturate, got %v", scenarios[0].Utilization.PerCluster["c"].UtilizationPct)
	}
	if len(scenarios[1].Bottlenecks) != 0 {
		t.Errorf("4:1 should have no bottlenecks at 47.5%%, got %+v", scenarios[1].Bottlenecks)
	}
	if scenarios[2].Ratios.CPU != 1 {
		t.Errorf("ratio below 1 should normalize to 1, got %v", scenarios[2].Ratios.CPU)
	}
}
