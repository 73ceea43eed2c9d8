package capacity

import (
	"math"
	"testing"

	"github.com/guimove/capviz/internal/model"
)

func makeVM(id, hostID, clusterID string, cpu, memGB, storGB float64) model.VM {
	return model.VM{
		ID: id, Name: id, HostID: hostID, ClusterID: clusterID,
		AllocatedCPU: cpu, AllocatedMemoryGB: memGB, ProvisionedStorageGB: storGB,
	}
}

func makeHost(id, clusterID string, cores, memGB, storGB float64, vms ...model.VM) model.Host {
	return model.Host{
		ID: id, Name: id, ClusterID: clusterID,
		TotalCPUCores: cores, TotalMemoryGB: memGB, TotalStorageGB: storGB,
		VMs: vms,
	}
}

func TestCompute_ExampleHost(t *testing.T) {
	// 48 cores at 3:1, VMs of 10 and 20 vCPU
	clusters := []model.Cluster{{
		ID: "c1", IsVisible: true,
		Hosts: []model.Host{
			makeHost("h1", "c1", 48, 256, 1000,
				makeVM("vm-1", "h1", "c1", 10, 8, 50),
				makeVM("vm-2", "h1", "c1", 20, 8, 50),
			),
		},
	}}

	u := Compute(clusters, model.ViewCPU, model.OvercommitRatios{CPU: 3, Memory: 1})

	hu := u.PerHost["h1"]
	if hu.Capacity != 144 {
		t.Errorf("host capacity = %v, want 144", hu.Capacity)
	}
	if hu.Allocated != 30 {
		t.Errorf("host allocated = %v, want 30", hu.Allocated)
	}

	cu := u.PerCluster["c1"]
	if math.Abs(cu.UtilizationPct-20.833) > 0.01 {
		t.Errorf("cluster utilization = %v, want ~20.8", cu.UtilizationPct)
	}
	if u.Overall.TotalVMs != 2 || u.Overall.TotalHosts != 1 || u.Overall.TotalClusters != 1 {
		t.Errorf("overall = %+v", u.Overall)
	}
}

func TestCompute_StorageIgnoresRatios(t *testing.T) {
	clusters := []model.Cluster{{
		ID: "c1", IsVisible: true,
		Hosts: []model.Host{makeHost("h1", "c1", 8, 64, 1000, makeVM("vm-1", "h1", "c1", 1, 1, 250))},
	}}

	u := Compute(clusters, model.ViewStorage, model.OvercommitRatios{CPU: 8, Memory: 8})
	if got := u.PerHost["h1"].Capacity; got != 1000 {
		t.Errorf("storage capacity = %v, want 1000", got)
	}
	if got := u.PerCluster["c1"].UtilizationPct; got != 25 {
		t.Errorf("storage utilization = %v, want 25", got)
	}
}

func TestCompute_AllocatedMatchesVMSum(t *testing.T) {
	h := makeHost("h1", "c1", 16, 128, 500,
		makeVM("a", "h1", "c1", 1.5, 3, 7),
		makeVM("b", "h1", "c1", 2.25, 5, 11),
		makeVM("c", "h1", "c1", 4, 13, 17),
	)
	clusters := []model.Cluster{{ID: "c1", IsVisible: true, Hosts: []model.Host{h}}}

	for _, view := range []model.ResourceView{model.ViewCPU, model.ViewMemory, model.ViewStorage} {
		var want float64
		for _, vm := range h.VMs {
			want += vm.Amount(view)
		}
		u := Compute(clusters, view, model.DefaultRatios())
		if got := u.PerHost["h1"].Allocated; got != want {
			t.Errorf("%s allocated = %v, want %v", view, got, want)
		}
	}
}

func TestCompute_ZeroCapacityCluster(t *testing.T) {
	clusters := []model.Cluster{
		{ID: "empty", IsVisible: true},
		{ID: "zero", IsVisible: true, Hosts: []model.Host{makeHost("h0", "zero", 0, 0, 0, makeVM("vm", "h0", "zero", 4, 4, 4))}},
	}

	u := Compute(clusters, model.ViewCPU, model.DefaultRatios())
	for _, id := range []string{"empty", "zero"} {
		if got := u.PerCluster[id].UtilizationPct; got != 0 {
			t.Errorf("cluster %s utilization = %v, want 0", id, got)
		}
	}
	if !u.PerCluster["zero"].Overcommitted {
		t.Error("expected zero-capacity cluster with VMs to be overcommitted")
	}
}

func TestCompute_ClampsAndBounds(t *testing.T) {
	clusters := []model.Cluster{{
		ID: "c1", IsVisible: true,
		Hosts: []model.Host{makeHost("h1", "c1", 2, 4, 10, makeVM("vm", "h1", "c1", 100, 100, 100))},
	}}

	for _, view := range []model.ResourceView{model.ViewCPU, model.ViewMemory, model.ViewStorage} {
		u := Compute(clusters, view, model.OvercommitRatios{CPU: 1, Memory: 1})
		pct := u.PerCluster["c1"].UtilizationPct
		if pct < 0 || pct > 100 {
			t.Errorf("%s utilization %v out of [0,100]", view, pct)
		}
		if pct != 100 {
			t.Errorf("%s utilization = %v, want clamp to 100", view, pct)
		}
	}
}

func TestCompute_HiddenClustersExcluded(t *testing.T) {
	clusters := []model.Cluster{
		{ID: "c1", IsVisible: true, Hosts: []model.Host{makeHost("h1", "c1", 10, 10, 10, makeVM("a", "h1", "c1", 5, 1, 1))}},
		{ID: "c2", IsVisible: false, Hosts: []model.Host{makeHost("h2", "c2", 10, 10, 10, makeVM("b", "h2", "c2", 10, 1, 1))}},
	}

	u := Compute(clusters, model.ViewCPU, model.OvercommitRatios{CPU: 1, Memory: 1})

	if _, ok := u.PerCluster["c2"]; ok {
		t.Error("hidden cluster should not have a per-cluster entry")
	}
	if _, ok := u.PerHost["h2"]; ok {
		t.Error("hidden cluster hosts should not have per-host entries")
	}
	if u.Overall.TotalClusters != 1 || u.Overall.TotalHosts != 1 || u.Overall.TotalVMs != 1 {
		t.Errorf("overall counted hidden data: %+v", u.Overall)
	}
	if u.Overall.AvgUtilizationPct != 50 {
		t.Errorf("avg utilization = %v, want 50", u.Overall.AvgUtilizationPct)
	}
}

func TestCompute_NoVisibleClusters(t *testing.T) {
	u := Compute(nil, model.ViewCPU, model.DefaultRatios())
	if u.Overall.AvgUtilizationPct != 0 || u.Overall.TotalClusters != 0 {
		t.Errorf("expected zero overall, got %+v", u.Overall)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		alloc, capacity, want float64
	}{
		{50, 100, 50},
		{0, 0, 0},
		{10, 0, 0},
		{-5, 100, 0},
		{300, 100, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.alloc, tt.capacity); got != tt.want {
			t.Errorf("Percent(%v, %v) = %v, want %v", tt.alloc, tt.capacity, got, tt.want)
		}
	}
}
