package model

import (
	"math"
	"strings"
	"testing"
)

func sampleClusters() []Cluster {
	return []Cluster{
		{
			ID: "c1", Name: "Prod", IsVisible: true,
			Hosts: []Host{
				{
					ID: "h1", Name: "esx-01", ClusterID: "c1",
					TotalCPUCores: 48, TotalMemoryGB: 512, TotalStorageGB: 4000,
					VMs: []VM{
						{ID: "vm-1", Name: "web", AllocatedCPU: 4, AllocatedMemoryGB: 16, ProvisionedStorageGB: 100, HostID: "h1", ClusterID: "c1"},
						{ID: "vm-2", Name: "db", AllocatedCPU: 8, AllocatedMemoryGB: 64, ProvisionedStorageGB: 500, HostID: "h1", ClusterID: "c1"},
					},
				},
				{ID: "h2", Name: "esx-02", ClusterID: "c1", TotalCPUCores: 32, TotalMemoryGB: 256, TotalStorageGB: 2000},
			},
		},
		{ID: "c2", Name: "Dev", IsVisible: false},
	}
}

func TestVM_Amount(t *testing.T) {
	vm := VM{AllocatedCPU: 2, AllocatedMemoryGB: 8, ProvisionedStorageGB: 40}
	tests := []struct {
		view ResourceView
		want float64
	}{
		{ViewCPU, 2},
		{ViewMemory, 8},
		{ViewStorage, 40},
	}
	for _, tt := range tests {
		if got := vm.Amount(tt.view); got != tt.want {
			t.Errorf("Amount(%s) = %v, want %v", tt.view, got, tt.want)
		}
	}
}

func TestHost_RawCapacityAndAllocated(t *testing.T) {
	h := sampleClusters()[0].Hosts[0]
	if got := h.RawCapacity(ViewCPU); got != 48 {
		t.Errorf("RawCapacity(cpu) = %v, want 48", got)
	}
	if got := h.RawCapacity(ViewStorage); got != 4000 {
		t.Errorf("RawCapacity(storage) = %v, want 4000", got)
	}
	if got := h.Allocated(ViewMemory); got != 80 {
		t.Errorf("Allocated(memory) = %v, want 80", got)
	}
}

func TestOvercommitRatios(t *testing.T) {
	r := OvercommitRatios{CPU: 3, Memory: 0.5}
	if got := r.For(ViewCPU); got != 3 {
		t.Errorf("For(cpu) = %v, want 3", got)
	}
	if got := r.For(ViewMemory); got != 1 {
		t.Errorf("For(memory) = %v, want 1 for ratio below 1", got)
	}
	if got := r.For(ViewStorage); got != 1 {
		t.Errorf("For(storage) = %v, want 1", got)
	}

	n := OvercommitRatios{CPU: math.NaN(), Memory: 0}.Normalize()
	if n.CPU != 1 || n.Memory != 1 {
		t.Errorf("Normalize() = %+v, want {1 1}", n)
	}
}

func TestParseResourceView(t *testing.T) {
	if v, err := ParseResourceView(" Memory "); err != nil || v != ViewMemory {
		t.Errorf("ParseResourceView(Memory) = %q, %v", v, err)
	}
	if _, err := ParseResourceView("gpu"); err == nil {
		t.Error("expected error for unknown view")
	}
}

func TestFindHelpers(t *testing.T) {
	clusters := sampleClusters()

	loc, ok := FindHost(clusters, "h2")
	if !ok || loc.Cluster != 0 || loc.Host != 1 {
		t.Errorf("FindHost(h2) = %+v, %v", loc, ok)
	}
	if _, ok := FindHost(clusters, "missing"); ok {
		t.Error("expected FindHost to miss")
	}

	vl, ok := FindVM(clusters, "vm-2")
	if !ok || vl.VM != 1 || vl.Host != 0 {
		t.Errorf("FindVM(vm-2) = %+v, %v", vl, ok)
	}

	if got := FindCluster(clusters, "c2"); got != 1 {
		t.Errorf("FindCluster(c2) = %d, want 1", got)
	}
	if got := len(VisibleClusters(clusters)); got != 1 {
		t.Errorf("VisibleClusters() returned %d clusters, want 1", got)
	}
}

func TestCloneClusters_IsDeep(t *testing.T) {
	orig := sampleClusters()
	clone := CloneClusters(orig)

	clone[0].Hosts[0].VMs[0].HostID = "h2"
	clone[0].Hosts[0].Name = "renamed"
	clone[1].IsVisible = true

	if orig[0].Hosts[0].VMs[0].HostID != "h1" {
		t.Error("mutating clone VM changed original")
	}
	if orig[0].Hosts[0].Name != "esx-01" {
		t.Error("mutating clone host changed original")
	}
	if orig[1].IsVisible {
		t.Error("mutating clone cluster changed original")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(sampleClusters()); err != nil {
		t.Fatalf("sample inventory should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]Cluster)
		want   string
	}{
		{"negative capacity", func(c []Cluster) { c[0].Hosts[0].TotalCPUCores = -1 }, "TotalCPUCores"},
		{"negative vm memory", func(c []Cluster) { c[0].Hosts[0].VMs[0].AllocatedMemoryGB = -4 }, "AllocatedMemoryGB"},
		{"vm host mismatch", func(c []Cluster) { c[0].Hosts[0].VMs[0].HostID = "h2" }, `references host "h2"`},
		{"host cluster mismatch", func(c []Cluster) { c[0].Hosts[1].ClusterID = "c2" }, `references cluster "c2"`},
		{"duplicate vm", func(c []Cluster) { c[0].Hosts[0].VMs[1].ID = "vm-1" }, `duplicate vm id "vm-1"`},
		{"missing id", func(c []Cluster) { c[1].ID = "" }, "required"},
		{"host reuses cluster id", func(c []Cluster) { c[0].Hosts[1].ID = "c2" }, `id "c2" is used by both a cluster and a host`},
		{"vm reuses host id", func(c []Cluster) { c[0].Hosts[0].VMs[1].ID = "h2" }, `id "h2" is used by both a host and a vm`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clusters := sampleClusters()
			tt.mutate(clusters)
			err := Validate(clusters)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
