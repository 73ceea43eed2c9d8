package capacity

import (
	"testing"

	"github.com/guimove/capviz/internal/model"
)

func TestParseHAPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    HAPolicy
		wantErr bool
	}{
		{"", HANone, false},
		{"none", HANone, false},
		{"N+1", HANPlus1, false},
		{" n+2 ", HANPlus2, false},
		{"n+3", "", true},
	}
	for _, tt := range tests {
		got, err := ParseHAPolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHAPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHAPolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHAPolicy_ReserveShare(t *testing.T) {
	tests := []struct {
		policy HAPolicy
		hosts  int
		want   float64
	}{
		{HANone, 4, 0},
		{HANPlus0, 4, 0},
		{HANPlus1, 4, 0.25},
		{HANPlus2, 4, 0.5},
		{HANPlus1, 1, 0},
		{HANPlus2, 2, 0},
		{HANPlus2, 0, 0},
	}
	for _, tt := range tests {
		if got := tt.policy.ReserveShare(tt.hosts); got != tt.want {
			t.Errorf("%s with %d hosts: got %v, want %v", tt.policy, tt.hosts, got, tt.want)
		}
	}
}

func TestComputeHeadroom(t *testing.T) {
	h := func(id string, cores, vmCPU float64) model.Host {
		return model.Host{ID: id, ClusterID: "c1", TotalCPUCores: cores,
			VMs: []model.VM{{ID: "vm-" + id, HostID: id, ClusterID: "c1", AllocatedCPU: vmCPU}}}
	}
	clusters := []model.Cluster{
		{ID: "c1", Name: "Prod", IsVisible: true, Hosts: []model.Host{h("h1", 16, 10), h("h2", 16, 10), h("h3", 16, 10), h("h4", 16, 10)}},
		{ID: "c2", Name: "Hidden", IsVisible: false},
	}
	ratios := model.OvercommitRatios{CPU: 2, Memory: 1}

	got := ComputeHeadroom(clusters, model.ViewCPU, ratios, HANPlus1)
	if len(got) != 1 {
		t.Fatalf("expected one visible cluster, got %d", len(got))
	}
	hr := got[0]
	// 4 x 16 cores x 2 = 128 effective, one host (32) reserved.
	if hr.Capacity != 128 || hr.HAReserved != 32 || hr.Usable != 96 {
		t.Errorf("capacity/reserved/usable = %v/%v/%v, want 128/32/96", hr.Capacity, hr.HAReserved, hr.Usable)
	}
	if hr.Allocated != 40 || hr.Available != 56 || !hr.Sufficient {
		t.Errorf("allocated/available/sufficient = %v/%v/%v", hr.Allocated, hr.Available, hr.Sufficient)
	}

	tight := ComputeHeadroom(clusters, model.ViewCPU, model.OvercommitRatios{CPU: 1, Memory: 1}, HANPlus2)[0]
	// 64 cores, half reserved, 40 allocated.
	if tight.Sufficient || tight.Available != -8 {
		t.Errorf("n+2 should not fit: available %v sufficient %v", tight.Available, tight.Sufficient)
	}
}
