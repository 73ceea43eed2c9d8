// Package capacity computes effective capacity, allocation and utilization
// of an inventory for a single resource view.
package capacity

import (
	"github.com/guimove/capviz/internal/model"
)

// HostUsage is the effective capacity and allocation of one host.
type HostUsage struct {
	Capacity  float64 `json:"capacity"`
	Allocated float64 `json:"allocated"`
}

// ClusterUsage aggregates the hosts of one visible cluster.
type ClusterUsage struct {
	Capacity       float64 `json:"capacity"`
	Allocated      float64 `json:"allocated"`
	UtilizationPct float64 `json:"utilization_pct"` // 0 - 100

	// Allocated exceeds effective capacity. UtilizationPct is clamped, so
	// this is the only way to see it.
	Overcommitted bool `json:"overcommitted"`
}

// Overall summarizes the visible part of the inventory.
type Overall struct {
	TotalVMs          int     `json:"total_vms"`
	TotalHosts        int     `json:"total_hosts"`
	TotalClusters     int     `json:"total_clusters"`
	AvgUtilizationPct float64 `json:"avg_utilization_pct"`
}

// Utilization is the result of Compute.
type Utilization struct {
	View       model.ResourceView      `json:"view"`
	Ratios     model.OvercommitRatios  `json:"ratios"`
	PerHost    map[string]HostUsage    `json:"per_host"`
	PerCluster map[string]ClusterUsage `json:"per_cluster"`
	Overall    Overall                 `json:"overall"`
}

// HostCapacity returns the effective capacity of h for the view.
func HostCapacity(h model.Host, view model.ResourceView, ratios model.OvercommitRatios) float64 {
	return h.RawCapacity(view) * ratios.For(view)
}

// ClusterCapacity returns the effective capacity of c for the view.
func ClusterCapacity(c model.Cluster, view model.ResourceView, ratios model.OvercommitRatios) float64 {
	var total float64
	for i := range c.Hosts {
		total += HostCapacity(c.Hosts[i], view, ratios)
	}
	return total
}

// VMAmount returns the VM's allocation for the view.
func VMAmount(vm model.VM, view model.ResourceView) float64 {
	return vm.Amount(view)
}

// Compute calculates per-host, per-cluster and overall statistics. Hidden
// clusters are excluded from every statistic.
func Compute(clusters []model.Cluster, view model.ResourceView, ratios model.OvercommitRatios) Utilization {
	u := Utilization{
		View:       view,
		Ratios:     ratios,
		PerHost:    make(map[string]HostUsage),
		PerCluster: make(map[string]ClusterUsage),
	}

	var pctSum float64
	for ci := range clusters {
		c := &clusters[ci]
		if !c.IsVisible {
			continue
		}

		var cu ClusterUsage
		for hi := range c.Hosts {
			h := &c.Hosts[hi]
			hu := HostUsage{
				Capacity:  HostCapacity(*h, view, ratios),
				Allocated: h.Allocated(view),
			}
			u.PerHost[h.ID] = hu
			cu.Capacity += hu.Capacity
			cu.Allocated += hu.Allocated
			u.Overall.TotalVMs += len(h.VMs)
		}

		cu.UtilizationPct = Percent(cu.Allocated, cu.Capacity)
		cu.Overcommitted = cu.Allocated > cu.Capacity
		u.PerCluster[c.ID] = cu

		u.Overall.TotalHosts += len(c.Hosts)
		u.Overall.TotalClusters++
		pctSum += cu.UtilizationPct
	}

	if u.Overall.TotalClusters > 0 {
		u.Overall.AvgUtilizationPct = pctSum / float64(u.Overall.TotalClusters)
	}

	return u
}

// Percent returns allocated/capacity as a percentage clamped to [0, 100].
// Zero capacity yields 0.
func Percent(allocated, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	pct := allocated / capacity * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
