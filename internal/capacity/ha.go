package capacity

import (
	"fmt"
	"strings"

	"github.com/guimove/capviz/internal/model"
)

// HAPolicy is the number of host failures a cluster must absorb.
type HAPolicy string

const (
	HANone   HAPolicy = "none"
	HANPlus0 HAPolicy = "n+0"
	HANPlus1 HAPolicy = "n+1"
	HANPlus2 HAPolicy = "n+2"
)

// ParseHAPolicy accepts none, n+0, n+1 and n+2 (case-insensitive).
func ParseHAPolicy(s string) (HAPolicy, error) {
	switch p := HAPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case HANone, HANPlus0, HANPlus1, HANPlus2:
		return p, nil
	case "":
		return HANone, nil
	default:
		return "", fmt.Errorf("unknown HA policy %q (want none, n+0, n+1 or n+2)", s)
	}
}

// ReserveHosts returns how many hosts' worth of capacity is held back.
func (p HAPolicy) ReserveHosts() int {
	switch p {
	case HANPlus1:
		return 1
	case HANPlus2:
		return 2
	default:
		return 0
	}
}

// ReserveShare is the fraction of a cluster of hostCount hosts held back
// for failover. A cluster with no more hosts than the reserve keeps none.
func (p HAPolicy) ReserveShare(hostCount int) float64 {
	r := p.ReserveHosts()
	if r == 0 || hostCount <= r {
		return 0
	}
	return float64(r) / float64(hostCount)
}

// Headroom is a visible cluster's capacity once the HA reserve is taken out.
type Headroom struct {
	ClusterID   string   `json:"cluster_id"`
	ClusterName string   `json:"cluster_name"`
	Policy      HAPolicy `json:"policy"`
	Capacity    float64  `json:"capacity"`
	HAReserved  float64  `json:"ha_reserved"`
	Usable      float64  `json:"usable"`
	Allocated   float64  `json:"allocated"`
	Available   float64  `json:"available"` // negative when the reserve is eaten into

	// Allocation fits in usable capacity, i.e. the cluster survives the
	// policy's host failures.
	Sufficient bool `json:"sufficient"`
}

// ComputeHeadroom applies policy to every visible cluster.
func ComputeHeadroom(clusters []model.Cluster, view model.ResourceView, ratios model.OvercommitRatios, policy HAPolicy) []Headroom {
	var out []Headroom
	for i := range clusters {
		c := &clusters[i]
		if !c.IsVisible {
			continue
		}
		hr := Headroom{
			ClusterID:   c.ID,
			ClusterName: c.Name,
			Policy:      policy,
			Capacity:    ClusterCapacity(*c, view, ratios),
		}
		for hi := range c.Hosts {
			hr.Allocated += c.Hosts[hi].Allocated(view)
		}
		hr.HAReserved = hr.Capacity * policy.ReserveShare(len(c.Hosts))
		hr.Usable = hr.Capacity - hr.HAReserved
		hr.Available = hr.Usable - hr.Allocated
		hr.Sufficient = hr.Available >= 0
		out = append(out, hr)
	}
	return out
}
