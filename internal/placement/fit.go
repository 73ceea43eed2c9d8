package placement

import (
	"math"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/model"
)

const (
	cpu = iota
	memory
	storage
	dims
)

// epsilon absorbs float drift when a VM exactly fills a host.
const epsilon = 1e-9

var (
	views    = [dims]model.ResourceView{model.ViewCPU, model.ViewMemory, model.ViewStorage}
	dimNames = [dims]string{"cpu", "memory", "storage"}
)

// vector is an amount per resource dimension.
type vector [dims]float64

func (v vector) add(o vector) vector {
	for d := range dims {
		v[d] += o[d]
	}
	return v
}

func demand(vm model.VM) vector {
	var v vector
	for d := range dims {
		v[d] = vm.Amount(views[d])
	}
	return v
}

// bin tracks one candidate host while packing.
type bin struct {
	hostID    string
	clusterID string
	capacity  vector
	used      vector
}

// openBins builds a bin for every host of the target clusters that is not
// drained. Capacity is the overcommitted capacity less the cluster's HA
// share; lifted VMs no longer count against their host.
func openBins(clusters []model.Cluster, targets []int, ratios model.OvercommitRatios, policy capacity.HAPolicy, drain, lifted sets.Set[string]) []*bin {
	var bins []*bin
	for _, ci := range targets {
		c := &clusters[ci]
		keep := 1 - policy.ReserveShare(len(c.Hosts))
		for hi := range c.Hosts {
			h := &c.Hosts[hi]
			if drain.Has(h.ID) {
				continue
			}
			b := &bin{hostID: h.ID, clusterID: c.ID}
			for d := range dims {
				b.capacity[d] = capacity.HostCapacity(*h, views[d], ratios) * keep
			}
			for _, vm := range h.VMs {
				if !lifted.Has(vm.ID) {
					b.used = b.used.add(demand(vm))
				}
			}
			bins = append(bins, b)
		}
	}
	return bins
}

func (b *bin) free() vector {
	var v vector
	for d := range dims {
		v[d] = math.Max(0, b.capacity[d]-b.used[d])
	}
	return v
}

func (b *bin) canFit(need vector) bool {
	for d := range dims {
		if need[d] > b.capacity[d]-b.used[d]+epsilon {
			return false
		}
	}
	return true
}

func (b *bin) place(need vector) { b.used = b.used.add(need) }

func (b *bin) fraction(d int) float64 {
	if b.capacity[d] <= 0 {
		return 0
	}
	return b.used[d] / b.capacity[d]
}

// utilization is the mean percent used over the dimensions with capacity.
func (b *bin) utilization() float64 {
	var sum float64
	n := 0
	for d := range dims {
		if b.capacity[d] > 0 {
			sum += b.fraction(d) * 100
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// compositeRemaining measures how much room b would have left after taking
// need. Lower is a tighter fit. The Euclidean norm penalizes leaving one
// dimension empty while another fills.
func (b *bin) compositeRemaining(need vector) float64 {
	var sum float64
	for d := range dims {
		if b.capacity[d] <= 0 {
			continue
		}
		after := (b.capacity[d] - b.used[d] - need[d]) / b.capacity[d]
		sum += after * after
	}
	return math.Sqrt(sum)
}

// choose returns the bin the strategy picks for need, or nil when none fits.
func choose(bins []*bin, need vector, strategy Strategy) *bin {
	var best *bin
	var bestScore float64
	for _, b := range bins {
		if !b.canFit(need) {
			continue
		}
		if strategy == FirstFit {
			return b
		}
		var score float64
		switch strategy {
		case Balanced:
			score = b.utilization()
		case Performance:
			score = -b.compositeRemaining(need)
		default:
			score = b.compositeRemaining(need)
		}
		if best == nil || score < bestScore {
			best, bestScore = b, score
		}
	}
	return best
}

// sortByDominance puts the most demanding VMs first. Dominance is the
// largest share a VM takes of the biggest host in any dimension.
func sortByDominance(vms []candidate, bins []*bin) {
	var largest vector
	for _, b := range bins {
		for d := range dims {
			largest[d] = math.Max(largest[d], b.capacity[d])
		}
	}
	dominance := func(need vector) float64 {
		var m float64
		for d := range dims {
			if largest[d] > 0 {
				m = math.Max(m, need[d]/largest[d])
			}
		}
		return m
	}
	sort.SliceStable(vms, func(i, j int) bool {
		return dominance(vms[i].need) > dominance(vms[j].need)
	})
}
