// Package placement recommends target hosts for VMs. It is a
// multi-resource bin packing over the hosts already in the inventory: VMs
// are lifted off their hosts (or off hosts being drained) and packed back
// onto the target clusters by one of four strategies.
package placement

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/engine"
	"github.com/guimove/capviz/internal/model"
)

// ErrInvalidRequest is returned for requests naming unknown VMs, hosts or
// clusters, or selecting nothing to place.
var ErrInvalidRequest = errors.New("invalid placement request")

// Strategy selects the host a VM lands on among those it fits.
type Strategy string

const (
	// FirstFit takes the first host, in inventory order, with room.
	FirstFit Strategy = "first-fit"
	// BestFit takes the host left most tightly packed.
	BestFit Strategy = "best-fit"
	// Balanced takes the host with the lowest current utilization.
	Balanced Strategy = "balanced"
	// Performance takes the host left with the most headroom.
	Performance Strategy = "performance"
)

// ParseStrategy accepts the four strategy names; empty means best-fit.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case FirstFit, BestFit, Balanced, Performance:
		return st, nil
	case "":
		return BestFit, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q (want first-fit, best-fit, balanced or performance)", ErrInvalidRequest, s)
	}
}

// Request selects the VMs to place and where they may go.
type Request struct {
	// VMIDs are placed wherever they currently run.
	VMIDs []string `json:"vm_ids,omitempty"`
	// DrainHostIDs contribute all their VMs and receive none.
	DrainHostIDs []string `json:"drain_host_ids,omitempty"`
	// TargetClusterIDs restricts candidate hosts. Empty means every visible
	// cluster.
	TargetClusterIDs []string          `json:"target_cluster_ids,omitempty"`
	Strategy         Strategy          `json:"strategy,omitempty"`
	HAPolicy         capacity.HAPolicy `json:"ha_policy,omitempty"`

	// Optimize adds every unlocked VM of the target clusters and forces the
	// balanced strategy.
	Optimize bool `json:"optimize,omitempty"`
}

// Placement is one VM's recommended target.
type Placement struct {
	VMID            string  `json:"vm_id"`
	VMName          string  `json:"vm_name"`
	SourceHostID    string  `json:"source_host_id"`
	SourceClusterID string  `json:"source_cluster_id"`
	TargetHostID    string  `json:"target_host_id"`
	TargetClusterID string  `json:"target_cluster_id"`
	CPU             float64 `json:"cpu"`
	MemoryGB        float64 `json:"memory_gb"`
	StorageGB       float64 `json:"storage_gb"`

	// Score is 100 minus the target's mean utilization after placement.
	Score float64 `json:"score"`
}

// Moves reports whether the placement relocates the VM.
func (p Placement) Moves() bool { return p.SourceHostID != p.TargetHostID }

// Unplaced is a VM no candidate host could take.
type Unplaced struct {
	VMID   string `json:"vm_id"`
	VMName string `json:"vm_name"`
	HostID string `json:"host_id"`
	Reason string `json:"reason"`
}

// Summary aggregates a placement run.
type Summary struct {
	Strategy              Strategy `json:"strategy"`
	TotalVMs              int      `json:"total_vms"`
	Placed                int      `json:"placed"`
	Unplaced              int      `json:"unplaced"`
	Moves                 int      `json:"moves"`
	HostsUsed             int      `json:"hosts_used"`
	AvgHostUtilizationPct float64  `json:"avg_host_utilization_pct"`

	// ResourceBalanceScore is 1 when CPU and memory are equally used on
	// every receiving host.
	ResourceBalanceScore float64 `json:"resource_balance_score"`
	// StrandedHosts have one of CPU or memory above 85% with the other
	// below 50%.
	StrandedHosts int `json:"stranded_hosts"`
}

// Result is the outcome of Plan.
type Result struct {
	Placements []Placement `json:"placements"`
	Unplaced   []Unplaced  `json:"unplaced,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	Summary    Summary     `json:"summary"`
}

// Feasible reports whether every requested VM found a host.
func (r *Result) Feasible() bool { return len(r.Unplaced) == 0 }

// Actions groups the relocating placements by target host, in the order
// the targets were first chosen. VMs that stay put produce no action.
func (r *Result) Actions() []engine.MoveVMs {
	var out []engine.MoveVMs
	idx := map[string]int{}
	for _, p := range r.Placements {
		if !p.Moves() {
			continue
		}
		i, ok := idx[p.TargetHostID]
		if !ok {
			i = len(out)
			idx[p.TargetHostID] = i
			out = append(out, engine.MoveVMs{TargetHostID: p.TargetHostID})
		}
		out[i].VMIDs = append(out[i].VMIDs, p.VMID)
	}
	return out
}

// Dispatcher applies engine actions; *engine.Machine satisfies it.
type Dispatcher interface {
	Dispatch(a engine.Action) (engine.Record, error)
}

// Apply dispatches Actions in order and stops at the first rejection,
// returning the records applied so far.
func (r *Result) Apply(d Dispatcher) ([]engine.Record, error) {
	var records []engine.Record
	for _, a := range r.Actions() {
		rec, err := d.Dispatch(a)
		if err != nil {
			return records, fmt.Errorf("moving %d VMs to %s: %w", len(a.VMIDs), a.TargetHostID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Plan computes placements for req against clusters. It does not modify
// clusters.
func Plan(clusters []model.Cluster, ratios model.OvercommitRatios, req Request) (*Result, error) {
	if req.Optimize {
		req.Strategy = Balanced
	}
	strategy, err := ParseStrategy(string(req.Strategy))
	if err != nil {
		return nil, err
	}
	policy, err := capacity.ParseHAPolicy(string(req.HAPolicy))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	drain := sets.New(req.DrainHostIDs...)
	for _, id := range sets.List(drain) {
		if _, ok := model.FindHost(clusters, id); !ok {
			return nil, fmt.Errorf("%w: host %q not found", ErrInvalidRequest, id)
		}
	}
	targets, err := targetClusters(clusters, req.TargetClusterIDs)
	if err != nil {
		return nil, err
	}
	vmIDs := req.VMIDs
	if req.Optimize {
		vmIDs = append(slices.Clone(vmIDs), unlockedVMs(clusters, targets)...)
	}
	candidates, err := collect(clusters, vmIDs, drain)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no VMs selected", ErrInvalidRequest)
	}

	res := &Result{Summary: Summary{Strategy: strategy, TotalVMs: len(candidates)}}
	lifted := sets.New[string]()
	var movable []candidate
	for _, c := range candidates {
		if c.vm.IsLocked {
			res.Unplaced = append(res.Unplaced, Unplaced{VMID: c.vm.ID, VMName: c.vm.Name, HostID: c.hostID, Reason: "locked"})
			continue
		}
		lifted.Insert(c.vm.ID)
		movable = append(movable, c)
	}

	bins := openBins(clusters, targets, ratios, policy, drain, lifted)
	res.Warnings = append(res.Warnings, validate(movable, bins)...)
	if len(bins) == 0 {
		res.Warnings = append(res.Warnings, "no candidate hosts in the target clusters")
	}

	sortByDominance(movable, bins)
	for i := range movable {
		c := &movable[i]
		b := choose(bins, c.need, strategy)
		if b == nil {
			res.Unplaced = append(res.Unplaced, Unplaced{VMID: c.vm.ID, VMName: c.vm.Name, HostID: c.hostID, Reason: "insufficient capacity"})
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"unable to place VM %q (%gC/%gGB/%gGB): insufficient host capacity",
				c.vm.Name, c.need[cpu], c.need[memory], c.need[storage]))
			continue
		}
		b.place(c.need)
		res.Placements = append(res.Placements, Placement{
			VMID:            c.vm.ID,
			VMName:          c.vm.Name,
			SourceHostID:    c.hostID,
			SourceClusterID: c.clusterID,
			TargetHostID:    b.hostID,
			TargetClusterID: b.clusterID,
			CPU:             c.need[cpu],
			MemoryGB:        c.need[memory],
			StorageGB:       c.need[storage],
			Score:           100 - b.utilization(),
		})
	}

	summarize(res, bins)
	return res, nil
}

// Optimize re-places every unlocked VM of the target clusters with the
// balanced strategy.
func Optimize(clusters []model.Cluster, ratios model.OvercommitRatios, clusterIDs []string, policy capacity.HAPolicy) (*Result, error) {
	return Plan(clusters, ratios, Request{TargetClusterIDs: clusterIDs, HAPolicy: policy, Optimize: true})
}

// unlockedVMs lists the unlocked VMs on the target clusters.
func unlockedVMs(clusters []model.Cluster, targets []int) []string {
	var ids []string
	for _, ci := range targets {
		for hi := range clusters[ci].Hosts {
			for _, vm := range clusters[ci].Hosts[hi].VMs {
				if !vm.IsLocked {
					ids = append(ids, vm.ID)
				}
			}
		}
	}
	return ids
}

type candidate struct {
	vm        model.VM
	hostID    string
	clusterID string
	need      vector
}

// collect resolves the requested VMs followed by the VMs of drained hosts,
// without duplicates.
func collect(clusters []model.Cluster, vmIDs []string, drain sets.Set[string]) ([]candidate, error) {
	seen := sets.New[string]()
	var out []candidate
	add := func(c *model.Cluster, h *model.Host, vm model.VM) {
		if seen.Has(vm.ID) {
			return
		}
		seen.Insert(vm.ID)
		out = append(out, candidate{vm: vm, hostID: h.ID, clusterID: c.ID, need: demand(vm)})
	}
	for _, id := range vmIDs {
		loc, ok := model.FindVM(clusters, id)
		if !ok {
			return nil, fmt.Errorf("%w: VM %q not found", ErrInvalidRequest, id)
		}
		c := &clusters[loc.Cluster]
		h := &c.Hosts[loc.Host]
		add(c, h, h.VMs[loc.VM])
	}
	for ci := range clusters {
		c := &clusters[ci]
		for hi := range c.Hosts {
			h := &c.Hosts[hi]
			if !drain.Has(h.ID) {
				continue
			}
			for _, vm := range h.VMs {
				add(c, h, vm)
			}
		}
	}
	return out, nil
}

// targetClusters returns cluster indexes; no ids means the visible ones.
func targetClusters(clusters []model.Cluster, ids []string) ([]int, error) {
	var out []int
	if len(ids) == 0 {
		for i := range clusters {
			if clusters[i].IsVisible {
				out = append(out, i)
			}
		}
		return out, nil
	}
	for _, id := range sets.List(sets.New(ids...)) {
		ci := model.FindCluster(clusters, id)
		if ci < 0 {
			return nil, fmt.Errorf("%w: cluster %q not found", ErrInvalidRequest, id)
		}
		out = append(out, ci)
	}
	// Inventory order keeps first-fit deterministic.
	slices.Sort(out)
	return out, nil
}

// validate compares total demand to total free capacity per resource.
func validate(movable []candidate, bins []*bin) []string {
	var need, free vector
	for _, c := range movable {
		need = need.add(c.need)
	}
	for _, b := range bins {
		free = free.add(b.free())
	}
	var warnings []string
	for d := range dims {
		if need[d] > free[d] {
			warnings = append(warnings, fmt.Sprintf(
				"insufficient total %s capacity: VMs require %.1f %s, targets have %.1f %s available",
				dimNames[d], need[d], views[d].Unit(), free[d], views[d].Unit()))
		}
	}
	return warnings
}

// summarize fills the summary with the receiving hosts' figures.
func summarize(res *Result, bins []*bin) {
	res.Summary.Placed = len(res.Placements)
	res.Summary.Unplaced = len(res.Unplaced)
	used := sets.New[string]()
	for _, p := range res.Placements {
		used.Insert(p.TargetHostID)
		if p.Moves() {
			res.Summary.Moves++
		}
	}
	res.Summary.HostsUsed = used.Len()
	res.Summary.ResourceBalanceScore = 1

	var receiving []*bin
	for _, b := range bins {
		if used.Has(b.hostID) {
			receiving = append(receiving, b)
		}
	}
	if len(receiving) == 0 {
		return
	}
	var util, balance float64
	for _, b := range receiving {
		util += b.utilization()
		cpuUtil, memUtil := b.fraction(cpu), b.fraction(memory)
		if (cpuUtil > 0.85 && memUtil < 0.50) || (memUtil > 0.85 && cpuUtil < 0.50) {
			res.Summary.StrandedHosts++
		}
		balance += 1 - math.Abs(cpuUtil-memUtil)
	}
	n := float64(len(receiving))
	res.Summary.AvgHostUtilizationPct = util / n
	res.Summary.ResourceBalanceScore = balance / n
}
