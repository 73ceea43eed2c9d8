// Package layout lays out the visible part of an inventory as nested
// rectangles sized by resource value (an icicle partition), with
// click-to-zoom and breadcrumb support.
package layout

import (
	"errors"
	"sort"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/model"
)

var (
	ErrDegenerateFocus = errors.New("cannot focus a node with zero extent")
	ErrNodeNotFound    = errors.New("node not found in layout")
)

// Options controls viewport size and fixed spacing.
type Options struct {
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	LevelBand      float64 `json:"level_band"`      // px along x per non-leaf depth
	Padding        float64 `json:"padding"`         // px between siblings
	ClusterSpacing float64 `json:"cluster_spacing"` // px between stacked clusters
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Width:          1200,
		Height:         800,
		LevelBand:      160,
		Padding:        1,
		ClusterSpacing: 16,
	}
}

// Layout is a computed partition plus the current zoom focus.
type Layout struct {
	Root  *Node
	Focus *Node

	View   model.ResourceView
	Ratios model.OvercommitRatios
	Opts   Options

	index map[string]*Node
}

// Build lays out the visible clusters. With no visible clusters the result
// is empty (Root is nil).
func Build(clusters []model.Cluster, view model.ResourceView, ratios model.OvercommitRatios, opts Options) *Layout {
	l := &Layout{View: view, Ratios: ratios, Opts: opts, index: make(map[string]*Node)}

	var visible []*model.Cluster
	for i := range clusters {
		if clusters[i].IsVisible {
			visible = append(visible, &clusters[i])
		}
	}
	if len(visible) == 0 {
		return l
	}

	root := &Node{
		Kind:  KindRoot,
		ID:    RootID,
		Name:  "Infrastructure",
		Depth: 0,
		Base:  Rect{X0: 0, Y0: 0, X1: opts.Width, Y1: opts.Height},
	}
	for _, c := range visible {
		cn := clusterTree(c, view, ratios)
		cn.Parent = root
		root.Children = append(root.Children, cn)
		root.Value += cn.Value
	}
	sortByValue(root.Children)

	// Clusters share the height equally, each partitioned on its own.
	n := len(root.Children)
	spacing := gap(opts.Height, opts.ClusterSpacing, n)
	share := (opts.Height - spacing*float64(n-1)) / float64(n)
	y := 0.0
	for _, cn := range root.Children {
		l.partition(cn, y, y+share)
		y += share + spacing
	}

	l.Root = root
	root.Walk(func(n *Node) bool {
		if _, dup := l.index[n.ID]; !dup {
			l.index[n.ID] = n
		}
		l.index[QualifiedID(n.Kind, n.ID)] = n
		return true
	})

	// Focusing the root cannot fail: its extent is the viewport.
	l.apply(root)
	return l
}

func clusterTree(c *model.Cluster, view model.ResourceView, ratios model.OvercommitRatios) *Node {
	cn := &Node{Kind: KindCluster, ID: c.ID, Name: c.Name, Depth: 1, Cluster: c}

	for hi := range c.Hosts {
		h := &c.Hosts[hi]
		hn := &Node{
			Kind:   KindHost,
			ID:     h.ID,
			Name:   h.Name,
			Depth:  2,
			Value:  capacity.HostCapacity(*h, view, ratios),
			Parent: cn,
			Host:   h,
		}

		var allocated float64
		for vi := range h.VMs {
			vm := &h.VMs[vi]
			amount := capacity.VMAmount(*vm, view)
			allocated += amount
			hn.Children = append(hn.Children, &Node{
				Kind:   KindVM,
				ID:     vm.ID,
				Name:   vm.Name,
				Depth:  3,
				Value:  amount,
				Locked: vm.IsLocked,
				Parent: hn,
				VM:     vm,
			})
		}
		if free := hn.Value - allocated; free > 0 {
			hn.Children = append(hn.Children, &Node{
				Kind:   KindFree,
				ID:     h.ID + "/free",
				Name:   FreeSpaceName,
				Depth:  3,
				Value:  free,
				Parent: hn,
			})
		}
		sortByValue(hn.Children)

		cn.Value += hn.Value
		cn.Children = append(cn.Children, hn)
	}
	sortByValue(cn.Children)

	return cn
}

// sortByValue orders nodes by non-increasing value, keeping insertion order
// for ties.
func sortByValue(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Value > nodes[j].Value
	})
}

// partition assigns base rectangles to n and its subtree within [y0, y1].
func (l *Layout) partition(n *Node, y0, y1 float64) {
	x0 := float64(n.Depth-1) * l.Opts.LevelBand
	x1 := x0 + l.Opts.LevelBand
	if n.IsLeaf() {
		x1 = max(l.Opts.Width, x0)
	}
	n.Base = Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}

	if n.IsLeaf() {
		return
	}

	var sum float64
	for _, c := range n.Children {
		sum += c.Value
	}
	denom := max(n.Value, sum)

	k := len(n.Children)
	padding := gap(y1-y0, l.Opts.Padding, k)
	avail := y1 - y0 - padding*float64(k-1)

	cursor := y0
	for _, c := range n.Children {
		var h float64
		if denom > 0 {
			h = avail * c.Value / denom
		}
		l.partition(c, min(cursor, y1), min(cursor+h, y1))
		cursor += h + padding
	}
}

// gap returns the spacing to put between n siblings sharing extent. When
// the requested spacing would not leave room for the siblings themselves,
// the level is laid out without gaps.
func gap(extent, spacing float64, n int) float64 {
	if n < 2 || spacing <= 0 || spacing*float64(n-1) >= extent {
		return 0
	}
	return spacing
}
