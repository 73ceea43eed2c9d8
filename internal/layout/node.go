package layout

import (
	"github.com/guimove/capviz/internal/model"
)

// Kind is the type of entity a node represents.
type Kind string

const (
	KindRoot    Kind = "root"
	KindCluster Kind = "cluster"
	KindHost    Kind = "host"
	KindVM      Kind = "vm"
	KindFree    Kind = "free"
)

// RootID is the id of the synthetic node above all clusters.
const RootID = "root"

// FreeSpaceName is the display name of free-capacity leaves.
const FreeSpaceName = "Free Space"

// Rect is an axis-aligned rectangle in viewport pixels.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns X1 - X0.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns Y1 - Y0.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Node is one region of the partition. The embedded Rect holds the displayed
// coordinates for the current focus; Base holds the unzoomed coordinates.
type Node struct {
	Kind  Kind    `json:"kind"`
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Depth int     `json:"depth"`
	Rect

	Locked   bool    `json:"locked,omitempty"`
	Children []*Node `json:"children,omitempty"`

	Base   Rect  `json:"-"`
	Parent *Node `json:"-"`

	// Source entity, nil for root and free-space nodes.
	Cluster *model.Cluster `json:"-"`
	Host    *model.Host    `json:"-"`
	VM      *model.VM      `json:"-"`
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Ancestors returns the chain from the root down to n, inclusive.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
