package layout

import (
	"fmt"
)

// Empty reports whether the layout has nothing to draw.
func (l *Layout) Empty() bool { return l.Root == nil }

// Find returns the node with the given id, or nil. A bare id resolves to
// the shallowest node carrying it; "kind:id" (see QualifiedID) names one
// node of that kind.
func (l *Layout) Find(id string) *Node {
	return l.index[id]
}

// QualifiedID returns the lookup key naming the node of kind k with id,
// e.g. "host:esx-01".
func QualifiedID(k Kind, id string) string {
	return string(k) + ":" + id
}

// Nodes returns every node, parents before children.
func (l *Layout) Nodes() []*Node {
	var out []*Node
	l.Root.Walk(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Zoom makes n the focus: n's base region is mapped onto the full viewport
// and every node's displayed rectangle is recomputed from its base
// rectangle.
func (l *Layout) Zoom(n *Node) error {
	if n == nil || l.Root == nil || n.Ancestors()[0] != l.Root {
		return ErrNodeNotFound
	}
	if n.Base.Height() <= 0 || l.Opts.Width-n.Base.X0 <= 0 {
		return fmt.Errorf("%w: %s %q", ErrDegenerateFocus, n.Kind, n.ID)
	}
	l.apply(n)
	return nil
}

// ZoomTo looks up id and zooms to it.
func (l *Layout) ZoomTo(id string) error {
	n := l.Find(id)
	if n == nil {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	return l.Zoom(n)
}

// ZoomOut focuses the parent of the current focus. It is a no-op at the
// root.
func (l *Layout) ZoomOut() error {
	if l.Focus == nil || l.Focus.Parent == nil {
		return nil
	}
	return l.Zoom(l.Focus.Parent)
}

// Breadcrumbs returns the focus and its ancestors, root first.
func (l *Layout) Breadcrumbs() []*Node {
	if l.Focus == nil {
		return nil
	}
	return l.Focus.Ancestors()
}

func (l *Layout) apply(f *Node) {
	w, h := l.Opts.Width, l.Opts.Height
	fb := f.Base

	kx, ky := 1.0, 1.0
	if w-fb.X0 > 0 {
		kx = w / (w - fb.X0)
	}
	if fb.Height() > 0 {
		ky = h / fb.Height()
	}

	l.Root.Walk(func(n *Node) bool {
		b := n.Base
		n.Rect = Rect{
			X0: (b.X0 - fb.X0) * kx,
			Y0: (b.Y0 - fb.Y0) * ky,
			X1: (b.X1 - fb.X0) * kx,
			Y1: (b.Y1 - fb.Y0) * ky,
		}
		return true
	})
	l.Focus = f
}
