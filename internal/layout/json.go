package layout

import (
	"encoding/json"
)

// Crumb is the serialized form of a breadcrumb entry.
type Crumb struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type layoutJSON struct {
	View        string  `json:"view"`
	Options     Options `json:"options"`
	FocusID     string  `json:"focus_id,omitempty"`
	Breadcrumbs []Crumb `json:"breadcrumbs"`
	Root        *Node   `json:"root"`
}

// MarshalJSON renders the tree with displayed coordinates and the
// breadcrumb trail of the current focus.
func (l *Layout) MarshalJSON() ([]byte, error) {
	out := layoutJSON{
		View:        string(l.View),
		Options:     l.Opts,
		Root:        l.Root,
		Breadcrumbs: []Crumb{},
	}
	if l.Focus != nil {
		out.FocusID = l.Focus.ID
	}
	for _, n := range l.Breadcrumbs() {
		out.Breadcrumbs = append(out.Breadcrumbs, Crumb{Kind: n.Kind, ID: n.ID, Name: n.Name})
	}
	return json.Marshal(out)
}
