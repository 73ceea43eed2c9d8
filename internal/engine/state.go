package engine

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/model"
)

// Snapshot is the part of the state that undo and redo restore.
type Snapshot struct {
	Clusters []model.Cluster
	Ratios   model.OvercommitRatios
}

// HistoryEntry pairs an action with the snapshot that popping the entry
// restores: the pre-action model on the undo stack, the post-action model
// on the redo stack.
type HistoryEntry struct {
	Action  Record
	Restore Snapshot
}

// State is an immutable engine snapshot. Every operation returns a new
// State; slices and sets reachable from a State are never modified.
type State struct {
	Clusters      []model.Cluster
	Ratios        model.OvercommitRatios
	ActiveView    model.ResourceView
	SelectedVMIDs sets.Set[string]
	UndoStack     []HistoryEntry
	RedoStack     []HistoryEntry
	Ledger        ledger.Ledger
}

// NewState returns the initial state for an inventory. clusters is copied.
func NewState(clusters []model.Cluster, ratios model.OvercommitRatios, view model.ResourceView) State {
	if view == "" {
		view = model.ViewCPU
	}
	return State{
		Clusters:      model.CloneClusters(clusters),
		Ratios:        ratios.Normalize(),
		ActiveView:    view,
		SelectedVMIDs: sets.New[string](),
	}
}

// Snapshot returns the restorable part of s.
func (s State) Snapshot() Snapshot {
	return Snapshot{Clusters: s.Clusters, Ratios: s.Ratios}
}

// WithView returns s with a different active view.
func (s State) WithView(v model.ResourceView) State {
	s.ActiveView = v
	return s
}

// WithSelection returns s with the given VMs selected.
func (s State) WithSelection(vmIDs ...string) State {
	s.SelectedVMIDs = sets.New(vmIDs...)
	return s
}

// WithLedger returns s carrying l.
func (s State) WithLedger(l ledger.Ledger) State {
	s.Ledger = l
	return s
}

// CanUndo reports whether there is an action to undo.
func (s State) CanUndo() bool { return len(s.UndoStack) > 0 }

// CanRedo reports whether there is an action to redo.
func (s State) CanRedo() bool { return len(s.RedoStack) > 0 }

// push returns stack with e appended without touching stack's backing array,
// keeping at most limit entries (0 = unlimited).
func push(stack []HistoryEntry, e HistoryEntry, limit int) []HistoryEntry {
	out := append(slices.Clip(stack), e)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func pop(stack []HistoryEntry) ([]HistoryEntry, HistoryEntry) {
	n := len(stack) - 1
	return slices.Clip(stack[:n]), stack[n]
}
