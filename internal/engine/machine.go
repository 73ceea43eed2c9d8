package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/layout"
	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/metrics"
	"github.com/guimove/capviz/internal/model"
)

// SnapshotSubmitter receives ledger snapshots after every ledger change.
// Submit must not block.
type SnapshotSubmitter interface {
	Submit(ledger.Snapshot)
}

// SeedFunc regenerates the original inventory for Reset.
type SeedFunc func(ctx context.Context) ([]model.Cluster, error)

// Machine owns the current State and is the only writer to it. It is not
// safe for concurrent use; callers serialize access.
type Machine struct {
	state State
	opts  Options
	seed  SeedFunc
	saver SnapshotSubmitter
	log   *zap.SugaredLogger
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithOptions sets the action options.
func WithOptions(o Options) MachineOption {
	return func(m *Machine) { m.opts = o }
}

// WithSeed sets the function Reset uses to rebuild the inventory.
func WithSeed(fn SeedFunc) MachineOption {
	return func(m *Machine) { m.seed = fn }
}

// WithSaver sets where ledger snapshots are submitted.
func WithSaver(s SnapshotSubmitter) MachineOption {
	return func(m *Machine) { m.saver = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) MachineOption {
	return func(m *Machine) { m.log = l }
}

// NewMachine creates a machine starting from initial.
func NewMachine(initial State, opts ...MachineOption) *Machine {
	m := &Machine{
		state: initial,
		opts:  DefaultOptions(),
		log:   zap.S().Named("engine"),
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.SetLedgerEntries(m.state.Ledger.Len())
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Options returns the action options in use.
func (m *Machine) Options() Options { return m.opts }

// Dispatch records a and applies it. Rejected actions return a
// *RejectedError and leave the state untouched.
func (m *Machine) Dispatch(a Action) (Record, error) {
	rec := m.opts.NewRecord(a)

	before := m.state.Ledger.Len()
	next, err := Apply(m.state, rec, m.opts)
	if err != nil {
		metrics.IncreaseActionsTotal(string(rec.Kind()), metrics.OutcomeRejected)
		m.log.Warnw("action rejected", "kind", rec.Kind(), "id", rec.ID, "error", err)
		return rec, err
	}
	m.state = next
	metrics.IncreaseActionsTotal(string(rec.Kind()), metrics.OutcomeApplied)

	added := m.state.Ledger.Len() - before
	m.log.Infow("action applied", "kind", rec.Kind(), "id", rec.ID, "migrations", added,
		"undo_depth", len(m.state.UndoStack))

	if added > 0 {
		metrics.AddMigrations(added)
		m.ledgerChanged()
	}
	return rec, nil
}

// Undo reverts the most recent action.
func (m *Machine) Undo() bool {
	next, ok := Undo(m.state)
	if !ok {
		return false
	}
	m.state = next
	metrics.IncreaseHistoryOps("undo")
	m.log.Debugw("undo", "undo_depth", len(next.UndoStack), "redo_depth", len(next.RedoStack))
	return true
}

// Redo re-applies the most recently undone action.
func (m *Machine) Redo() bool {
	next, ok := Redo(m.state, m.opts)
	if !ok {
		return false
	}
	m.state = next
	metrics.IncreaseHistoryOps("redo")
	m.log.Debugw("redo", "undo_depth", len(next.UndoStack), "redo_depth", len(next.RedoStack))
	return true
}

// SetView changes the active resource view.
func (m *Machine) SetView(v model.ResourceView) {
	m.state = m.state.WithView(v)
}

// Select replaces the VM selection.
func (m *Machine) Select(vmIDs ...string) {
	m.state = m.state.WithSelection(vmIDs...)
}

// ClearLedger empties the ledger without touching the model.
func (m *Machine) ClearLedger() {
	m.state = m.state.WithLedger(m.state.Ledger.Clear())
	m.log.Infow("ledger cleared")
	m.ledgerChanged()
}

// Reset clears the ledger and rebuilds the model from the seed. History
// and selection are dropped; ratios and view are kept.
func (m *Machine) Reset(ctx context.Context) error {
	if m.seed == nil {
		return errors.New("reset: no seed configured")
	}
	clusters, err := m.seed(ctx)
	if err != nil {
		return fmt.Errorf("reset: loading seed: %w", err)
	}
	if err := model.Validate(clusters); err != nil {
		return fmt.Errorf("reset: invalid seed: %w", err)
	}

	m.state = NewState(clusters, m.state.Ratios, m.state.ActiveView)
	m.log.Infow("state reset from seed", "clusters", len(clusters))
	m.ledgerChanged()
	return nil
}

// Export returns the ledger export document.
func (m *Machine) Export() ledger.Export {
	return m.state.Ledger.Export(m.opts.now())
}

// Utilization computes statistics for the active view.
func (m *Machine) Utilization() capacity.Utilization {
	return capacity.Compute(m.state.Clusters, m.state.ActiveView, m.state.Ratios)
}

// Layout lays out the current model for the active view.
func (m *Machine) Layout(opts layout.Options) *layout.Layout {
	return layout.Build(m.state.Clusters, m.state.ActiveView, m.state.Ratios, opts)
}

func (m *Machine) ledgerChanged() {
	metrics.SetLedgerEntries(m.state.Ledger.Len())
	if m.saver != nil {
		m.saver.Submit(m.state.Ledger.Snapshot(m.opts.now()))
	}
}
