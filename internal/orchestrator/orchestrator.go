package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/config"
	"github.com/guimove/capviz/internal/engine"
	"github.com/guimove/capviz/internal/layout"
	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/model"
	"github.com/guimove/capviz/internal/persist"
	"github.com/guimove/capviz/internal/placement"
	"github.com/guimove/capviz/internal/report"
	"github.com/guimove/capviz/internal/seed"
)

// Orchestrator wires the seed source, the ledger store and the engine
// together according to the configuration.
type Orchestrator struct {
	Source seed.Source
	Store  persist.Store
	Config config.Config
	Writer io.Writer
	Now    func() time.Time

	log *zap.SugaredLogger
}

// New creates an orchestrator with the given dependencies.
func New(source seed.Source, store persist.Store, cfg config.Config) *Orchestrator {
	return &Orchestrator{
		Source: source,
		Store:  store,
		Config: cfg,
		Writer: os.Stdout,
		Now:    func() time.Time { return time.Now().UTC() },
		log:    zap.S().Named("orchestrator"),
	}
}

// Session is an engine instance bound to the ledger store.
type Session struct {
	Machine *engine.Machine
	Saver   *persist.Saver
}

// Close flushes pending ledger saves and stops the saver.
func (s *Session) Close() error {
	return s.Saver.Close()
}

// EngineOptions translates the engine section of the config.
func (o *Orchestrator) EngineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.LockPolicy = engine.LockPolicy(o.Config.Engine.LockPolicy)
	opts.MaxHistory = o.Config.Engine.MaxHistory
	if o.Now != nil {
		opts.Now = o.Now
	}
	return opts
}

// LayoutOptions translates the layout section of the config.
func (o *Orchestrator) LayoutOptions() layout.Options {
	l := o.Config.Layout
	return layout.Options{
		Width:          l.Width,
		Height:         l.Height,
		LevelBand:      l.LevelBand,
		Padding:        l.Padding,
		ClusterSpacing: l.ClusterSpacing,
	}
}

// Ratios returns the configured overcommit ratios.
func (o *Orchestrator) Ratios() model.OvercommitRatios {
	return model.OvercommitRatios{CPU: o.Config.Engine.CPURatio, Memory: o.Config.Engine.MemoryRatio}.Normalize()
}

// View returns the configured resource view.
func (o *Orchestrator) View() model.ResourceView {
	v, err := model.ParseResourceView(o.Config.Engine.View)
	if err != nil {
		return model.ViewCPU
	}
	return v
}

// HAPolicy returns the configured HA reserve policy.
func (o *Orchestrator) HAPolicy() capacity.HAPolicy {
	p, err := capacity.ParseHAPolicy(o.Config.Engine.HAPolicy)
	if err != nil {
		return capacity.HANone
	}
	return p
}

// LoadInventory loads and validates the seed inventory.
func (o *Orchestrator) LoadInventory(ctx context.Context) ([]model.Cluster, error) {
	clusters, err := o.Source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading inventory from %s source: %w", o.Source.Name(), err)
	}
	if err := model.Validate(clusters); err != nil {
		return nil, fmt.Errorf("invalid inventory from %s source: %w", o.Source.Name(), err)
	}
	return clusters, nil
}

// Open loads the inventory, restores the persisted ledger and starts an
// engine whose ledger changes are saved in the background.
func (o *Orchestrator) Open(ctx context.Context) (*Session, error) {
	clusters, err := o.LoadInventory(ctx)
	if err != nil {
		return nil, err
	}

	state := engine.NewState(clusters, o.Ratios(), o.View())

	snap, err := o.Store.Load(ctx)
	switch {
	case err != nil:
		// the session continues in memory; the next save overwrites the store
		o.log.Warnw("could not restore ledger, starting empty", "store", o.Store.Name(), "error", err)
	case snap != nil:
		state = state.WithLedger(ledger.FromSnapshot(snap))
		o.log.Infow("ledger restored", "store", o.Store.Name(), "migrations", len(snap.Migrations),
			"last_saved_at", snap.LastSavedAt)
	}

	saver := persist.NewSaver(o.Store,
		persist.WithTimeout(o.Config.Persistence.SaveTimeout),
		persist.WithSaverLogger(zap.S().Named("persist")),
	)
	m := engine.NewMachine(state,
		engine.WithOptions(o.EngineOptions()),
		engine.WithSaver(saver),
		engine.WithSeed(o.Source.Load),
		engine.WithLogger(zap.S().Named("engine")),
	)

	o.log.Infow("session opened", "source", o.Source.Name(), "clusters", len(clusters),
		"ratios", state.Ratios.String(), "view", state.ActiveView)
	return &Session{Machine: m, Saver: saver}, nil
}

// Inspect writes the utilization of the seed inventory for the configured view.
func (o *Orchestrator) Inspect(ctx context.Context) (report.UtilizationView, error) {
	clusters, err := o.LoadInventory(ctx)
	if err != nil {
		return report.UtilizationView{}, err
	}

	u := capacity.Compute(clusters, o.View(), o.Ratios())
	v := report.UtilizationView{Utilization: u, Bottlenecks: capacity.Assess(clusters, u), Clusters: clusters}
	if policy := o.HAPolicy(); policy != capacity.HANone {
		v.Headroom = capacity.ComputeHeadroom(clusters, o.View(), o.Ratios(), policy)
	}
	if err := report.WriteUtilization(o.Writer, o.Config.Output.Format, v); err != nil {
		return v, fmt.Errorf("generating report: %w", err)
	}
	return v, nil
}

// WhatIf compares the seed inventory under several ratio sets.
func (o *Orchestrator) WhatIf(ctx context.Context, ratios []model.OvercommitRatios) ([]capacity.RatioScenario, error) {
	if len(ratios) == 0 {
		return nil, errors.New("no ratio sets given")
	}
	clusters, err := o.LoadInventory(ctx)
	if err != nil {
		return nil, err
	}

	scenarios := capacity.CompareRatios(clusters, o.View(), ratios)
	if err := report.WriteScenarios(o.Writer, o.Config.Output.Format, clusters, scenarios); err != nil {
		return nil, fmt.Errorf("generating report: %w", err)
	}
	return scenarios, nil
}

// Place recommends targets for req. Empty strategy and HA policy fall back
// to the configuration. With apply set the moves are dispatched on a session
// and saved to the ledger; the returned records are those applied.
func (o *Orchestrator) Place(ctx context.Context, req placement.Request, apply bool) (*placement.Result, []engine.Record, error) {
	if req.Strategy == "" {
		req.Strategy = placement.Strategy(o.Config.Placement.Strategy)
	}
	if req.HAPolicy == "" {
		req.HAPolicy = o.HAPolicy()
	}

	var (
		res     *placement.Result
		records []engine.Record
	)
	if apply {
		session, err := o.Open(ctx)
		if err != nil {
			return nil, nil, err
		}
		st := session.Machine.State()
		res, err = placement.Plan(st.Clusters, st.Ratios, req)
		if err == nil {
			records, err = res.Apply(session.Machine)
		}
		if cerr := session.Close(); cerr != nil {
			o.log.Warnw("ledger could not be persisted", "store", o.Store.Name(), "error", cerr)
		}
		if err != nil {
			return res, records, err
		}
	} else {
		clusters, err := o.LoadInventory(ctx)
		if err != nil {
			return nil, nil, err
		}
		if res, err = placement.Plan(clusters, o.Ratios(), req); err != nil {
			return nil, nil, err
		}
	}

	o.log.Infow("placement computed", "strategy", res.Summary.Strategy, "placed", res.Summary.Placed,
		"unplaced", res.Summary.Unplaced, "moves", res.Summary.Moves, "applied", len(records))
	if err := report.WritePlacement(o.Writer, o.Config.Output.Format, res); err != nil {
		return res, records, fmt.Errorf("generating report: %w", err)
	}
	return res, records, nil
}

// Layout computes the partition layout of the seed inventory, zoomed to
// focusID when it is not empty.
func (o *Orchestrator) Layout(ctx context.Context, focusID string) (*layout.Layout, error) {
	clusters, err := o.LoadInventory(ctx)
	if err != nil {
		return nil, err
	}

	l := layout.Build(clusters, o.View(), o.Ratios(), o.LayoutOptions())
	if focusID != "" {
		if err := l.ZoomTo(focusID); err != nil {
			return nil, fmt.Errorf("zooming to %q: %w", focusID, err)
		}
	}
	return l, nil
}

// Export renders the persisted ledger.
func (o *Orchestrator) Export(ctx context.Context) (ledger.Export, error) {
	snap, err := o.Store.Load(ctx)
	if err != nil {
		return ledger.Export{}, fmt.Errorf("loading ledger from %s store: %w", o.Store.Name(), err)
	}
	var l ledger.Ledger
	if snap != nil {
		l = ledger.FromSnapshot(snap)
	}

	exp := l.Export(o.Now())
	if err := o.report(ctx, exp); err != nil {
		return exp, err
	}
	return exp, nil
}

func (o *Orchestrator) report(ctx context.Context, exp ledger.Export) error {
	reporter := report.NewReporter(o.Config.Output.Format, o.Writer)
	meta := report.Meta{
		Source:      o.Source.Name(),
		GeneratedAt: o.Now(),
		View:        o.View(),
		Ratios:      o.Ratios(),
		Store:       o.Store.Name(),
	}
	if err := reporter.Report(ctx, exp, meta); err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	return nil
}

// ClearLedger overwrites the persisted ledger with an empty one.
func (o *Orchestrator) ClearLedger(ctx context.Context) error {
	if err := o.Store.Save(ctx, ledger.Ledger{}.Snapshot(o.Now())); err != nil {
		return fmt.Errorf("clearing ledger in %s store: %w", o.Store.Name(), err)
	}
	o.log.Infow("ledger cleared", "store", o.Store.Name())
	return nil
}
