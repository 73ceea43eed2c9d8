package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/engine"
	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/report"
)

// History steps accepted in a plan next to the engine action types.
const (
	StepUndo = "UNDO"
	StepRedo = "REDO"
)

// Plan is a scripted sequence of actions, read from YAML or JSON.
type Plan struct {
	Description string              `json:"description,omitempty"`
	Fresh       bool                `json:"fresh,omitempty"` // clear the restored ledger first
	Steps       []engine.ActionSpec `json:"steps"`
}

// LoadPlan reads a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan file %s: %w", path, err)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("plan %s has no steps", path)
	}
	return &p, nil
}

// StepResult is the outcome of one plan step.
type StepResult struct {
	Index  int            `json:"index"`
	Type   string         `json:"type"`
	Record *engine.Record `json:"record,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// SimulationResult summarizes a plan run.
type SimulationResult struct {
	Steps       []StepResult          `json:"steps"`
	Applied     int                   `json:"applied"`
	Rejected    int                   `json:"rejected"`
	Utilization capacity.Utilization  `json:"utilization"`
	Bottlenecks []capacity.Bottleneck `json:"bottlenecks"`
	Export      ledger.Export         `json:"export"`
}

// RunPlan applies every step of p to m in order. Rejected actions are
// recorded and skipped; a malformed step aborts the run.
func RunPlan(m *engine.Machine, p *Plan) (*SimulationResult, error) {
	if p.Fresh {
		m.ClearLedger()
	}

	res := &SimulationResult{Steps: make([]StepResult, 0, len(p.Steps))}
	for i, step := range p.Steps {
		sr := StepResult{Index: i, Type: strings.ToUpper(strings.TrimSpace(step.Type))}

		switch sr.Type {
		case StepUndo:
			if !m.Undo() {
				sr.Error = "nothing to undo"
			}
		case StepRedo:
			if !m.Redo() {
				sr.Error = "nothing to redo"
			}
		default:
			a, err := step.Action()
			if err != nil {
				return res, fmt.Errorf("step %d: %w", i+1, err)
			}
			rec, err := m.Dispatch(a)
			if err != nil {
				if !errors.Is(err, engine.ErrActionRejected) {
					return res, fmt.Errorf("step %d: %w", i+1, err)
				}
				sr.Error = err.Error()
				res.Rejected++
			} else {
				sr.Record = &rec
				res.Applied++
			}
		}
		res.Steps = append(res.Steps, sr)
	}

	res.Utilization = m.Utilization()
	res.Bottlenecks = capacity.Assess(m.State().Clusters, res.Utilization)
	res.Export = m.Export()
	return res, nil
}

// Simulate opens a session, runs the plan and writes the resulting
// utilization and ledger. The ledger is saved before Simulate returns.
func (o *Orchestrator) Simulate(ctx context.Context, p *Plan) (*SimulationResult, error) {
	session, err := o.Open(ctx)
	if err != nil {
		return nil, err
	}

	res, err := RunPlan(session.Machine, p)
	if cerr := session.Close(); cerr != nil {
		o.log.Warnw("ledger could not be persisted", "store", o.Store.Name(), "error", cerr)
	}
	if err != nil {
		return res, err
	}
	o.log.Infow("plan finished", "steps", len(p.Steps), "applied", res.Applied, "rejected", res.Rejected,
		"migrations", res.Export.TotalMigrations)

	if o.Config.Output.Format == "json" {
		if err := report.WriteJSON(o.Writer, res); err != nil {
			return res, err
		}
		return res, nil
	}

	for _, s := range res.Steps {
		if s.Error != "" {
			fmt.Fprintf(o.Writer, "step %d (%s): %s\n", s.Index+1, s.Type, s.Error)
		}
	}
	v := report.UtilizationView{
		Utilization: res.Utilization,
		Bottlenecks: res.Bottlenecks,
		Clusters:    session.Machine.State().Clusters,
	}
	if o.Config.Output.Format != "xlsx" {
		if err := report.WriteUtilization(o.Writer, o.Config.Output.Format, v); err != nil {
			return res, fmt.Errorf("generating report: %w", err)
		}
	}
	return res, o.report(ctx, res.Export)
}
