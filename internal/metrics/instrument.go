package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	namespace = "capviz"

	// Labels
	kindLabel    = "kind"
	outcomeLabel = "outcome"
	backendLabel = "backend"
	opLabel      = "op"

	// Outcomes
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
)

// Registry holds every capviz metric. It is separate from the default
// registry so that tests and batch runs see only engine metrics.
var Registry = prometheus.NewRegistry()

var actionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "number of actions dispatched to the engine",
	},
	[]string{kindLabel, outcomeLabel},
)

var historyOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_operations_total",
		Help:      "number of undo and redo operations that changed state",
	},
	[]string{opLabel},
)

var ledgerEntries = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_entries",
		Help:      "current number of migration ledger entries",
	},
)

var migrationsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migrations_recorded_total",
		Help:      "number of VM migrations recorded in the ledger",
	},
)

var persistSavesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_saves_total",
		Help:      "number of ledger snapshot saves by backend and outcome",
	},
	[]string{backendLabel, outcomeLabel},
)

func init() {
	Registry.MustRegister(actionsTotal)
	Registry.MustRegister(historyOpsTotal)
	Registry.MustRegister(ledgerEntries)
	Registry.MustRegister(migrationsTotal)
	Registry.MustRegister(persistSavesTotal)
}

// IncreaseActionsTotal counts one dispatched action.
func IncreaseActionsTotal(kind, outcome string) {
	actionsTotal.With(prometheus.Labels{kindLabel: kind, outcomeLabel: outcome}).Inc()
}

// IncreaseHistoryOps counts one undo or redo.
func IncreaseHistoryOps(op string) {
	historyOpsTotal.With(prometheus.Labels{opLabel: op}).Inc()
}

// SetLedgerEntries records the current ledger size.
func SetLedgerEntries(n int) {
	ledgerEntries.Set(float64(n))
}

// AddMigrations counts newly recorded migrations.
func AddMigrations(n int) {
	migrationsTotal.Add(float64(n))
}

// IncreasePersistSaves counts one snapshot save attempt.
func IncreasePersistSaves(backend, outcome string) {
	persistSavesTotal.With(prometheus.Labels{backendLabel: backend, outcomeLabel: outcome}).Inc()
}

// WriteText writes every registered metric in the text exposition format.
func WriteText(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile writes the metrics to path for a node_exporter textfile
// collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteText(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming metrics file: %w", err)
	}
	return nil
}
