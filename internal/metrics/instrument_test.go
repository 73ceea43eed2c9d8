package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(actionsTotal.WithLabelValues("MOVE_VMS", OutcomeApplied))
	IncreaseActionsTotal("MOVE_VMS", OutcomeApplied)
	after := testutil.ToFloat64(actionsTotal.WithLabelValues("MOVE_VMS", OutcomeApplied))
	assert.Equal(t, before+1, after)

	SetLedgerEntries(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(ledgerEntries))

	beforeSaves := testutil.ToFloat64(persistSavesTotal.WithLabelValues("file", OutcomeFailure))
	IncreasePersistSaves("file", OutcomeFailure)
	assert.Equal(t, beforeSaves+1, testutil.ToFloat64(persistSavesTotal.WithLabelValues("file", OutcomeFailure)))
}

func TestWriteText(t *testing.T) {
	IncreaseHistoryOps("undo")
	AddMigrations(2)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf))

	out := buf.String()
	assert.True(t, strings.Contains(out, "capviz_history_operations_total"))
	assert.True(t, strings.Contains(out, "capviz_migrations_recorded_total"))
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capviz.prom")
	SetLedgerEntries(3)

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "capviz_ledger_entries 3")
}
