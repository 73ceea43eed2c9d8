package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/engine"
	"github.com/guimove/capviz/internal/layout"
	"github.com/guimove/capviz/internal/model"
	"github.com/guimove/capviz/internal/placement"
)

func inventory() []model.Cluster {
	return []model.Cluster{
		{ID: "c1", Name: "Prod", IsVisible: true, Hosts: []model.Host{
			{ID: "h1", Name: "esx-01", ClusterID: "c1", TotalCPUCores: 10, TotalMemoryGB: 64, TotalStorageGB: 500, VMs: []model.VM{
				{ID: "vm-1", Name: "web-01", HostID: "h1", ClusterID: "c1", AllocatedCPU: 4, AllocatedMemoryGB: 8, ProvisionedStorageGB: 50},
			}},
			{ID: "h2", Name: "esx-02", ClusterID: "c1", TotalCPUCores: 10, TotalMemoryGB: 64, TotalStorageGB: 500, VMs: []model.VM{}},
		}},
	}
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	m := engine.NewMachine(
		engine.NewState(inventory(), model.DefaultRatios(), model.ViewCPU),
		engine.WithOptions(opts),
		engine.WithSeed(func(context.Context) ([]model.Cluster, error) { return inventory(), nil }),
	)
	s := New(m, layout.DefaultOptions())
	return s, s.Router(zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	do(t, h, http.MethodPost, "/api/actions", engine.ActionSpec{Type: "LOCK_VM", VMIDs: []string{"vm-1"}})
	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "capviz_actions_total")
}

func TestMoveUndoRedoFlow(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/actions", engine.ActionSpec{Type: "MOVE_VMS", VMIDs: []string{"vm-1"}, TargetHostID: "h2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reply := decode[ActionReply](t, rec)
	assert.Equal(t, engine.KindMoveVMs, reply.Record.Kind())
	assert.True(t, reply.State.CanUndo)
	assert.Equal(t, 1, reply.State.LedgerEntries)
	assert.Len(t, reply.State.Clusters[0].Hosts[1].VMs, 1)

	rec = do(t, h, http.MethodPost, "/api/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StateReply](t, rec)
	assert.Len(t, st.Clusters[0].Hosts[0].VMs, 1)
	assert.True(t, st.CanRedo)
	assert.Equal(t, 1, st.LedgerEntries)

	rec = do(t, h, http.MethodPost, "/api/redo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[StateReply](t, rec)
	assert.Len(t, st.Clusters[0].Hosts[1].VMs, 1)
	require.Len(t, st.History, 1)

	rec = do(t, h, http.MethodPost, "/api/redo", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostAction_Errors(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/actions", engine.ActionSpec{Type: "MOVE_VMS", VMIDs: []string{"vm-1"}, TargetHostID: "h404"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	e := decode[ErrorReply](t, rec)
	assert.Contains(t, e.Reason, "h404")

	rec = do(t, h, http.MethodPost, "/api/actions", engine.ActionSpec{Type: "FORMAT_DISK"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/actions", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	st := decode[StateReply](t, do(t, h, http.MethodGet, "/api/state", nil))
	assert.False(t, st.CanUndo)
}

func TestPostPlacement(t *testing.T) {
	s, h := newTestServer(t)
	drain := placementRequest{Request: placement.Request{DrainHostIDs: []string{"h1"}}}

	rec := do(t, h, http.MethodPost, "/api/placements", drain)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reply := decode[PlacementReply](t, rec)
	require.Len(t, reply.Placements, 1)
	assert.Equal(t, "h2", reply.Placements[0].TargetHostID)
	assert.Equal(t, placement.BestFit, reply.Summary.Strategy)
	assert.Empty(t, reply.Applied)
	assert.Nil(t, reply.State)
	assert.Equal(t, 0, s.machine.State().Ledger.Len(), "a dry run dispatches nothing")

	drain.Apply = true
	rec = do(t, h, http.MethodPost, "/api/placements", drain)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reply = decode[PlacementReply](t, rec)
	require.Len(t, reply.Applied, 1)
	assert.Equal(t, engine.KindMoveVMs, reply.Applied[0].Kind())
	require.NotNil(t, reply.State)
	assert.Equal(t, 1, reply.State.LedgerEntries)
	assert.True(t, reply.State.CanUndo)
	assert.Len(t, reply.State.Clusters[0].Hosts[1].VMs, 1)

	rec = do(t, h, http.MethodPost, "/api/placements", placementRequest{Request: placement.Request{VMIDs: []string{"vm-404"}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorReply](t, rec).Error, "vm-404")
}

func TestPostPlacement_ServerDefaults(t *testing.T) {
	m := engine.NewMachine(engine.NewState(inventory(), model.DefaultRatios(), model.ViewCPU))
	h := New(m, layout.DefaultOptions(), WithPlacementDefaults(placement.FirstFit, capacity.HANone)).Router(zap.NewNop())

	rec := do(t, h, http.MethodPost, "/api/placements", placementRequest{
		Request: placement.Request{VMIDs: []string{"vm-1"}},
		Apply:   true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reply := decode[PlacementReply](t, rec)
	assert.Equal(t, placement.FirstFit, reply.Summary.Strategy)
	// First fit keeps vm-1 on h1, so there is nothing to dispatch.
	assert.Equal(t, 0, reply.Summary.Moves)
	assert.Empty(t, reply.Applied)
	assert.Equal(t, 0, m.State().Ledger.Len())
}

func TestViewSelectionAndUtilization(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/view", viewRequest{View: "memory"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ViewMemory, decode[StateReply](t, rec).ActiveView)

	rec = do(t, h, http.MethodPut, "/api/view", viewRequest{View: "gpu"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/selection", selectionRequest{VMIDs: []string{"vm-2", "vm-1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"vm-1", "vm-2"}, decode[StateReply](t, rec).SelectedVMIDs)

	rec = do(t, h, http.MethodGet, "/api/utilization", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var u struct {
		View       string `json:"view"`
		PerCluster map[string]struct {
			UtilizationPct float64 `json:"utilization_pct"`
		} `json:"per_cluster"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "memory", u.View)
	// 8 GB on 128 GB at 1.5:1
	assert.InDelta(t, 4.1667, u.PerCluster["c1"].UtilizationPct, 0.001)

	rec = do(t, h, http.MethodGet, "/api/utilization?view=cpu", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.InDelta(t, 5.0, u.PerCluster["c1"].UtilizationPct, 0.001)
}

func TestGetLayout(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/layout?width=600&height=400&focus=h1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		FocusID string `json:"focus_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "h1", body.FocusID)

	rec = do(t, h, http.MethodGet, "/api/layout?focus=vm:vm-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "vm-1", body.FocusID)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/layout?focus=nope", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/layout?width=-3", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/layout?view=gpu", nil).Code)
}

func TestLedgerExportClearAndReset(t *testing.T) {
	s, h := newTestServer(t)

	do(t, h, http.MethodPost, "/api/actions", engine.ActionSpec{Type: "MOVE_VMS", VMIDs: []string{"vm-1"}, TargetHostID: "h2"})

	rec := do(t, h, http.MethodGet, "/api/ledger/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	var exp struct {
		TotalMigrations int `json:"total_migrations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exp))
	assert.Equal(t, 1, exp.TotalMigrations)

	rec = do(t, h, http.MethodDelete, "/api/ledger", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.machine.State().Ledger.Len())
	assert.Len(t, s.machine.State().Clusters[0].Hosts[1].VMs, 1, "clearing the ledger keeps the model")

	rec = do(t, h, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StateReply](t, rec)
	assert.Len(t, st.Clusters[0].Hosts[0].VMs, 1)
	assert.False(t, st.CanUndo)
}
