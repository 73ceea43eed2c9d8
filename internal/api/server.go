// Package api exposes the engine over HTTP for a rendering client. All
// requests go through one Machine guarded by a mutex, so the engine sees a
// single writer.
package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/guimove/capviz/internal/capacity"
	"github.com/guimove/capviz/internal/engine"
	"github.com/guimove/capviz/internal/layout"
	"github.com/guimove/capviz/internal/ledger"
	"github.com/guimove/capviz/internal/log"
	"github.com/guimove/capviz/internal/metrics"
	"github.com/guimove/capviz/internal/model"
	"github.com/guimove/capviz/internal/placement"
)

// Server serves the engine API.
type Server struct {
	mu      sync.Mutex
	machine *engine.Machine
	layout  layout.Options
	log     *zap.SugaredLogger

	strategy placement.Strategy
	haPolicy capacity.HAPolicy
}

// Option configures a Server.
type Option func(*Server)

// WithPlacementDefaults sets the strategy and HA policy used by
// POST /api/placements when the request leaves them empty.
func WithPlacementDefaults(strategy placement.Strategy, policy capacity.HAPolicy) Option {
	return func(s *Server) {
		s.strategy = strategy
		s.haPolicy = policy
	}
}

// New creates a server around m. layoutOpts are the defaults for
// GET /api/layout.
func New(m *engine.Machine, layoutOpts layout.Options, opts ...Option) *Server {
	s := &Server{
		machine: m,
		layout:  layoutOpts,
		log:     zap.S().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler. Requests are logged through l.
func (s *Server) Router(l *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Logger(l, "http"))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/utilization", s.getUtilization)
		r.Get("/layout", s.getLayout)
		r.Post("/actions", s.postAction)
		r.Post("/placements", s.postPlacement)
		r.Post("/undo", s.postUndo)
		r.Post("/redo", s.postRedo)
		r.Put("/view", s.putView)
		r.Put("/selection", s.putSelection)
		r.Get("/ledger/export", s.getExport)
		r.Delete("/ledger", s.deleteLedger)
		r.Post("/reset", s.postReset)
	})
	return r
}

// StateReply describes the current engine state.
type StateReply struct {
	Clusters      []model.Cluster        `json:"clusters"`
	Ratios        model.OvercommitRatios `json:"ratios"`
	ActiveView    model.ResourceView     `json:"active_view"`
	SelectedVMIDs []string               `json:"selected_vm_ids"`
	CanUndo       bool                   `json:"can_undo"`
	CanRedo       bool                   `json:"can_redo"`
	History       []engine.Record        `json:"history"`
	LedgerEntries int                    `json:"ledger_entries"`
}

func (StateReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// UtilizationReply is the calculator output plus bottlenecks.
type UtilizationReply struct {
	capacity.Utilization
	Bottlenecks []capacity.Bottleneck `json:"bottlenecks"`
}

func (UtilizationReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// LayoutReply wraps a layout for rendering.
type LayoutReply struct {
	*layout.Layout
}

func (LayoutReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// ActionReply reports an applied action.
type ActionReply struct {
	Record engine.Record `json:"record"`
	State  StateReply    `json:"state"`
}

func (ActionReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusCreated)
	return nil
}

// PlacementReply is a placement recommendation, with the records of the
// moves when it was applied.
type PlacementReply struct {
	*placement.Result
	Applied []engine.Record `json:"applied,omitempty"`
	State   *StateReply     `json:"state,omitempty"`
}

func (p PlacementReply) Render(w http.ResponseWriter, r *http.Request) error {
	if len(p.Applied) > 0 {
		render.Status(r, http.StatusCreated)
	}
	return nil
}

type placementRequest struct {
	placement.Request
	Apply bool `json:"apply"`
}

// ExportReply is the ledger export document.
type ExportReply struct {
	ledger.Export
}

func (ExportReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// ErrorReply carries an error message.
type ErrorReply struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	status int
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

func errorReply(status int, err error) ErrorReply {
	reply := ErrorReply{Error: err.Error(), status: status}
	var rej *engine.RejectedError
	if errors.As(err, &rej) {
		reply.Reason = rej.Reason
	}
	return reply
}

type viewRequest struct {
	View string `json:"view"`
}

type selectionRequest struct {
	VMIDs []string `json:"vm_ids"`
}

func (s *Server) stateReply() StateReply {
	st := s.machine.State()
	selected := st.SelectedVMIDs.UnsortedList()
	sort.Strings(selected)

	history := make([]engine.Record, 0, len(st.UndoStack))
	for _, e := range st.UndoStack {
		history = append(history, e.Action)
	}

	return StateReply{
		Clusters:      st.Clusters,
		Ratios:        st.Ratios,
		ActiveView:    st.ActiveView,
		SelectedVMIDs: selected,
		CanUndo:       st.CanUndo(),
		CanRedo:       st.CanRedo(),
		History:       history,
		LedgerEntries: st.Ledger.Len(),
	}
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reply := s.stateReply()
	s.mu.Unlock()
	_ = render.Render(w, r, reply)
}

// viewParam returns the ?view= parameter or the active view.
func (s *Server) viewParam(r *http.Request) (model.ResourceView, error) {
	if v := r.URL.Query().Get("view"); v != "" {
		return model.ParseResourceView(v)
	}
	return s.machine.State().ActiveView, nil
}

func (s *Server) getUtilization(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	view, err := s.viewParam(r)
	st := s.machine.State()
	s.mu.Unlock()
	if err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}

	u := capacity.Compute(st.Clusters, view, st.Ratios)
	_ = render.Render(w, r, UtilizationReply{Utilization: u, Bottlenecks: capacity.Assess(st.Clusters, u)})
}

func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	view, err := s.viewParam(r)
	st := s.machine.State()
	s.mu.Unlock()
	if err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}

	opts := s.layout
	q := r.URL.Query()
	for name, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			_ = render.Render(w, r, errorReply(http.StatusBadRequest, errors.New(name+" must be a positive number")))
			return
		}
		*dst = v
	}

	l := layout.Build(st.Clusters, view, st.Ratios, opts)
	if focus := q.Get("focus"); focus != "" {
		if err := l.ZoomTo(focus); err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, layout.ErrNodeNotFound) {
				status = http.StatusNotFound
			}
			_ = render.Render(w, r, errorReply(status, err))
			return
		}
	}
	_ = render.Render(w, r, LayoutReply{Layout: l})
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	var spec engine.ActionSpec
	if err := render.DecodeJSON(r.Body, &spec); err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}
	a, err := spec.Action()
	if err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}

	s.mu.Lock()
	rec, err := s.machine.Dispatch(a)
	reply := s.stateReply()
	s.mu.Unlock()

	if err != nil {
		_ = render.Render(w, r, errorReply(http.StatusUnprocessableEntity, err))
		return
	}
	_ = render.Render(w, r, ActionReply{Record: rec, State: reply})
}

func (s *Server) postPlacement(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}
	if req.Strategy == "" {
		req.Strategy = s.strategy
	}
	if req.HAPolicy == "" {
		req.HAPolicy = s.haPolicy
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.machine.State()
	res, err := placement.Plan(st.Clusters, st.Ratios, req.Request)
	if err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}
	reply := PlacementReply{Result: res}
	if !req.Apply {
		_ = render.Render(w, r, reply)
		return
	}

	reply.Applied, err = res.Apply(s.machine)
	if err != nil {
		_ = render.Render(w, r, errorReply(http.StatusUnprocessableEntity, err))
		return
	}
	state := s.stateReply()
	reply.State = &state
	s.log.Infow("placement applied", "strategy", res.Summary.Strategy, "moves", res.Summary.Moves,
		"actions", len(reply.Applied))
	_ = render.Render(w, r, reply)
}

func (s *Server) postUndo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, s.machine.Undo, "nothing to undo")
}

func (s *Server) postRedo(w http.ResponseWriter, r *http.Request) {
	s.history(w, r, s.machine.Redo, "nothing to redo")
}

func (s *Server) history(w http.ResponseWriter, r *http.Request, op func() bool, empty string) {
	s.mu.Lock()
	ok := op()
	reply := s.stateReply()
	s.mu.Unlock()

	if !ok {
		_ = render.Render(w, r, errorReply(http.StatusConflict, errors.New(empty)))
		return
	}
	_ = render.Render(w, r, reply)
}

func (s *Server) putView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}
	view, err := model.ParseResourceView(req.View)
	if err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}

	s.mu.Lock()
	s.machine.SetView(view)
	reply := s.stateReply()
	s.mu.Unlock()
	_ = render.Render(w, r, reply)
}

func (s *Server) putSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		_ = render.Render(w, r, errorReply(http.StatusBadRequest, err))
		return
	}

	s.mu.Lock()
	s.machine.Select(req.VMIDs...)
	reply := s.stateReply()
	s.mu.Unlock()
	_ = render.Render(w, r, reply)
}

func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	exp := s.machine.Export()
	s.mu.Unlock()

	w.Header().Add("Content-Disposition", `attachment; filename="migrations.json"`)
	_ = render.Render(w, r, ExportReply{Export: exp})
}

func (s *Server) deleteLedger(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.machine.ClearLedger()
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.machine.Reset(r.Context())
	reply := s.stateReply()
	s.mu.Unlock()

	if err != nil {
		s.log.Errorw("reset failed", "error", err)
		_ = render.Render(w, r, errorReply(http.StatusInternalServerError, err))
		return
	}
	_ = render.Render(w, r, reply)
}
