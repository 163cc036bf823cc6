package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/store"
)

// Analyzer starts and controls background analysis runs.
type Analyzer interface {
	Start(req app.Request, done func(*app.Result, error)) (string, error)
	Current() (string, bool)
	Cancel() bool
}

// SourceKind names the input a run reads from.
type SourceKind string

const (
	SourceLandmarks SourceKind = "landmarks"
	SourceVideo     SourceKind = "video"
)

// ErrUnsupportedSource is returned by a SourceOpener that cannot open a kind.
var ErrUnsupportedSource = errors.New("unsupported source")

// SourceOpener opens the frame source of a new run.
type SourceOpener func(kind SourceKind, path string) (pose.Source, error)

// OpenLandmarks opens landmark dumps and rejects every other kind.
func OpenLandmarks(kind SourceKind, path string) (pose.Source, error) {
	if kind != SourceLandmarks {
		return nil, ErrUnsupportedSource
	}
	return pose.OpenJSONL(path)
}

// RunsHandler handles HTTP requests for run resources.
type RunsHandler struct {
	store    *store.Store
	analyzer Analyzer
	open     SourceOpener
}

// NewRunsHandler creates a new RunsHandler. A nil opener reads landmark dumps only.
func NewRunsHandler(s *store.Store, a Analyzer, open SourceOpener) *RunsHandler {
	if open == nil {
		open = OpenLandmarks
	}
	return &RunsHandler{store: s, analyzer: a, open: open}
}

// ServeHTTP routes /api/runs, /api/runs/current, /api/runs/{id},
// /api/runs/{id}/reps and /api/runs/{id}/summary.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.start(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	if id == "current" && sub == "" {
		switch r.Method {
		case http.MethodGet:
			h.current(w)
		case http.MethodDelete:
			h.cancel(w)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, id)
		case http.MethodDelete:
			h.delete(w, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case "reps", "summary":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		if sub == "reps" {
			h.reps(w, id)
		} else {
			h.summary(w, id)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type startRunRequest struct {
	Exercise  string `json:"exercise"`
	Landmarks string `json:"landmarks"`
	Video     string `json:"video"`
}

type startRunResponse struct {
	RunID  string          `json:"run_id"`
	Status store.RunStatus `json:"status"`
}

type currentRunResponse struct {
	RunID string `json:"run_id"`
}

type listRunsResponse struct {
	Runs []*store.Run `json:"runs"`
}

type listRepsResponse struct {
	Reps []store.Rep `json:"reps"`
}

type summaryResponse struct {
	Summary exercise.Summary `json:"summary"`
	Text    string           `json:"text"`
}

// list handles GET /api/runs?limit=N.
func (h *RunsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.store.Runs().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, listRunsResponse{Runs: runs})
}

// start handles POST /api/runs. The run proceeds in the background.
func (h *RunsHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ex, err := exercise.Parse(req.Exercise)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind, path := SourceLandmarks, req.Landmarks
	switch {
	case req.Landmarks != "" && req.Video != "":
		writeError(w, http.StatusBadRequest, "Only one of landmarks and video may be set")
		return
	case req.Video != "":
		kind, path = SourceVideo, req.Video
	case req.Landmarks == "":
		writeError(w, http.StatusBadRequest, "A landmarks or video path is required")
		return
	}

	if _, busy := h.analyzer.Current(); busy {
		writeError(w, http.StatusConflict, app.ErrRunInProgress.Error())
		return
	}

	src, err := h.open(kind, path)
	if err != nil {
		if errors.Is(err, ErrUnsupportedSource) {
			writeError(w, http.StatusBadRequest, "Unsupported source: "+string(kind))
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to open source: "+err.Error())
		return
	}

	id, err := h.analyzer.Start(app.Request{
		Exercise:   string(ex),
		Source:     src,
		SourceName: path,
	}, nil)
	if err != nil {
		if errors.Is(err, app.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	writeJSON(w, http.StatusAccepted, startRunResponse{RunID: id, Status: store.RunStatusRunning})
}

// current handles GET /api/runs/current.
func (h *RunsHandler) current(w http.ResponseWriter) {
	id, ok := h.analyzer.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "No run in progress")
		return
	}
	writeJSON(w, http.StatusOK, currentRunResponse{RunID: id})
}

// cancel handles DELETE /api/runs/current.
func (h *RunsHandler) cancel(w http.ResponseWriter) {
	if !h.analyzer.Cancel() {
		writeError(w, http.StatusNotFound, "No run in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// get handles GET /api/runs/{id}.
func (h *RunsHandler) get(w http.ResponseWriter, id string) {
	run, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// delete handles DELETE /api/runs/{id}. The active run cannot be deleted.
func (h *RunsHandler) delete(w http.ResponseWriter, id string) {
	if current, ok := h.analyzer.Current(); ok && current == id {
		writeError(w, http.StatusConflict, "Run is in progress")
		return
	}

	if err := h.store.Runs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reps handles GET /api/runs/{id}/reps.
func (h *RunsHandler) reps(w http.ResponseWriter, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	reps, err := h.store.Reps().ListByRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reps")
		return
	}
	writeJSON(w, http.StatusOK, listRepsResponse{Reps: reps})
}

// summary handles GET /api/runs/{id}/summary.
func (h *RunsHandler) summary(w http.ResponseWriter, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	events, err := h.store.Reps().Events(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reps")
		return
	}
	s := exercise.Summarize(events)
	writeJSON(w, http.StatusOK, summaryResponse{Summary: s, Text: s.Text()})
}

func (h *RunsHandler) lookup(w http.ResponseWriter, id string) (*store.Run, bool) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return nil, false
	}
	return run, true
}
