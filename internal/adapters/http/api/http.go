// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/bjjscore/internal/adapters/handle"
	service "github.com/okian/bjjscore/internal/app"
	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/types"
	"github.com/okian/bjjscore/internal/export"
	"github.com/okian/bjjscore/pkg/logger"
)

const maxBodyBytes = 1 << 20

// ProjectDependencies covers catalog operations.
type ProjectDependencies interface {
	Projects() []model.Project
	Project(id uuid.UUID) (model.Project, error)
	CurrentProject() model.Project
	CreateProject(ctx context.Context, title string) (model.Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, patch types.ProjectPatch) (model.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
	SelectProject(ctx context.Context, id uuid.UUID) (model.Project, error)
	ImportSource(ctx context.Context, path string) (model.Project, error)
}

// TimelineDependencies covers event and note editing on the active project.
type TimelineDependencies interface {
	Timeline() types.TimelineView
	AddEvent(ctx context.Context, ev model.ScoreEvent) (model.ScoreEvent, error)
	UpdateEvent(ctx context.Context, ev model.ScoreEvent) (model.ScoreEvent, error)
	RemoveEvent(ctx context.Context, id uuid.UUID) error
	Undo(ctx context.Context) (bool, error)
	Redo(ctx context.Context) (bool, error)
	ScoreAt(t float64) model.ScoreState
	AddNote(ctx context.Context, n model.Note) (model.Note, error)
	RemoveNote(ctx context.Context, id uuid.UUID) error
	NotesNear(t float64) []model.Note
}

// ExportDependencies covers the export lifecycle.
type ExportDependencies interface {
	StartExport(ctx context.Context) (*export.Run, error)
	CancelExport() bool
	ExportStatus() export.Status
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ProjectDependencies
	TimelineDependencies
	ExportDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	log             logger.Logger
	statusHandler   *StatusHandler
	projectsHandler *ProjectsHandler
	timelineHandler *TimelineHandler
	exportHandler   *ExportHandler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger used for request failures and panics.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		log:             logger.NewNop(),
		statusHandler:   NewStatusHandler(deps),
		projectsHandler: NewProjectsHandler(deps),
		timelineHandler: NewTimelineHandler(deps),
		exportHandler:   NewExportHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, Instrument(endpoint, s.log, h))
	}

	route("GET /healthz", "healthz", s.statusHandler.HandleHealth)
	mux.Handle("GET /metrics", s.statusHandler.MetricsHandler())
	route("GET /stats", "stats", s.statusHandler.HandleStats)

	p := s.projectsHandler
	route("GET /projects", "projects", p.HandleList)
	route("POST /projects", "projects", p.HandleCreate)
	route("GET /projects/{id}", "project", p.HandleGet)
	route("PUT /projects/{id}", "project", p.HandleUpdate)
	route("DELETE /projects/{id}", "project", p.HandleDelete)
	route("POST /projects/{id}/select", "project_select", p.HandleSelect)
	route("POST /source", "source", p.HandleImportSource)

	t := s.timelineHandler
	route("GET /timeline", "timeline", t.HandleGet)
	route("POST /timeline/events", "timeline_events", t.HandleAddEvent)
	route("PUT /timeline/events/{id}", "timeline_event", t.HandleUpdateEvent)
	route("DELETE /timeline/events/{id}", "timeline_event", t.HandleRemoveEvent)
	route("POST /timeline/undo", "timeline_undo", t.HandleUndo)
	route("POST /timeline/redo", "timeline_redo", t.HandleRedo)
	route("GET /timeline/score", "timeline_score", t.HandleScore)
	route("GET /timeline/notes", "timeline_notes", t.HandleNotesNear)
	route("POST /timeline/notes", "timeline_notes", t.HandleAddNote)
	route("DELETE /timeline/notes/{id}", "timeline_note", t.HandleRemoveNote)

	e := s.exportHandler
	route("GET /export", "export", e.HandleStatus)
	route("POST /export", "export", e.HandleStart)
	route("DELETE /export", "export", e.HandleCancel)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps upstream error kinds to status codes.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalid),
		errors.Is(err, handle.ErrUnresolvable), errors.Is(err, handle.ErrEmptyHandle):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrEventNotFound), errors.Is(err, service.ErrNoteNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrConflict), errors.Is(err, service.ErrExportRunning):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrNoSource), errors.Is(err, composition.ErrMissingVideoTrack):
		writeError(w, http.StatusUnprocessableEntity, "unprocessable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", ErrBadRequest, r.PathValue("id"))
	}
	return id, nil
}

func queryTime(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("t")
	if raw == "" {
		return 0, fmt.Errorf("%w: missing t", ErrBadRequest)
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: invalid t %q", ErrBadRequest, raw)
	}
	return t, nil
}
