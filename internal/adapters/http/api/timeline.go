package api

import (
	"net/http"

	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/types"
)

// TimelineHandler handles timeline editing requests.
type TimelineHandler struct {
	deps TimelineDependencies
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(deps TimelineDependencies) *TimelineHandler {
	return &TimelineHandler{deps: deps}
}

type changedResponse struct {
	Changed bool               `json:"changed"`
	View    types.TimelineView `json:"timeline"`
}

type scoreResponse struct {
	Time  float64          `json:"t"`
	Clock string           `json:"clock"`
	Score model.ScoreState `json:"score"`
}

// HandleGet handles GET /timeline requests.
func (h *TimelineHandler) HandleGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Timeline())
}

// HandleAddEvent handles POST /timeline/events requests.
func (h *TimelineHandler) HandleAddEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.ScoreEvent
	if err := decodeBody(w, r, &ev); err != nil {
		writeFailure(w, err)
		return
	}
	added, err := h.deps.AddEvent(r.Context(), ev)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// HandleUpdateEvent handles PUT /timeline/events/{id} requests.
func (h *TimelineHandler) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	var ev model.ScoreEvent
	if err := decodeBody(w, r, &ev); err != nil {
		writeFailure(w, err)
		return
	}
	ev.ID = id
	updated, err := h.deps.UpdateEvent(r.Context(), ev)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleRemoveEvent handles DELETE /timeline/events/{id} requests.
func (h *TimelineHandler) HandleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.deps.RemoveEvent(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUndo handles POST /timeline/undo requests.
func (h *TimelineHandler) HandleUndo(w http.ResponseWriter, r *http.Request) {
	changed, err := h.deps.Undo(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed, View: h.deps.Timeline()})
}

// HandleRedo handles POST /timeline/redo requests.
func (h *TimelineHandler) HandleRedo(w http.ResponseWriter, r *http.Request) {
	changed, err := h.deps.Redo(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changedResponse{Changed: changed, View: h.deps.Timeline()})
}

// HandleScore handles GET /timeline/score?t= requests. It moves the playhead.
func (h *TimelineHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	t, err := queryTime(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Time: t, Clock: model.FormatClock(t), Score: h.deps.ScoreAt(t)})
}

// HandleNotesNear handles GET /timeline/notes?t= requests.
func (h *TimelineHandler) HandleNotesNear(w http.ResponseWriter, r *http.Request) {
	t, err := queryTime(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	notes := h.deps.NotesNear(t)
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleAddNote handles POST /timeline/notes requests.
func (h *TimelineHandler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	var n model.Note
	if err := decodeBody(w, r, &n); err != nil {
		writeFailure(w, err)
		return
	}
	added, err := h.deps.AddNote(r.Context(), n)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// HandleRemoveNote handles DELETE /timeline/notes/{id} requests.
func (h *TimelineHandler) HandleRemoveNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.deps.RemoveNote(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
