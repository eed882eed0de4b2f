package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/types"
)

// ProjectsHandler handles catalog requests.
type ProjectsHandler struct {
	deps ProjectDependencies
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(deps ProjectDependencies) *ProjectsHandler {
	return &ProjectsHandler{deps: deps}
}

type createProjectRequest struct {
	Title string `json:"title"`
}

type importSourceRequest struct {
	Path string `json:"path"`
}

type projectListResponse struct {
	Current  string          `json:"current"`
	Projects []model.Project `json:"projects"`
}

// HandleList handles GET /projects requests.
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, projectListResponse{
		Current:  h.deps.CurrentProject().ID.String(),
		Projects: h.deps.Projects(),
	})
}

// HandleCreate handles POST /projects requests. An empty body creates a
// project with the default title.
func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeFailure(w, err)
			return
		}
	}
	p, err := h.deps.CreateProject(r.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /projects/{id} requests.
func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	p, err := h.deps.Project(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PUT /projects/{id} requests.
func (h *ProjectsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	var patch types.ProjectPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeFailure(w, err)
		return
	}
	p, err := h.deps.UpdateProject(r.Context(), id, patch)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /projects/{id} requests.
func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.deps.DeleteProject(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelect handles POST /projects/{id}/select requests.
func (h *ProjectsHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	p, err := h.deps.SelectProject(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleImportSource handles POST /source requests.
func (h *ProjectsHandler) HandleImportSource(w http.ResponseWriter, r *http.Request) {
	var req importSourceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeFailure(w, fmt.Errorf("%w: missing path", ErrBadRequest))
		return
	}
	p, err := h.deps.ImportSource(r.Context(), req.Path)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
