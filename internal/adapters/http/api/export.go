package api

import (
	"net/http"

	"github.com/okian/bjjscore/internal/export"
)

// ExportHandler handles export lifecycle requests.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

type exportStatusResponse struct {
	export.Status
	Error string `json:"error,omitempty"`
}

type exportStartResponse struct {
	RunID string `json:"runId"`
}

type exportCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// HandleStatus handles GET /export requests.
func (h *ExportHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	st := h.deps.ExportStatus()
	resp := exportStatusResponse{Status: st}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStart handles POST /export requests. The export runs in the
// background; poll GET /export for progress.
func (h *ExportHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	run, err := h.deps.StartExport(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, exportStartResponse{RunID: run.ID.String()})
}

// HandleCancel handles DELETE /export requests.
func (h *ExportHandler) HandleCancel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, exportCancelResponse{Cancelled: h.deps.CancelExport()})
}
