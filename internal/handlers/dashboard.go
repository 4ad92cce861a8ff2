package handlers

import (
	"net/http"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
)

// DashboardHandler serves the admin and resident dashboards.
type DashboardHandler struct {
	dashboards *services.DashboardService
	log        logging.Logger
}

func NewDashboardHandler(dashboards *services.DashboardService, log logging.Logger) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, log: log}
}

func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboards.Admin(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// User requires RequireAuth upstream.
func (h *DashboardHandler) User(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	view, err := h.dashboards.User(r.Context(), subject)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
