package handlers

import (
	"net/http"

	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/types"
)

// HistoryHandler serves the admin resident history view.
type HistoryHandler struct {
	history *services.HistoryService
	log     logging.Logger
}

func NewHistoryHandler(history *services.HistoryService, log logging.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, log: log}
}

// List handles GET /admin/history?page=N&q=kw&expiry=bucket.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.ParseExpiryFilter(query.Get("expiry"))

	page, err := h.history.Page(r.Context(), parsePage(r), query.Get("q"), filter)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load history")
		return
	}
	if page.Rows == nil {
		page.Rows = []types.HistoryRow{}
	}
	writeJSON(w, http.StatusOK, page)
}
