package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/types"
)

type MarkDoneRequest struct {
	ID int64 `json:"id"`
}

// NotificationHandler serves the admin inbox and QR email delivery.
type NotificationHandler struct {
	notifications *services.NotificationService
	log           logging.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, log logging.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

// NotificationRouter registers the notification API; both routes are admin only.
func NotificationRouter(r chi.Router, handler *NotificationHandler, guard *Guard) {
	r.With(guard.RequireAdmin).Post("/mark-done", handler.MarkDone)
	r.With(guard.RequireAdmin).Post("/send-email", handler.SendEmail)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.notifications.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list notifications")
		return
	}
	if items == nil {
		items = []types.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	var req MarkDoneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID < 1 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.notifications.MarkDone(r.Context(), req.ID); err != nil {
		writeServiceError(w, r, h.log, err, "failed to update notification")
		return
	}
	writeOK(w)
}

func (h *NotificationHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req services.SendEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notifications.SendQREmail(r.Context(), req); err != nil {
		writeServiceError(w, r, h.log, err, "failed to send email")
		return
	}
	writeOK(w)
}
