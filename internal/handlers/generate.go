package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
)

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	ResidentID string `json:"residentId"`
	Name       string `json:"name"`
	CarNumber  string `json:"carNumber"`
	Phone      string `json:"phone"`
	Exp        string `json:"exp"`
}

// GenerateHandler issues QR tokens.
type GenerateHandler struct {
	issuance *services.IssuanceService
	log      logging.Logger
}

func NewGenerateHandler(issuance *services.IssuanceService, log logging.Logger) *GenerateHandler {
	return &GenerateHandler{issuance: issuance, log: log}
}

// GenerateRouter registers the issuance route; callers must be admins.
func GenerateRouter(r chi.Router, handler *GenerateHandler, guard *Guard) {
	r.With(guard.RequireAdmin).Post("/generate", handler.Generate)
}

func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ResidentID) == "" || strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.CarNumber) == "" || strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Exp) == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	expiresAt, err := parseTime(req.Exp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exp")
		return
	}

	result, err := h.issuance.Issue(r.Context(), services.IssueRequest{
		ResidentID:   req.ResidentID,
		Name:         req.Name,
		VehiclePlate: req.CarNumber,
		Phone:        req.Phone,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
