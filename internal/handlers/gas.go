package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
)

const (
	formFieldFile   = "file"
	formFieldUserID = "userId"
	formFieldReadAt = "readAt"
	formFieldNote   = "note"
)

// SubmitGasRequest is the body of POST /api/gas/submit. Reading may be a
// JSON number or a numeric string.
type SubmitGasRequest struct {
	Reading json.RawMessage `json:"reading"`
	ReadAt  string          `json:"readAt"`
	Note    string          `json:"note"`
	UserID  string          `json:"userId"`
}

type GasUploadResponse struct {
	OK bool `json:"ok"`
	services.UploadResult
}

// GasHandler records meter readings.
type GasHandler struct {
	gas   *services.GasService
	guard *Guard
	log   logging.Logger
}

func NewGasHandler(gas *services.GasService, guard *Guard, log logging.Logger) *GasHandler {
	return &GasHandler{gas: gas, guard: guard, log: log}
}

// GasRouter registers reading routes for signed-in callers.
func GasRouter(r chi.Router, handler *GasHandler) {
	r.Use(handler.guard.RequireAuth)
	r.Post("/submit", handler.Submit)
	r.Post("/upload", handler.Upload)
}

func (h *GasHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitGasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reading, err := parseReading(req.Reading)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reading == nil || strings.TrimSpace(req.ReadAt) == "" || strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "reading, readAt and userId are required")
		return
	}
	readAt, err := parseTime(req.ReadAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid readAt")
		return
	}
	if !h.allowedFor(w, r, req.UserID) {
		return
	}

	if _, err := h.gas.Submit(r.Context(), services.SubmitReading{
		UserID:  req.UserID,
		Reading: reading,
		ReadAt:  readAt,
		Note:    req.Note,
	}); err != nil {
		writeServiceError(w, r, h.log, err, "failed to record reading")
		return
	}
	writeOK(w)
}

func (h *GasHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, err := readUpload(r, formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := strings.TrimSpace(r.FormValue(formFieldUserID))
	rawReadAt := strings.TrimSpace(r.FormValue(formFieldReadAt))
	if file == nil || userID == "" || rawReadAt == "" {
		writeError(w, http.StatusBadRequest, "file, userId and readAt are required")
		return
	}
	readAt, err := parseTime(rawReadAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid readAt")
		return
	}
	if !h.allowedFor(w, r, userID) {
		return
	}

	out, err := h.gas.Upload(r.Context(), services.UploadReading{
		UserID: userID,
		ReadAt: readAt,
		Note:   r.FormValue(formFieldNote),
		File:   *file,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to upload reading")
		return
	}
	writeJSON(w, http.StatusOK, GasUploadResponse{OK: true, UploadResult: out})
}

// allowedFor lets callers record readings for themselves; admins may
// record for anyone.
func (h *GasHandler) allowedFor(w http.ResponseWriter, r *http.Request, userID string) bool {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if subject == strings.TrimSpace(userID) {
		return true
	}
	session, ok, err := h.guard.sessionOf(r)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load session")
		return false
	}
	if !ok || !session.IsAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func parseReading(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return &number, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, errors.New("reading must be a number")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return nil, errors.New("reading must be a number")
	}
	return &number, nil
}
