package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/types"
)

// ResidentHandler serves registration, change requests and admin edits.
type ResidentHandler struct {
	residents *services.ResidentService
	tokens    *services.TokenService
	log       logging.Logger
}

func NewResidentHandler(residents *services.ResidentService, tokens *services.TokenService, log logging.Logger) *ResidentHandler {
	return &ResidentHandler{residents: residents, tokens: tokens, log: log}
}

// ResidentRouter registers the public and signed-in resident routes.
func ResidentRouter(r chi.Router, handler *ResidentHandler, guard *Guard) {
	r.Post("/register", handler.Register)
	r.With(guard.RequireAuth).Post("/change-request", handler.ChangeRequest)
}

// ResidentAdminRouter registers admin resident routes. The caller applies
// the admin guard.
func ResidentAdminRouter(r chi.Router, handler *ResidentHandler) {
	r.Route("/{residentID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
		r.Post("/issue", handler.Issue)
		r.Post("/email", handler.Email)
		r.Get("/tokens", handler.Tokens)
	})
}

type RegisterResponse struct {
	OK         bool   `json:"ok"`
	ResidentID string `json:"residentId"`
}

func (h *ResidentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.residents.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to register resident")
		return
	}
	writeJSON(w, http.StatusOK, RegisterResponse{OK: true, ResidentID: id})
}

func (h *ResidentHandler) ChangeRequest(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req types.ChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.residents.RequestChange(r.Context(), subject, req); err != nil {
		writeServiceError(w, r, h.log, err, "failed to record change request")
		return
	}
	writeOK(w)
}

func (h *ResidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.residents.Get(r.Context(), chi.URLParam(r, "residentID"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load resident")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ResidentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd types.ResidentUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.residents.Update(r.Context(), chi.URLParam(r, "residentID"), upd)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update resident")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ResidentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.residents.Delete(r.Context(), chi.URLParam(r, "residentID")); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete resident")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Issue mints a one-year token and attempts to email it.
func (h *ResidentHandler) Issue(w http.ResponseWriter, r *http.Request) {
	out, err := h.tokens.IssueForResident(r.Context(), chi.URLParam(r, "residentID"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *ResidentHandler) Email(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.EmailCurrent(r.Context(), chi.URLParam(r, "residentID")); err != nil {
		writeServiceError(w, r, h.log, err, "failed to send email")
		return
	}
	writeOK(w)
}

func (h *ResidentHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.ListByResident(r.Context(), chi.URLParam(r, "residentID"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list tokens")
		return
	}
	if tokens == nil {
		tokens = []types.Token{}
	}
	writeJSON(w, http.StatusOK, tokens)
}
