package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
)

// TokenHandler serves token verification and admin token actions.
type TokenHandler struct {
	tokens *services.TokenService
	log    logging.Logger
}

func NewTokenHandler(tokens *services.TokenService, log logging.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, log: log}
}

// TokenRouter registers the public verification route.
func TokenRouter(r chi.Router, handler *TokenHandler) {
	r.Get("/verify", handler.Verify)
}

// TokenAdminRouter registers admin token routes.
func TokenAdminRouter(r chi.Router, handler *TokenHandler) {
	r.Route("/{tokenID}", func(r chi.Router) {
		r.Delete("/", handler.Delete)
		r.Post("/revoke", handler.Revoke)
		r.Get("/qr.png", handler.QRCode)
	})
}

func (h *TokenHandler) Verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.tokens.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to verify token")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Revoke(r.Context(), chi.URLParam(r, "tokenID")); err != nil {
		writeServiceError(w, r, h.log, err, "failed to revoke token")
		return
	}
	writeOK(w)
}

func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Delete(r.Context(), chi.URLParam(r, "tokenID")); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TokenHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.tokens.QRCode(r.Context(), chi.URLParam(r, "tokenID"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
