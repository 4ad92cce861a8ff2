package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/internal/services"
	"github.com/qrgate/portal/types"
)

type MenuVisibilityRequest struct {
	Visible *bool `json:"visible"`
}

// MenuResponse is the navigation offered to the caller.
type MenuResponse struct {
	Role  string           `json:"role"`
	Items []types.MenuItem `json:"items"`
}

// MenuHandler serves role-based navigation.
type MenuHandler struct {
	menu  *services.MenuService
	guard *Guard
	log   logging.Logger
}

func NewMenuHandler(menu *services.MenuService, guard *Guard, log logging.Logger) *MenuHandler {
	return &MenuHandler{menu: menu, guard: guard, log: log}
}

// MenuAdminRouter registers visibility writes; only super admins may
// change them.
func MenuAdminRouter(r chi.Router, handler *MenuHandler) {
	r.With(handler.guard.RequireRole(types.RoleSuperAdmin)).Put("/{role}/{menuID}", handler.SetVisible)
}

// Menu handles GET /api/menu for any caller, signed in or not.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	session, ok, err := h.guard.sessionOf(r)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load session")
		return
	}
	adminRole := ""
	if ok && session.IsAdmin {
		adminRole = session.Role
	}
	role := services.ResolveRole(adminRole, ok)

	items, err := h.menu.ForRole(r.Context(), role)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load menu")
		return
	}
	if items == nil {
		items = []types.MenuItem{}
	}
	writeJSON(w, http.StatusOK, MenuResponse{Role: role, Items: items})
}

func (h *MenuHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.menu.Matrix(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load menu")
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

func (h *MenuHandler) SetVisible(w http.ResponseWriter, r *http.Request) {
	var req MenuVisibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Visible == nil {
		writeError(w, http.StatusBadRequest, "visible is required")
		return
	}

	err := h.menu.SetVisible(r.Context(), chi.URLParam(r, "role"), chi.URLParam(r, "menuID"), *req.Visible)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update menu")
		return
	}
	writeOK(w)
}
