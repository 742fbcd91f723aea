package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// PermissionsHandler manages the permission registry endpoints.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	mw        Middleware
	validator *validator.Validate
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, mw Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	// The effective set of the calling principal needs no permission gate,
	// only an authenticated session.
	r.Get("/me", h.myPermissions)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(shared.PermPermissionsView))
		r.Get("/", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(shared.PermPermissionsEdit))
		r.Post("/", h.createPermission)
	})
}

type permissionView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Module      *string `json:"module"`
	Action      *string `json:"action"`
	ModuleLabel string  `json:"module_label"`
	ActionLabel string  `json:"action_label"`
}

func toPermissionViews(perms []Permission) []permissionView {
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, permissionView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Module:      p.Module,
			Action:      p.Action,
			ModuleLabel: p.ModuleLabel(),
			ActionLabel: p.ActionLabel(),
		})
	}
	return views
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionViews(perms))
}

type createPermissionRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Module      *string `json:"module"`
	Action      *string `json:"action"`
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req createPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Name, req.Description, req.Module, req.Action)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPermissionViews([]Permission{perm})[0])
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	perms, err := h.service.PermissionsForUser(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionViews(perms))
}
