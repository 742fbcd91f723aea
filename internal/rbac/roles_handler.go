package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/assetdesk/assetdesk/internal/platform/httpx"
	"github.com/assetdesk/assetdesk/internal/shared"
)

// RolesHandler manages the role registry and assignment graph endpoints.
type RolesHandler struct {
	logger    *slog.Logger
	service   *Service
	mw        Middleware
	validator *validator.Validate
}

// NewRolesHandler builds RolesHandler instance.
func NewRolesHandler(logger *slog.Logger, service *Service, mw Middleware) *RolesHandler {
	return &RolesHandler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(shared.PermRolesView))
		r.Get("/", h.listRoles)
		r.Get("/{roleID}/permissions", h.listRolePermissions)
		r.Get("/{roleID}/users", h.listRoleUsers)
		r.Get("/{roleID}/users/available", h.listAvailableUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(shared.PermRolesEdit))
		r.Post("/", h.createRole)
		r.Delete("/{roleID}", h.deactivateRole)
		r.Put("/{roleID}/permissions", h.setRolePermissions)
		r.Post("/{roleID}/users", h.assignUser)
		r.Delete("/{roleID}/users/{userID}", h.removeUser)
	})
}

type roleView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	CreatedBy   *int64 `json:"created_by,omitempty"`
}

type memberView struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName *string `json:"full_name,omitempty"`
	IsAdmin  bool    `json:"is_admin"`
}

func toRoleView(role Role) roleView {
	return roleView{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsActive:    role.IsActive,
		CreatedBy:   role.CreatedBy,
	}
}

func toMemberViews(members []Member) []memberView {
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView{ID: m.ID, Username: m.Username, FullName: m.FullName, IsAdmin: m.IsAdmin})
	}
	return views
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, toRoleView(role))
	}
	httpx.JSON(w, http.StatusOK, views)
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *RolesHandler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description, actingUserID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleView(role))
}

func (h *RolesHandler) deactivateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(r, "roleID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "role id must be numeric")
		return
	}
	removed, err := h.service.DeactivateRole(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"deactivated": removed})
}

func (h *RolesHandler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(r, "roleID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "role id must be numeric")
		return
	}
	perms, err := h.service.PermissionsForRole(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionViews(perms))
}

type setRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

func (h *RolesHandler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(r, "roleID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "role id must be numeric")
		return
	}
	var req setRolePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), roleID, req.PermissionIDs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"count": len(req.PermissionIDs)})
}

func (h *RolesHandler) listRoleUsers(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(r, "roleID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "role id must be numeric")
		return
	}
	members, err := h.service.UsersForRole(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMemberViews(members))
}

func (h *RolesHandler) listAvailableUsers(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(r, "roleID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "role id must be numeric")
		return
	}
	members, err := h.service.UsersNotInRole(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMemberViews(members))
}

type assignUserRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (h *RolesHandler) assignUser(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(r, "roleID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "role id must be numeric")
		return
	}
	var req assignUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	added, err := h.service.AssignRole(r.Context(), req.UserID, roleID, actingUserID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"added": added})
}

func (h *RolesHandler) removeUser(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(r, "roleID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "role id must be numeric")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "user id must be numeric")
		return
	}
	removed, err := h.service.RemoveRole(r.Context(), userID, roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// actingUserID returns the session principal's id for attribution columns,
// nil when unauthenticated.
func actingUserID(r *http.Request) *int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		return nil
	}
	id := sess.User()
	return &id
}
