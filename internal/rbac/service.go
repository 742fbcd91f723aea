package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// Service orchestrates the role and permission registries and the
// user-role assignment graph.
type Service struct {
	repo Repository
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateRole inserts a new role. The name must be free among active roles;
// a name released by a deactivated role may be reused.
func (s *Service) CreateRole(ctx context.Context, name, description string, createdBy *int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", shared.ErrValidation)
	}
	taken, err := s.repo.RoleNameTaken(ctx, name)
	if err != nil {
		return Role{}, err
	}
	if taken {
		return Role{}, shared.ErrDuplicateIdentity
	}
	return s.repo.InsertRole(ctx, name, strings.TrimSpace(description), createdBy)
}

// ListRoles returns all active roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListActiveRoles(ctx)
}

// RoleByName fetches an active role by name.
func (s *Service) RoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.RoleByName(ctx, name)
}

// RoleByID fetches an active role by ID.
func (s *Service) RoleByID(ctx context.Context, id int64) (Role, error) {
	return s.repo.RoleByID(ctx, id)
}

// DeactivateRole soft-deletes a role.
func (s *Service) DeactivateRole(ctx context.Context, id int64) (bool, error) {
	return s.repo.DeactivateRole(ctx, id)
}

// CreatePermission inserts a new permission. Module and action are optional
// grouping tags; only the name is unique.
func (s *Service) CreatePermission(ctx context.Context, name, description string, module, action *string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name is required", shared.ErrValidation)
	}
	taken, err := s.repo.PermissionNameTaken(ctx, name)
	if err != nil {
		return Permission{}, err
	}
	if taken {
		return Permission{}, shared.ErrDuplicateIdentity
	}
	return s.repo.InsertPermission(ctx, name, strings.TrimSpace(description), module, action)
}

// ListPermissions returns all permissions ordered by (module, action).
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// AssignRole adds a user-role edge. Assigning an existing edge is a no-op
// reporting false, so callers can tell "newly added" from "already present".
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64, assignedBy *int64) (bool, error) {
	return s.repo.InsertUserRole(ctx, userID, roleID, assignedBy)
}

// RemoveRole removes a user-role edge, reporting whether one was removed.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) (bool, error) {
	return s.repo.DeleteUserRole(ctx, userID, roleID)
}

// RolesForUser returns the active roles of an active user.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	return s.repo.RolesForUser(ctx, userID)
}

// UsersForRole returns the active users assigned to an active role.
func (s *Service) UsersForRole(ctx context.Context, roleID int64) ([]Member, error) {
	return s.repo.UsersForRole(ctx, roleID)
}

// UsersNotInRole returns the active users not assigned to the role.
func (s *Service) UsersNotInRole(ctx context.Context, roleID int64) ([]Member, error) {
	return s.repo.UsersNotInRole(ctx, roleID)
}

// PermissionsForRole returns the permissions attached to a role.
func (s *Service) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.PermissionsForRole(ctx, roleID)
}

// PermissionsForUser returns the user's effective permission set: the union
// over all assigned active roles, deduplicated by permission id.
func (s *Service) PermissionsForUser(ctx context.Context, userID int64) ([]Permission, error) {
	return s.repo.PermissionsForUser(ctx, userID)
}

// SetRolePermissions replaces the permissions of a role with the given set,
// attaching missing edges and detaching edges no longer wanted.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	current, err := s.repo.ListRolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermissionToRole(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermissionFromRole(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	return nil
}
