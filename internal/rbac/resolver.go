package rbac

import (
	"context"
	"errors"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// Resolver answers authorization point queries. It is a pure query component:
// every decision re-derives the principal from storage, never trusting a
// cached session claim, and every query fails closed on missing information.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver backed by the provided repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// HasPermission reports whether the user holds the named permission.
// Admin accounts are granted unconditionally, before any graph traversal, so
// a misconfigured or empty role graph can never lock an admin out. Unknown
// or inactive users yield false without error; only storage faults propagate.
func (r *Resolver) HasPermission(ctx context.Context, userID int64, permissionName string) (bool, error) {
	principal, err := r.repo.PrincipalByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if principal.IsAdmin {
		return true, nil
	}
	return r.repo.UserHasPermission(ctx, userID, permissionName)
}

// HasAllPermissions reports whether the user holds every named permission,
// short-circuiting on the first denial.
func (r *Resolver) HasAllPermissions(ctx context.Context, userID int64, permissionNames []string) (bool, error) {
	for _, name := range permissionNames {
		granted, err := r.HasPermission(ctx, userID, name)
		if err != nil {
			return false, err
		}
		if !granted {
			return false, nil
		}
	}
	return true, nil
}

// HasAnyPermission reports whether the user holds at least one of the named
// permissions, short-circuiting on the first grant.
func (r *Resolver) HasAnyPermission(ctx context.Context, userID int64, permissionNames []string) (bool, error) {
	for _, name := range permissionNames {
		granted, err := r.HasPermission(ctx, userID, name)
		if err != nil {
			return false, err
		}
		if granted {
			return true, nil
		}
	}
	return false, nil
}

// IsAdmin reports whether the user is an active admin.
func (r *Resolver) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	principal, err := r.repo.PrincipalByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return principal.IsAdmin, nil
}
