package rbac

import "context"

// Repository defines persistence operations for the role and permission
// registries and the assignment graph.
type Repository interface {
	// Roles.
	InsertRole(ctx context.Context, name, description string, createdBy *int64) (Role, error)
	RoleByName(ctx context.Context, name string) (Role, error)
	RoleByID(ctx context.Context, id int64) (Role, error)
	ListActiveRoles(ctx context.Context) ([]Role, error)
	RoleNameTaken(ctx context.Context, name string) (bool, error)
	DeactivateRole(ctx context.Context, id int64) (bool, error)

	// Permissions.
	InsertPermission(ctx context.Context, name, description string, module, action *string) (Permission, error)
	PermissionNameTaken(ctx context.Context, name string) (bool, error)
	ListPermissions(ctx context.Context) ([]Permission, error)

	// Assignment graph.
	InsertUserRole(ctx context.Context, userID, roleID int64, assignedBy *int64) (bool, error)
	DeleteUserRole(ctx context.Context, userID, roleID int64) (bool, error)
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
	UsersForRole(ctx context.Context, roleID int64) ([]Member, error)
	UsersNotInRole(ctx context.Context, roleID int64) ([]Member, error)
	PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error)
	PermissionsForUser(ctx context.Context, userID int64) ([]Permission, error)
	ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error
	DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error

	// Resolver lookups.
	PrincipalByID(ctx context.Context, userID int64) (Principal, error)
	UserHasPermission(ctx context.Context, userID int64, permissionName string) (bool, error)
}
