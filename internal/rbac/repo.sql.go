package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assetdesk/assetdesk/internal/platform/db"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const roleColumns = `id, name, description, is_active, created_by, created_at, updated_at`
const permissionColumns = `id, name, description, module, action`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.IsActive,
		&role.CreatedBy,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	return role, err
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Module, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func collectMembers(rows pgx.Rows) ([]Member, error) {
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Username, &m.FullName, &m.IsAdmin); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// InsertRole inserts a new active role.
func (r *PGRepository) InsertRole(ctx context.Context, name, description string, createdBy *int64) (Role, error) {
	const query = `
		INSERT INTO roles (name, description, is_active, created_by)
		VALUES ($1, $2, TRUE, $3)
		RETURNING ` + roleColumns
	role, err := scanRole(r.pool.QueryRow(ctx, query, name, description, createdBy))
	if err != nil {
		return Role{}, db.MapError(err)
	}
	return role, nil
}

// RoleByName fetches an active role by name.
func (r *PGRepository) RoleByName(ctx context.Context, name string) (Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE name = $1 AND is_active = TRUE`
	role, err := scanRole(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		return Role{}, db.MapError(err)
	}
	return role, nil
}

// RoleByID fetches an active role by ID.
func (r *PGRepository) RoleByID(ctx context.Context, id int64) (Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE id = $1 AND is_active = TRUE`
	role, err := scanRole(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return Role{}, db.MapError(err)
	}
	return role, nil
}

// ListActiveRoles returns all active roles ordered by name.
func (r *PGRepository) ListActiveRoles(ctx context.Context) ([]Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE is_active = TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.MapError(err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return nil, db.MapError(err)
	}
	return roles, nil
}

// RoleNameTaken reports whether an active role already holds the name.
func (r *PGRepository) RoleNameTaken(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1 AND is_active = TRUE)`
	var taken bool
	if err := r.pool.QueryRow(ctx, query, name).Scan(&taken); err != nil {
		return false, db.MapError(err)
	}
	return taken, nil
}

// DeactivateRole soft-deletes a role. Assignments stay in storage but stop
// contributing through the activity filters.
func (r *PGRepository) DeactivateRole(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertPermission inserts a new permission.
func (r *PGRepository) InsertPermission(ctx context.Context, name, description string, module, action *string) (Permission, error) {
	const query = `
		INSERT INTO permissions (name, description, module, action)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + permissionColumns
	var p Permission
	err := r.pool.QueryRow(ctx, query, name, description, module, action).
		Scan(&p.ID, &p.Name, &p.Description, &p.Module, &p.Action)
	if err != nil {
		return Permission{}, db.MapError(err)
	}
	return p, nil
}

// PermissionNameTaken reports whether the permission name exists.
func (r *PGRepository) PermissionNameTaken(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM permissions WHERE name = $1)`
	var taken bool
	if err := r.pool.QueryRow(ctx, query, name).Scan(&taken); err != nil {
		return false, db.MapError(err)
	}
	return taken, nil
}

// ListPermissions returns all permissions ordered by module then action.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions ORDER BY module, action`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.MapError(err)
	}
	perms, err := collectPermissions(rows)
	if err != nil {
		return nil, db.MapError(err)
	}
	return perms, nil
}

// InsertUserRole adds a user-role edge. The insert is a single atomic
// check-and-insert; an existing edge is a no-op and reports false.
func (r *PGRepository) InsertUserRole(ctx context.Context, userID, roleID int64, assignedBy *int64) (bool, error) {
	const query = `
		INSERT INTO user_roles (user_id, role_id, assigned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, query, userID, roleID, assignedBy)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteUserRole removes a user-role edge, reporting whether one existed.
func (r *PGRepository) DeleteUserRole(ctx context.Context, userID, roleID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// RolesForUser returns the active roles of an active user.
func (r *PGRepository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	const query = `
		SELECT r.id, r.name, r.description, r.is_active, r.created_by, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON r.id = ur.role_id
		JOIN users u ON u.id = ur.user_id
		WHERE ur.user_id = $1 AND r.is_active = TRUE AND u.is_active = TRUE
		ORDER BY r.name`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, db.MapError(err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return nil, db.MapError(err)
	}
	return roles, nil
}

// UsersForRole returns the active users assigned to an active role.
func (r *PGRepository) UsersForRole(ctx context.Context, roleID int64) ([]Member, error) {
	const query = `
		SELECT u.id, u.username, u.full_name, u.is_admin
		FROM users u
		JOIN user_roles ur ON u.id = ur.user_id
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.role_id = $1 AND u.is_active = TRUE AND r.is_active = TRUE
		ORDER BY u.username`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	members, err := collectMembers(rows)
	if err != nil {
		return nil, db.MapError(err)
	}
	return members, nil
}

// UsersNotInRole returns the active users with no edge to the role.
func (r *PGRepository) UsersNotInRole(ctx context.Context, roleID int64) ([]Member, error) {
	const query = `
		SELECT u.id, u.username, u.full_name, u.is_admin
		FROM users u
		WHERE u.is_active = TRUE
		  AND NOT EXISTS (
			SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id AND ur.role_id = $1
		  )
		ORDER BY u.username`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	members, err := collectMembers(rows)
	if err != nil {
		return nil, db.MapError(err)
	}
	return members, nil
}

// PermissionsForRole returns the permissions attached to a role.
func (r *PGRepository) PermissionsForRole(ctx context.Context, roleID int64) ([]Permission, error) {
	const query = `
		SELECT p.id, p.name, p.description, p.module, p.action
		FROM permissions p
		JOIN permission_roles pr ON p.id = pr.permission_id
		WHERE pr.role_id = $1
		ORDER BY p.module, p.action`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	perms, err := collectPermissions(rows)
	if err != nil {
		return nil, db.MapError(err)
	}
	return perms, nil
}

// PermissionsForUser returns the deduplicated union of permissions reachable
// through the user's active roles. DISTINCT collapses permissions reachable
// through more than one role.
func (r *PGRepository) PermissionsForUser(ctx context.Context, userID int64) ([]Permission, error) {
	const query = `
		SELECT DISTINCT p.id, p.name, p.description, p.module, p.action
		FROM permissions p
		JOIN permission_roles pr ON p.id = pr.permission_id
		JOIN roles r ON pr.role_id = r.id
		JOIN user_roles ur ON r.id = ur.role_id
		JOIN users u ON u.id = ur.user_id
		WHERE ur.user_id = $1 AND r.is_active = TRUE AND u.is_active = TRUE`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, db.MapError(err)
	}
	perms, err := collectPermissions(rows)
	if err != nil {
		return nil, db.MapError(err)
	}
	return perms, nil
}

// ListRolePermissionIDs returns the permission IDs currently attached to a role.
func (r *PGRepository) ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission_id FROM permission_roles WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, db.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return ids, nil
}

// AttachPermissionToRole adds a role-permission edge.
func (r *PGRepository) AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	const query = `
		INSERT INTO permission_roles (permission_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (permission_id, role_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, permissionID, roleID); err != nil {
		return db.MapError(err)
	}
	return nil
}

// DetachPermissionFromRole removes a role-permission edge.
func (r *PGRepository) DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM permission_roles WHERE permission_id = $1 AND role_id = $2`, permissionID, roleID); err != nil {
		return db.MapError(err)
	}
	return nil
}

// PrincipalByID re-derives the acting principal from the stored user record.
func (r *PGRepository) PrincipalByID(ctx context.Context, userID int64) (Principal, error) {
	const query = `SELECT id, is_admin FROM users WHERE id = $1 AND is_active = TRUE`
	var p Principal
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&p.ID, &p.IsAdmin); err != nil {
		return Principal{}, db.MapError(err)
	}
	return p, nil
}

// UserHasPermission answers a point membership query against the graph.
func (r *PGRepository) UserHasPermission(ctx context.Context, userID int64, permissionName string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM permissions p
			JOIN permission_roles pr ON p.id = pr.permission_id
			JOIN roles r ON pr.role_id = r.id
			JOIN user_roles ur ON r.id = ur.role_id
			JOIN users u ON u.id = ur.user_id
			WHERE ur.user_id = $1 AND p.name = $2 AND r.is_active = TRUE AND u.is_active = TRUE
		)`
	var granted bool
	if err := r.pool.QueryRow(ctx, query, userID, permissionName).Scan(&granted); err != nil {
		return false, db.MapError(err)
	}
	return granted, nil
}

var _ Repository = (*PGRepository)(nil)
