package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

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

const userColumns = `id, username, email, full_name, phone_number, is_admin, is_active, last_login, created_by, extra, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PhoneNumber,
		&user.IsAdmin,
		&user.IsActive,
		&user.LastLogin,
		&user.CreatedBy,
		&user.Extra,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func insertUser(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, input NewUser, passwordHash string) (User, error) {
	const query = `
		INSERT INTO users (username, password_hash, email, full_name, phone_number, is_admin, is_active, created_by, extra)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		RETURNING ` + userColumns
	return scanUser(q.QueryRow(ctx, query,
		input.Username,
		passwordHash,
		input.Email,
		input.FullName,
		input.PhoneNumber,
		input.IsAdmin,
		input.CreatedBy,
		input.Extra,
	))
}

// Insert persists a new active user.
func (r *PGRepository) Insert(ctx context.Context, input NewUser, passwordHash string) (User, error) {
	user, err := insertUser(ctx, r.pool, input, passwordHash)
	if err != nil {
		return User{}, db.MapError(err)
	}
	return user, nil
}

// InsertWithRoles persists the user and its initial role assignments atomically.
func (r *PGRepository) InsertWithRoles(ctx context.Context, input NewUser, passwordHash string, roleIDs []int64, assignedBy *int64) (User, error) {
	var user User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := insertUser(ctx, tx, input, passwordHash)
		if err != nil {
			return err
		}
		const assign = `
			INSERT INTO user_roles (user_id, role_id, assigned_by)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, role_id) DO NOTHING`
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx, assign, created.ID, roleID, assignedBy); err != nil {
				return err
			}
		}
		user = created
		return nil
	})
	if err != nil {
		return User{}, db.MapError(err)
	}
	return user, nil
}

// GetByID fetches an active user by ID.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = TRUE`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return User{}, db.MapError(err)
	}
	return user, nil
}

// GetByUsername fetches an active user by username.
func (r *PGRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND is_active = TRUE`
	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		return User{}, db.MapError(err)
	}
	return user, nil
}

// CredentialsByUsername fetches an active user along with the stored hash.
func (r *PGRepository) CredentialsByUsername(ctx context.Context, username string) (User, string, error) {
	const query = `
		SELECT ` + userColumns + `, password_hash
		FROM users
		WHERE username = $1 AND is_active = TRUE`
	var (
		user User
		hash string
	)
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PhoneNumber,
		&user.IsAdmin,
		&user.IsActive,
		&user.LastLogin,
		&user.CreatedBy,
		&user.Extra,
		&user.CreatedAt,
		&user.UpdatedAt,
		&hash,
	)
	if err != nil {
		return User{}, "", db.MapError(err)
	}
	return user, hash, nil
}

// UsernameTaken reports whether another active user holds the username.
func (r *PGRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND is_active = TRUE AND id <> $2)`
	var taken bool
	if err := r.pool.QueryRow(ctx, query, username, excludeID).Scan(&taken); err != nil {
		return false, db.MapError(err)
	}
	return taken, nil
}

// UpdateLastLogin stamps the user's last successful authentication.
func (r *PGRepository) UpdateLastLogin(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdatePassword overwrites the stored password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Update applies a partial update over the mutable user fields.
func (r *PGRepository) Update(ctx context.Context, id int64, patch UserPatch) (User, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	args = append(args, id)

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.FullName != nil {
		add("full_name", *patch.FullName)
	}
	if patch.PhoneNumber != nil {
		add("phone_number", *patch.PhoneNumber)
	}
	if patch.IsAdmin != nil {
		add("is_admin", *patch.IsAdmin)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return User{}, db.MapError(err)
	}
	return user, nil
}

// Deactivate soft-deletes the user. Role assignments are left in place.
func (r *PGRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return false, db.MapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListActive returns all active users, newest first.
func (r *PGRepository) ListActive(ctx context.Context) ([]User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE is_active = TRUE ORDER BY id DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, db.MapError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err)
	}
	return users, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	const query = `
		INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`
	if _, err := r.pool.Exec(ctx, query, id, userID, expiresAt.UTC(), ip, ua); err != nil {
		return db.MapError(err)
	}
	return nil
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return db.MapError(err)
	}
	return nil
}

// DeleteExpiredSessions removes session audit rows past their expiry.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, db.MapError(err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
