package identity

import (
	"context"
	"time"
)

// Repository defines persistence operations for the credential store.
type Repository interface {
	// Insert persists a new active user. A unique violation on the username
	// surfaces as shared.ErrDuplicateIdentity.
	Insert(ctx context.Context, input NewUser, passwordHash string) (User, error)
	// InsertWithRoles persists the user and all initial role assignments in a
	// single transaction. Either everything lands or nothing does.
	InsertWithRoles(ctx context.Context, input NewUser, passwordHash string, roleIDs []int64, assignedBy *int64) (User, error)
	// GetByID fetches an active user. Returns shared.ErrNotFound otherwise.
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// CredentialsByUsername fetches an active user together with the stored
	// password hash for verification.
	CredentialsByUsername(ctx context.Context, username string) (User, string, error)
	// UsernameTaken reports whether another active user already holds the
	// username. excludeID skips the caller's own row on updates.
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error)
	Update(ctx context.Context, id int64, patch UserPatch) (User, error)
	// Deactivate soft-deletes the user. Role assignments stay in storage and
	// become dormant through the activity filters.
	Deactivate(ctx context.Context, id int64) (bool, error)
	ListActive(ctx context.Context) ([]User, error)

	// Login session audit trail.
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
