package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// Service wraps credential store business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Create registers a new user with a bcrypt-hashed password.
// The username must be free among active users.
func (s *Service) Create(ctx context.Context, input NewUser) (User, error) {
	return s.create(ctx, input, nil)
}

// CreateWithRoles registers a new user and assigns the initial roles in a
// single transaction, so a failed assignment leaves no half-created account.
func (s *Service) CreateWithRoles(ctx context.Context, input NewUser, roleIDs []int64) (User, error) {
	return s.create(ctx, input, roleIDs)
}

func (s *Service) create(ctx context.Context, input NewUser, roleIDs []int64) (User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return User{}, fmt.Errorf("%w: username is required", shared.ErrValidation)
	}
	if input.Password == "" {
		return User{}, fmt.Errorf("%w: password is required", shared.ErrValidation)
	}

	// Fast rejection path. The partial unique index on users(username) is the
	// real guard under concurrent creation.
	taken, err := s.repo.UsernameTaken(ctx, input.Username, 0)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, shared.ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("identity: hash password: %w", err)
	}

	if len(roleIDs) == 0 {
		return s.repo.Insert(ctx, input, string(hash))
	}
	return s.repo.InsertWithRoles(ctx, input, string(hash), roleIDs, input.CreatedBy)
}

// Authenticate validates username/password credentials against active users.
// Unknown usernames and wrong passwords are indistinguishable to the caller;
// only the log entry differs, so accounts cannot be enumerated.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, hash, err := s.repo.CredentialsByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("login attempt for unknown username", slog.String("username", username))
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", slog.String("username", username))
		return User{}, shared.ErrInvalidCredentials
	}
	if _, err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("update last login", slog.Any("error", err))
	} else {
		now := time.Now()
		user.LastLogin = &now
	}
	return user, nil
}

// ChangePassword re-hashes and overwrites the user's password.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) (bool, error) {
	if newPassword == "" {
		return false, fmt.Errorf("%w: new password is required", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("identity: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// Update applies a partial update. A username change is re-checked for
// uniqueness against all other active users first.
func (s *Service) Update(ctx context.Context, userID int64, patch UserPatch) (User, error) {
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return User{}, fmt.Errorf("%w: username is required", shared.ErrValidation)
		}
		patch.Username = &username
		taken, err := s.repo.UsernameTaken(ctx, username, userID)
		if err != nil {
			return User{}, err
		}
		if taken {
			return User{}, shared.ErrDuplicateIdentity
		}
	}
	return s.repo.Update(ctx, userID, patch)
}

// Deactivate soft-deletes a user. Role assignments become dormant but stay
// in storage for potential reactivation.
func (s *Service) Deactivate(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Deactivate(ctx, userID)
}

// GetByID fetches an active user.
func (s *Service) GetByID(ctx context.Context, userID int64) (User, error) {
	return s.repo.GetByID(ctx, userID)
}

// GetByUsername fetches an active user by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// ListActive returns all active users, newest first.
func (s *Service) ListActive(ctx context.Context) ([]User, error) {
	return s.repo.ListActive(ctx)
}

// RegisterSession persists the session metadata for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session audit record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// PruneSessions removes expired session audit rows.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx)
}
