package identity

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/shared"
)

type memAccount struct {
	user  User
	hash  string
	roles []int64
}

type memRepo struct {
	accounts map[int64]*memAccount
	sessions map[string]time.Time
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: make(map[int64]*memAccount),
		sessions: make(map[string]time.Time),
	}
}

func (m *memRepo) activeByUsername(username string) *memAccount {
	for _, acc := range m.accounts {
		if acc.user.IsActive && acc.user.Username == username {
			return acc
		}
	}
	return nil
}

func (m *memRepo) Insert(ctx context.Context, input NewUser, passwordHash string) (User, error) {
	return m.InsertWithRoles(ctx, input, passwordHash, nil, nil)
}

func (m *memRepo) InsertWithRoles(ctx context.Context, input NewUser, passwordHash string, roleIDs []int64, assignedBy *int64) (User, error) {
	if m.activeByUsername(input.Username) != nil {
		return User{}, shared.ErrDuplicateIdentity
	}
	// Negative role ids simulate a failing assignment inside the transaction.
	for _, id := range roleIDs {
		if id <= 0 {
			return User{}, fmt.Errorf("%w: role %d does not exist", shared.ErrQueryFailed, id)
		}
	}
	m.nextID++
	now := time.Now()
	user := User{
		ID:          m.nextID,
		Username:    input.Username,
		Email:       input.Email,
		FullName:    input.FullName,
		PhoneNumber: input.PhoneNumber,
		Extra:       input.Extra,
		IsAdmin:     input.IsAdmin,
		IsActive:    true,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.accounts[user.ID] = &memAccount{user: user, hash: passwordHash, roles: roleIDs}
	return user, nil
}

func (m *memRepo) GetByID(ctx context.Context, id int64) (User, error) {
	acc, ok := m.accounts[id]
	if !ok || !acc.user.IsActive {
		return User{}, shared.ErrNotFound
	}
	return acc.user, nil
}

func (m *memRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	acc := m.activeByUsername(username)
	if acc == nil {
		return User{}, shared.ErrNotFound
	}
	return acc.user, nil
}

func (m *memRepo) CredentialsByUsername(ctx context.Context, username string) (User, string, error) {
	acc := m.activeByUsername(username)
	if acc == nil {
		return User{}, "", shared.ErrNotFound
	}
	return acc.user, acc.hash, nil
}

func (m *memRepo) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	acc := m.activeByUsername(username)
	return acc != nil && acc.user.ID != excludeID, nil
}

func (m *memRepo) UpdateLastLogin(ctx context.Context, id int64) (bool, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	acc.user.LastLogin = &now
	return true, nil
}

func (m *memRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return false, nil
	}
	acc.hash = passwordHash
	return true, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, patch UserPatch) (User, error) {
	acc, ok := m.accounts[id]
	if !ok || !acc.user.IsActive {
		return User{}, shared.ErrNotFound
	}
	if patch.Username != nil {
		acc.user.Username = *patch.Username
	}
	if patch.Email != nil {
		acc.user.Email = patch.Email
	}
	if patch.FullName != nil {
		acc.user.FullName = patch.FullName
	}
	if patch.PhoneNumber != nil {
		acc.user.PhoneNumber = patch.PhoneNumber
	}
	if patch.IsAdmin != nil {
		acc.user.IsAdmin = *patch.IsAdmin
	}
	if patch.IsActive != nil {
		acc.user.IsActive = *patch.IsActive
	}
	acc.user.UpdatedAt = time.Now()
	return acc.user, nil
}

func (m *memRepo) Deactivate(ctx context.Context, id int64) (bool, error) {
	acc, ok := m.accounts[id]
	if !ok || !acc.user.IsActive {
		return false, nil
	}
	acc.user.IsActive = false
	return true, nil
}

func (m *memRepo) ListActive(ctx context.Context) ([]User, error) {
	var users []User
	for _, acc := range m.accounts {
		if acc.user.IsActive {
			users = append(users, acc.user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (m *memRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = expiresAt
	return nil
}

func (m *memRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *memRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	var pruned int64
	now := time.Now()
	for id, expiresAt := range m.sessions {
		if expiresAt.Before(now) {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned, nil
}

var _ Repository = (*memRepo)(nil)

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Username: "  ", Password: "secret123"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, NewUser{Username: "alice", Password: ""})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	require.True(t, created.IsActive)

	user, err := svc.Authenticate(ctx, "alice", "secret123")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)
	require.NotNil(t, user.LastLogin)
}

func TestAuthenticateDoesNotRevealWhichFactorFailed(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, unknownErr := svc.Authenticate(ctx, "nobody", "secret123")
	_, wrongErr := svc.Authenticate(ctx, "alice", "wrong-password")

	require.ErrorIs(t, unknownErr, shared.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, shared.ErrInvalidCredentials)
	require.Equal(t, unknownErr, wrongErr)
}

func TestCreateRejectsDuplicateActiveUsername(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, NewUser{Username: "alice", Password: "other456"})
	require.ErrorIs(t, err, shared.ErrDuplicateIdentity)
}

func TestUsernameReusableAfterDeactivation(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, deactivated)

	second, err := svc.Create(ctx, NewUser{Username: "alice", Password: "other456"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	// The deactivated account no longer authenticates or resolves.
	_, err = svc.GetByID(ctx, first.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivatedUserCannotAuthenticate(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Deactivate(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestCreateWithRolesIsAllOrNothing(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateWithRoles(ctx, NewUser{Username: "alice", Password: "secret123"}, []int64{1, -1})
	require.Error(t, err)
	require.Empty(t, repo.accounts)

	user, err := svc.CreateWithRoles(ctx, NewUser{Username: "alice", Password: "secret123"}, []int64{1, 2})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, repo.accounts[user.ID].roles)
}

func TestChangePassword(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, user.ID, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	changed, err := svc.ChangePassword(ctx, user.ID, "brand-new-pass")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = svc.Authenticate(ctx, "alice", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "alice", "brand-new-pass")
	require.NoError(t, err)
}

func TestChangePasswordTouchesDeactivatedAccounts(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, user.ID)
	require.NoError(t, err)

	// The password row is keyed by id only, so the rotation lands even while
	// the account is dormant.
	changed, err := svc.ChangePassword(ctx, user.ID, "rotated-pass")
	require.NoError(t, err)
	require.True(t, changed)
}

func TestUpdateUsernameChecksUniqueness(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	bob, err := svc.Create(ctx, NewUser{Username: "bob", Password: "secret123"})
	require.NoError(t, err)

	alice := "alice"
	_, err = svc.Update(ctx, bob.ID, UserPatch{Username: &alice})
	require.ErrorIs(t, err, shared.ErrDuplicateIdentity)

	// Renaming to your own current name is not a conflict.
	bobName := "bob"
	updated, err := svc.Update(ctx, bob.ID, UserPatch{Username: &bobName})
	require.NoError(t, err)
	require.Equal(t, "bob", updated.Username)
}

func TestPruneSessionsRemovesOnlyExpired(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "stale", 1, time.Now().Add(-time.Hour), "127.0.0.1", "test"))
	require.NoError(t, svc.RegisterSession(ctx, "fresh", 1, time.Now().Add(time.Hour), "127.0.0.1", "test"))

	pruned, err := svc.PruneSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)
	require.Contains(t, repo.sessions, "fresh")
}
