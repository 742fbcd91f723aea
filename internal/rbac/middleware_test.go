package rbac

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/shared"
)

type fakeRecorder struct {
	outcomes map[string]int
}

func (r *fakeRecorder) RecordAuthzDecision(outcome string) {
	if r.outcomes == nil {
		r.outcomes = make(map[string]int)
	}
	r.outcomes[outcome]++
}

// sessionRequest builds a request whose context carries a Redis-backed
// session for the given user, zero meaning anonymous.
func sessionRequest(t *testing.T, userID int64) *http.Request {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	manager := shared.NewSessionManager(client, "assetdesk_session", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if userID != 0 {
		require.NoError(t, mr.Set("session:test-session", fmt.Sprintf(`{"values":{},"user_id":%d}`, userID)))
		req.AddCookie(&http.Cookie{Name: "assetdesk_session", Value: "test-session"})
	}

	sess, err := manager.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAnyRejectsAnonymous(t *testing.T) {
	repo := newMemRepo()
	recorder := &fakeRecorder{}
	mw := Middleware{Resolver: NewResolver(repo), Metrics: recorder}

	rec := httptest.NewRecorder()
	mw.RequireAny("edit_docs")(okHandler()).ServeHTTP(rec, sessionRequest(t, 0))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, 1, recorder.outcomes["unauthenticated"])
}

func TestRequireAnyGrantsPermittedUser(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(1, "alice", false, true)
	seedEditor(t, repo)
	recorder := &fakeRecorder{}
	mw := Middleware{Resolver: NewResolver(repo), Metrics: recorder}

	rec := httptest.NewRecorder()
	mw.RequireAny("edit_docs")(okHandler()).ServeHTTP(rec, sessionRequest(t, 1))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, recorder.outcomes["granted"])
}

func TestRequireAnyDeniesMissingPermission(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(1, "alice", false, true)
	recorder := &fakeRecorder{}
	mw := Middleware{Resolver: NewResolver(repo), Metrics: recorder}

	rec := httptest.NewRecorder()
	mw.RequireAny("edit_docs")(okHandler()).ServeHTTP(rec, sessionRequest(t, 1))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, 1, recorder.outcomes["denied"])
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(1, "alice", false, true)
	seedEditor(t, repo)
	mw := Middleware{Resolver: NewResolver(repo)}

	rec := httptest.NewRecorder()
	mw.RequireAll("edit_docs", "delete_docs")(okHandler()).ServeHTTP(rec, sessionRequest(t, 1))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyWithNoPermissionsPassesThrough(t *testing.T) {
	mw := Middleware{Resolver: NewResolver(newMemRepo())}

	rec := httptest.NewRecorder()
	mw.RequireAny()(okHandler()).ServeHTTP(rec, sessionRequest(t, 0))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyAdminBypassesGraph(t *testing.T) {
	repo := newMemRepo()
	repo.addUser(7, "root", true, true)
	mw := Middleware{Resolver: NewResolver(repo)}

	rec := httptest.NewRecorder()
	mw.RequireAny("edit_docs")(okHandler()).ServeHTTP(rec, sessionRequest(t, 7))

	require.Equal(t, http.StatusOK, rec.Code)
}
