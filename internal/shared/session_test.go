package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "assetdesk_session", time.Hour, false), mr
}

func TestLoadRejectsUnknownCookieValue(t *testing.T) {
	manager, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "assetdesk_session", Value: "attacker-chosen"})

	sess, err := manager.Load(req.Context(), req)
	require.NoError(t, err)
	require.NotEqual(t, "attacker-chosen", sess.ID)
	require.NotEmpty(t, sess.ID)
}

func TestLoadRestoresStoredSession(t *testing.T) {
	manager, mr := newTestManager(t)
	require.NoError(t, mr.Set("session:known", `{"values":{"k":"v"},"user_id":7}`))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "assetdesk_session", Value: "known"})

	sess, err := manager.Load(req.Context(), req)
	require.NoError(t, err)
	require.Equal(t, "known", sess.ID)
	require.Equal(t, int64(7), sess.User())
	require.Equal(t, "v", sess.Get("k"))
}

func TestCommitPersistsAndDestroyDeletes(t *testing.T) {
	manager, mr := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(req.Context(), req)
	require.NoError(t, err)
	sess.SetUser(42)

	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(req.Context(), rec, req, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	manager.Destroy(sess)
	rec = httptest.NewRecorder()
	require.NoError(t, manager.Commit(req.Context(), rec, req, sess))
	require.False(t, mr.Exists("session:"+sess.ID))
}
