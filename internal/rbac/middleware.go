package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/assetdesk/assetdesk/internal/shared"
)

// DecisionRecorder observes authorization outcomes for metrics.
type DecisionRecorder interface {
	RecordAuthzDecision(outcome string)
}

// Middleware wires authorization helpers for HTTP handlers. The acting
// principal is taken from the request session and re-resolved against
// storage on every check.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(normalized, func(r *http.Request, userID int64) (bool, error) {
		return m.Resolver.HasAnyPermission(r.Context(), userID, normalized)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(normalized, func(r *http.Request, userID int64) (bool, error) {
		return m.Resolver.HasAllPermissions(r.Context(), userID, normalized)
	})
}

func (m Middleware) require(normalized []string, check func(*http.Request, int64) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := currentUserID(r)
			if !ok {
				m.record("unauthenticated")
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			granted, err := check(r, userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization check", slog.Any("error", err))
				}
				m.record("error")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if granted {
				m.record("granted")
				next.ServeHTTP(w, r)
				return
			}
			m.record("denied")
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) record(outcome string) {
	if m.Metrics != nil {
		m.Metrics.RecordAuthzDecision(outcome)
	}
}

func currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	id := sess.User()
	if id == 0 {
		return 0, false
	}
	return id, true
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
