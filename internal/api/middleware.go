package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

// SessionCookieName is the dashboard session cookie.
const SessionCookieName = "dashboard_session"

type contextKey string

const userContextKey contextKey = "authenticated_user"

// ErrNoUserInContext is returned when no user is found in context.
var ErrNoUserInContext = errors.New("no authenticated user in context")

// CurrentUser extracts the authenticated user from the request context.
func CurrentUser(ctx context.Context) (*biz.User, error) {
	user, ok := ctx.Value(userContextKey).(*biz.User)
	if !ok {
		return nil, ErrNoUserInContext
	}
	return user, nil
}

// SessionMiddleware resolves the session cookie and puts the owning
// user into the request context. Requests without a live session get a
// 401.
func SessionMiddleware(sessions *biz.SessionUsecase, users biz.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w, "missing session")
				return
			}

			session, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				writeUnauthorized(w, "invalid or expired session")
				return
			}

			user, err := users.GetByID(r.Context(), session.UserID)
			if err != nil {
				writeUnauthorized(w, "unknown session user")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
