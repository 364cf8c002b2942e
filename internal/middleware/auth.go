package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/clubledger/internal/auth"
	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/store"
)

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "clubledger_session"

// SessionToken reads the token from the session cookie, falling back to an
// "Authorization: Bearer" header for scripted clients.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RequireAuth validates the session token and populates AuthContext.
// Unauthenticated requests get a 401 JSON error.
func RequireAuth(sessionStore *store.SessionStore, userStore *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			sess, err := sessionStore.GetByToken(r.Context(), token)
			if err != nil || sess == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			role := model.RoleMember
			profile, err := userStore.GetProfile(r.Context(), sess.UserID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to load profile")
				return
			}
			if profile != nil {
				role = profile.Role
			}

			ac := auth.AuthContext{
				UserID:    sess.UserID,
				Role:      role,
				SessionID: sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
