package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sahajkedia/student-profile-challenge/internal/httputil"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying the caller identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// CurrentIdentity extracts the caller identity from ctx.
func CurrentIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// LoadSession puts the session identity, when present, into the request
// context. It never rejects a request.
func LoadSession(sessions *Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok, err := sessions.Load(r)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to load session", "error", err)
			}
			if ok {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r.Context()); !ok {
			respondUnauthenticated(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAnyRole admits authenticated callers holding one of roles.
func RequireAnyRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := CurrentIdentity(r.Context())
			if !ok {
				respondUnauthenticated(w, "Authentication required")
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httputil.RespondWithMessage(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

type unauthenticatedResponse struct {
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message"`
}

func respondUnauthenticated(w http.ResponseWriter, message string) {
	httputil.RespondWithJSON(w, http.StatusUnauthorized, unauthenticatedResponse{Message: message})
}
