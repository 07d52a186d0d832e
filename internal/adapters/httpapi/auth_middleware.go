package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/triplink-api/internal/app/users"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
)

// TokenAuthenticator resolves an opaque session token to its user.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// NewAuthMiddleware resolves the session token from the cookie (or an
// Authorization: Bearer header) and stores the user in request context.
//
// A missing or unknown token leaves the request anonymous and handlers that need a
// principal answer 401. Any other lookup failure is logged and answered with a 500.
func NewAuthMiddleware(auth TokenAuthenticator, cookieName string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if ue := (*users.Error)(nil); errors.As(err, &ue) && ue.Code == "UNAUTHENTICATED" {
					next.ServeHTTP(w, r)
					return
				}
				logger.Errorw("session lookup failed", "method", r.Method, "path", r.URL.Path, "requestId", middleware.GetReqID(r.Context()), "error", err)
				writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	const prefix = "Bearer "
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	}
	return ""
}
