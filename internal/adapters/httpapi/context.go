package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

type userKey struct{}

// WithUser attaches the authenticated principal to ctx.
func WithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey{}).(domain.User)
	return u, ok && u.ID != ""
}

// callerID is the principal handed to app services; empty means anonymous.
func callerID(ctx context.Context) domain.UserID {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return ""
}
