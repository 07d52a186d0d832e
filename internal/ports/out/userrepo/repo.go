package userrepo

import (
	"context"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// Repository provides access to persisted user accounts.
//
// Emails are stored normalized (see domain.NormalizeEmail); lookups expect normalized input.
type Repository interface {
	Create(ctx context.Context, u domain.User) error

	GetByID(ctx context.Context, id domain.UserID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByToken(ctx context.Context, token string) (domain.User, error)

	// ListByIDs returns the users that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []domain.UserID) ([]domain.User, error)
}
