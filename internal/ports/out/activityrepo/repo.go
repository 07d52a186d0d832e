package activityrepo

import (
	"context"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// Repository provides access to cities and the activities planned in them.
//
// Method names are qualified so a single adapter may also implement the trip repository.
type Repository interface {
	// GetCity returns the city (without activities); its TripID is used for access checks.
	GetCity(ctx context.Context, id domain.CityID) (domain.City, error)

	// ListActivities returns a city's activities ordered per domain.SortActivities.
	ListActivities(ctx context.Context, city domain.CityID) ([]domain.Activity, error)

	// CreateActivity appends an activity to its city. The stored Order is one past the
	// city's current maximum and is returned with the stored activity.
	CreateActivity(ctx context.Context, a domain.Activity) (domain.Activity, error)

	GetActivity(ctx context.Context, id domain.ActivityID) (domain.Activity, error)
	UpdateActivity(ctx context.Context, a domain.Activity) error
	DeleteActivity(ctx context.Context, id domain.ActivityID) error
}
