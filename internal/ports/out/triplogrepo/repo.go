package triplogrepo

import (
	"context"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// Repository stores the append-only trip activity feed.
type Repository interface {
	AppendLog(ctx context.Context, l domain.TripLog) error

	// ListLogs returns at most limit entries for the trip, newest first.
	ListLogs(ctx context.Context, trip domain.TripID, limit int) ([]domain.TripLog, error)
}
