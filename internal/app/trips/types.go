package trips

import (
	"time"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

type CityInput struct {
	Name       string
	Country    string
	Lat        float64
	Lng        float64
	ArriveDate time.Time
	DepartDate *time.Time
	Notes      *string
}

type CreateTripInput struct {
	// Name defaults to "Trip to <first city>" when blank.
	Name   string
	Cities []CityInput
}

type UpdateTripInput struct {
	Name *string
	// Cities, when non-nil, replaces the itinerary.
	Cities *[]CityInput
}

type CreateActivityInput struct {
	Name        string
	Date        *time.Time
	Description *string
}

type UpdateActivityInput struct {
	Name        Optional[string] // cannot be null
	Date        Optional[time.Time]
	Description Optional[string]
	Order       Optional[int] // cannot be null
}

// MemberView is a membership together with the public profile of its user.
type MemberView struct {
	domain.Membership
	User domain.UserSummary
}

// TripView is what trip-scoped reads return to callers.
type TripView struct {
	Trip            domain.Trip
	Members         []MemberView
	TotalDistanceKm int
}

// LogEntry is a trip log entry with its author's public profile.
type LogEntry struct {
	domain.TripLog
	User domain.UserSummary
}

// ShareLink is the current join-code state of a trip.
type ShareLink struct {
	Code   string
	Active bool
}
