package triprepo

import (
	"context"
	"time"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// Update describes a trip edit. Nil fields are left unchanged.
type Update struct {
	ID        domain.TripID
	Name      *string
	UpdatedAt time.Time

	// Cities, when non-nil, replaces the whole itinerary (activities of removed cities go with them).
	Cities *[]domain.City
}

// OwnershipTransfer hands a trip from its departing owner to a successor member.
type OwnershipTransfer struct {
	TripID    domain.TripID
	From      domain.Membership
	To        domain.Membership
	UpdatedAt time.Time
}

// Repository persists the trip aggregate: trips, their cities and their memberships.
//
// Trip reads return Cities ordered by Order (each with activities, see domain.SortActivities)
// and Members ordered by JoinedAt then ID.
type Repository interface {
	// Create stores a trip with its cities and initial memberships in one transaction.
	// ErrShareCodeTaken is returned when the share code collides with another trip.
	Create(ctx context.Context, t domain.Trip) error

	GetByID(ctx context.Context, id domain.TripID) (domain.Trip, error)
	// GetByShareCode resolves a code regardless of the active flag; callers decide.
	GetByShareCode(ctx context.Context, code string) (domain.Trip, error)
	// ListForUser returns the trips the user is a member of, newest first.
	ListForUser(ctx context.Context, user domain.UserID) ([]domain.Trip, error)

	Update(ctx context.Context, u Update) error
	// Delete removes the trip and cascades to memberships, cities, activities and logs.
	Delete(ctx context.Context, id domain.TripID) error
	// Dissolve deletes the trip like Delete, but only while last is its only membership.
	// ErrOwnershipChanged is returned when anyone else holds a membership.
	Dissolve(ctx context.Context, id domain.TripID, last domain.MembershipID) error

	// SetShareCode replaces the join code and re-activates it.
	SetShareCode(ctx context.Context, id domain.TripID, code string, updatedAt time.Time) error
	SetShareCodeActive(ctx context.Context, id domain.TripID, active bool, updatedAt time.Time) error

	// AddMember inserts a membership. ErrAlreadyMember is returned when (trip, user) already exists.
	AddMember(ctx context.Context, m domain.Membership) error
	// RemoveMember deletes a member-role membership. ErrOwnershipChanged is returned when the
	// membership holds the creator role, which only TransferOwnership or Dissolve may remove.
	RemoveMember(ctx context.Context, tripID domain.TripID, id domain.MembershipID) error

	// TransferOwnership atomically points the trip at the successor, promotes the successor's
	// membership to creator and deletes the departing membership. Nothing is applied when any
	// step fails; ErrOwnershipChanged is returned if the trip no longer matches tr.
	TransferOwnership(ctx context.Context, tr OwnershipTransfer) error
}
