package trips

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
)

// loadTrip re-reads the trip on every call; membership and ownership are never cached.
func (s *Service) loadTrip(ctx context.Context, tripID domain.TripID, caller domain.UserID) (domain.Trip, error) {
	if caller == "" {
		return domain.Trip{}, errUnauthenticated()
	}
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, errNotFound(msgTripNotFound)
		}
		return domain.Trip{}, err
	}
	return t, nil
}

// requireMember returns the trip when caller holds a membership in it.
func (s *Service) requireMember(ctx context.Context, tripID domain.TripID, caller domain.UserID) (domain.Trip, error) {
	t, err := s.loadTrip(ctx, tripID, caller)
	if err != nil {
		return domain.Trip{}, err
	}
	if _, ok := t.MembershipOf(caller); !ok {
		return domain.Trip{}, errForbidden(msgAccessDenied)
	}
	return t, nil
}

// requireOwner returns the trip when caller is its current creator.
func (s *Service) requireOwner(ctx context.Context, tripID domain.TripID, caller domain.UserID, denied string) (domain.Trip, error) {
	t, err := s.loadTrip(ctx, tripID, caller)
	if err != nil {
		return domain.Trip{}, err
	}
	if !t.IsOwner(caller) {
		return domain.Trip{}, errForbidden(denied)
	}
	return t, nil
}
