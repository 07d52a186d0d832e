package trips

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/sharecode"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
)

// resolveCode maps a join code to its trip. Unknown and deactivated codes look the same.
func (s *Service) resolveCode(ctx context.Context, code string) (domain.Trip, error) {
	code = domain.NormalizeShareCode(code)
	if !sharecode.WellFormed(code) {
		return domain.Trip{}, errNotFound(msgLinkNotFound)
	}
	t, err := s.trips.GetByShareCode(ctx, code)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, errNotFound(msgLinkNotFound)
		}
		return domain.Trip{}, err
	}
	if !t.ShareCodeActive {
		return domain.Trip{}, errNotFound(msgLinkNotFound)
	}
	return t, nil
}

// PreviewByCode shows what a join link points at. No principal is required.
func (s *Service) PreviewByCode(ctx context.Context, code string) (TripView, error) {
	t, err := s.resolveCode(ctx, code)
	if err != nil {
		return TripView{}, err
	}
	return s.view(ctx, t)
}

// Join adds caller to the trip behind code. Joining twice is not an error.
func (s *Service) Join(ctx context.Context, caller domain.UserID, code string) (TripView, error) {
	ctx, span := s.tracer.Start(ctx, "trips.Service.Join")
	defer span.End()

	if caller == "" {
		return TripView{}, errUnauthenticated()
	}
	t, err := s.resolveCode(ctx, code)
	if err != nil {
		return TripView{}, err
	}
	if _, ok := t.MembershipOf(caller); ok {
		return s.view(ctx, t)
	}

	m := domain.Membership{
		ID:       domain.MembershipID(s.newID()),
		TripID:   t.ID,
		UserID:   caller,
		Role:     domain.RoleMember,
		JoinedAt: s.clk.Now(),
	}
	if err := s.trips.AddMember(ctx, m); err != nil {
		switch {
		case errors.Is(err, triprepo.ErrAlreadyMember):
			// Lost a race with a concurrent join by the same user.
			return s.reload(ctx, t.ID)
		case errors.Is(err, triprepo.ErrNotFound):
			return TripView{}, errNotFound(msgLinkNotFound)
		default:
			return TripView{}, err
		}
	}

	s.metrics.MembershipEvent("joined")
	s.appendLog(ctx, t.ID, caller, domain.LogActionJoined, nil)
	s.logger.Infow("member joined", "tripId", t.ID, "userId", caller)
	return s.reload(ctx, t.ID)
}

// leaveAttempts bounds how often Leave restarts after a concurrent membership change.
const leaveAttempts = 3

// Leave removes caller from the trip. An owner hands the trip to the longest-standing
// remaining member; the last member leaving deletes the trip.
func (s *Service) Leave(ctx context.Context, caller domain.UserID, tripID domain.TripID) error {
	ctx, span := s.tracer.Start(ctx, "trips.Service.Leave")
	defer span.End()

	for attempt := 1; ; attempt++ {
		err := s.leave(ctx, caller, tripID)
		if !errors.Is(err, triprepo.ErrOwnershipChanged) {
			return err
		}
		if attempt == leaveAttempts {
			s.logger.Errorw("leave kept losing to concurrent membership changes", "tripId", tripID, "userId", caller)
			return errTransaction("Failed to leave trip")
		}
		s.logger.Debugw("membership changed during leave, retrying", "tripId", tripID, "userId", caller, "attempt", attempt)
	}
}

// leave applies one attempt against a fresh load. triprepo.ErrOwnershipChanged means the
// store refused the write because the trip moved on since the load.
func (s *Service) leave(ctx context.Context, caller domain.UserID, tripID domain.TripID) error {
	t, err := s.loadTrip(ctx, tripID, caller)
	if err != nil {
		return err
	}
	mine, ok := t.MembershipOf(caller)
	if !ok {
		return errInvalidState(msgNotAMember)
	}

	if !t.IsOwner(caller) {
		if err := s.trips.RemoveMember(ctx, tripID, mine.ID); err != nil {
			if errors.Is(err, triprepo.ErrMembershipNotFound) || errors.Is(err, triprepo.ErrNotFound) {
				return errInvalidState(msgNotAMember)
			}
			return err
		}
		s.metrics.MembershipEvent("left")
		s.appendLog(ctx, tripID, caller, domain.LogActionLeft, nil)
		s.logger.Infow("member left", "tripId", tripID, "userId", caller)
		return nil
	}

	successor, ok := t.Successor(caller)
	if !ok {
		if err := s.trips.Dissolve(ctx, tripID, mine.ID); err != nil && !errors.Is(err, triprepo.ErrNotFound) {
			return err
		}
		s.metrics.MembershipEvent("trip_dissolved")
		s.logger.Infow("last member left, trip deleted", "tripId", tripID, "userId", caller)
		return nil
	}

	err = s.trips.TransferOwnership(ctx, triprepo.OwnershipTransfer{
		TripID:    tripID,
		From:      mine,
		To:        successor,
		UpdatedAt: s.clk.Now(),
	})
	if err != nil {
		if errors.Is(err, triprepo.ErrOwnershipChanged) {
			return err
		}
		s.logger.Errorw("ownership transfer failed",
			"tripId", tripID, "from", caller, "to", successor.UserID, "error", err)
		return errTransaction("Failed to leave trip")
	}

	s.metrics.MembershipEvent("ownership_transferred")
	s.appendLog(ctx, tripID, caller, domain.LogActionLeft, map[string]any{"transferredTo": string(successor.UserID)})
	s.logger.Infow("owner left, ownership transferred", "tripId", tripID, "from", caller, "to", successor.UserID)
	return nil
}

// RevokeLink rotates the trip's join code. The previous code stops resolving immediately.
func (s *Service) RevokeLink(ctx context.Context, caller domain.UserID, tripID domain.TripID) (ShareLink, error) {
	if _, err := s.requireOwner(ctx, tripID, caller, msgOnlyRevoke); err != nil {
		return ShareLink{}, err
	}

	var issued string
	err := s.withFreshShareCode(ctx, func(code string) error {
		issued = code
		return s.trips.SetShareCode(ctx, tripID, code, s.clk.Now())
	})
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return ShareLink{}, errNotFound(msgTripNotFound)
		}
		return ShareLink{}, err
	}

	s.metrics.MembershipEvent("link_rotated")
	s.appendLog(ctx, tripID, caller, domain.LogActionLinkRevoked, nil)
	return ShareLink{Code: issued, Active: true}, nil
}

// SetLinkActive pauses or resumes the current join code without rotating it.
func (s *Service) SetLinkActive(ctx context.Context, caller domain.UserID, tripID domain.TripID, active bool) (ShareLink, error) {
	t, err := s.requireOwner(ctx, tripID, caller, msgOnlyShareLink)
	if err != nil {
		return ShareLink{}, err
	}
	if err := s.trips.SetShareCodeActive(ctx, tripID, active, s.clk.Now()); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return ShareLink{}, errNotFound(msgTripNotFound)
		}
		return ShareLink{}, err
	}
	s.appendLog(ctx, tripID, caller, domain.LogActionLinkToggled, map[string]any{"active": active})
	return ShareLink{Code: t.ShareCode, Active: active}, nil
}
