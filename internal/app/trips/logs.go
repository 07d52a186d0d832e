package trips

import (
	"context"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// appendLog records a feed entry. Failures are logged and never surface to the caller.
func (s *Service) appendLog(ctx context.Context, tripID domain.TripID, user domain.UserID, action domain.LogAction, details map[string]any) {
	if s.logs == nil {
		return
	}
	l := domain.TripLog{
		ID:        domain.TripLogID(s.newID()),
		TripID:    tripID,
		UserID:    user,
		Action:    action,
		Details:   details,
		CreatedAt: s.clk.Now(),
	}
	if err := s.logs.AppendLog(ctx, l); err != nil {
		s.logger.Warnw("failed to append trip log", "tripId", tripID, "action", action, "error", err)
	}
}

// ListLogs returns the most recent feed entries of a trip, newest first.
func (s *Service) ListLogs(ctx context.Context, caller domain.UserID, tripID domain.TripID) ([]LogEntry, error) {
	if _, err := s.requireMember(ctx, tripID, caller); err != nil {
		return nil, err
	}
	ls, err := s.logs.ListLogs(ctx, tripID, logFeedLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]domain.UserID, 0, len(ls))
	for _, l := range ls {
		ids = append(ids, l.UserID)
	}
	profiles, err := s.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]LogEntry, 0, len(ls))
	for _, l := range ls {
		out = append(out, LogEntry{TripLog: l, User: profiles.of(l.UserID)})
	}
	return out, nil
}
