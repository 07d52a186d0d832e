package triprepo

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
)

func (r *Repo) AppendLog(ctx context.Context, l domain.TripLog) error {
	id, err := uuid.Parse(string(l.ID))
	if err != nil {
		return fmt.Errorf("invalid log id: %w", err)
	}
	tripID, err := uuid.Parse(string(l.TripID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	userID, err := uuid.Parse(string(l.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	var details []byte
	if l.Details != nil {
		if details, err = json.Marshal(l.Details); err != nil {
			return fmt.Errorf("encode log details: %w", err)
		}
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO trip_logs (id, trip_id, user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, tripID, userID, string(l.Action), details, l.CreatedAt.UTC())
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return triprepo.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *Repo) ListLogs(ctx context.Context, trip domain.TripID, limit int) ([]domain.TripLog, error) {
	tripID, err := uuid.Parse(string(trip))
	if err != nil {
		return []domain.TripLog{}, nil
	}
	q := r.db.Statement().
		Select("id", "trip_id", "user_id", "action", "details", "created_at").
		From("trip_logs").
		Where(sq.Eq{"trip_id": tripID.String()}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip logs: %w", err)
	}
	defer rows.Close()

	out := []domain.TripLog{}
	for rows.Next() {
		var (
			l               domain.TripLog
			id, tid, userID uuid.UUID
			action          string
			details         []byte
		)
		if err := rows.Scan(&id, &tid, &userID, &action, &details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip log: %w", err)
		}
		l.ID = domain.TripLogID(id.String())
		l.TripID = domain.TripID(tid.String())
		l.UserID = domain.UserID(userID.String())
		l.Action = domain.LogAction(action)
		l.CreatedAt = l.CreatedAt.UTC()
		if len(details) > 0 {
			if err := json.Unmarshal(details, &l.Details); err != nil {
				return nil, fmt.Errorf("decode log details: %w", err)
			}
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip log rows: %w", err)
	}
	return out, nil
}
