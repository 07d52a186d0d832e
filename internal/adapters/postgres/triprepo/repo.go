package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	postgres "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triplogrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
)

var (
	_ triprepo.Repository     = (*Repo)(nil)
	_ activityrepo.Repository = (*Repo)(nil)
	_ triplogrepo.Repository  = (*Repo)(nil)
)

// Repo is a Postgres implementation of the trip aggregate ports. Cascading deletes are
// enforced by foreign keys; multi-row writes run in a single transaction.
type Repo struct {
	db *postgres.DB
}

func NewRepo(db *postgres.DB) *Repo {
	return &Repo{db: db}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) Create(ctx context.Context, t domain.Trip) error {
	if r.db == nil || r.db.Pool == nil {
		return errors.New("nil postgres pool")
	}
	tripID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	creatorID, err := uuid.Parse(string(t.CreatorID))
	if err != nil {
		return fmt.Errorf("invalid creator id: %w", err)
	}

	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO trips (id, name, share_code, share_code_active, color, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, tripID, t.Name, t.ShareCode, t.ShareCodeActive, t.Color, creatorID, t.CreatedAt.UTC(), t.UpdatedAt.UTC())
		if err != nil {
			pe, ok := postgres.AsPgError(err)
			if ok && pe.Code == postgres.UniqueViolationCode {
				switch pe.ConstraintName {
				case "trips_share_code_unique":
					return triprepo.ErrShareCodeTaken
				case "trips_pkey":
					return triprepo.ErrAlreadyExists
				}
			}
			return err
		}
		if err := insertCities(ctx, tx, tripID, t.Cities); err != nil {
			return err
		}
		for _, m := range t.Members {
			m.TripID = t.ID
			if err := insertMember(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	tripID, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	ts, err := loadTrips(ctx, r.db.Pool, []uuid.UUID{tripID})
	if err != nil {
		return domain.Trip{}, err
	}
	if len(ts) == 0 {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	return ts[0], nil
}

func (r *Repo) GetByShareCode(ctx context.Context, code string) (domain.Trip, error) {
	if code == "" {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	var tripID uuid.UUID
	err := r.db.Pool.QueryRow(ctx, `SELECT id FROM trips WHERE share_code = $1`, code).Scan(&tripID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, triprepo.ErrNotFound
		}
		return domain.Trip{}, err
	}
	return r.GetByID(ctx, domain.TripID(tripID.String()))
}

func (r *Repo) ListForUser(ctx context.Context, user domain.UserID) ([]domain.Trip, error) {
	userID, err := uuid.Parse(string(user))
	if err != nil {
		return []domain.Trip{}, nil
	}
	rows, err := r.db.Statement().
		Select("t.id").
		From("trips t").
		Join("trip_members m ON m.trip_id = t.id").
		Where(sq.Eq{"m.user_id": userID.String()}).
		OrderBy("t.created_at DESC", "t.id DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trip id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip rows: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Trip{}, nil
	}
	return loadTrips(ctx, r.db.Pool, ids)
}

func (r *Repo) Update(ctx context.Context, u triprepo.Update) error {
	tripID, err := uuid.Parse(string(u.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE trips
			SET name = COALESCE($2, name),
			    updated_at = $3
			WHERE id = $1
		`, tripID, u.Name, u.UpdatedAt.UTC())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return triprepo.ErrNotFound
		}
		if u.Cities == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cities WHERE trip_id = $1`, tripID); err != nil {
			return err
		}
		return insertCities(ctx, tx, tripID, *u.Cities)
	})
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	tripID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Dissolve(ctx context.Context, id domain.TripID, last domain.MembershipID) error {
	tripID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	lastID, err := uuid.Parse(string(last))
	if err != nil {
		return triprepo.ErrOwnershipChanged
	}

	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		// The row lock conflicts with the key-share lock a joining insert takes through the
		// trip_members foreign key, so no membership can appear until this commits.
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM trips WHERE id = $1 FOR UPDATE`, tripID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.ErrNotFound
		}
		if err != nil {
			return err
		}

		var mine, total int
		err = tx.QueryRow(ctx, `
			SELECT count(*) FILTER (WHERE id = $2), count(*)
			FROM trip_members WHERE trip_id = $1
		`, tripID, lastID).Scan(&mine, &total)
		if err != nil {
			return err
		}
		if mine != 1 || total != 1 {
			return triprepo.ErrOwnershipChanged
		}

		_, err = tx.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripID)
		return err
	})
}

func (r *Repo) SetShareCode(ctx context.Context, id domain.TripID, code string, updatedAt time.Time) error {
	tripID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE trips
		SET share_code = $2, share_code_active = TRUE, updated_at = $3
		WHERE id = $1
	`, tripID, code, updatedAt.UTC())
	if err != nil {
		if postgres.IsUniqueViolation(err, "trips_share_code_unique") {
			return triprepo.ErrShareCodeTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) SetShareCodeActive(ctx context.Context, id domain.TripID, active bool, updatedAt time.Time) error {
	tripID, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE trips SET share_code_active = $2, updated_at = $3 WHERE id = $1
	`, tripID, active, updatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) AddMember(ctx context.Context, m domain.Membership) error {
	err := insertMember(ctx, r.db.Pool, m)
	if err != nil && postgres.IsForeignKeyViolation(err) {
		return triprepo.ErrNotFound
	}
	return err
}

func (r *Repo) RemoveMember(ctx context.Context, tripID domain.TripID, id domain.MembershipID) error {
	tid, err := uuid.Parse(string(tripID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	mid, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrMembershipNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM trip_members WHERE id = $1 AND trip_id = $2 AND role = 'member'
	`, mid, tid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var role string
	err = r.db.Pool.QueryRow(ctx, `SELECT role FROM trip_members WHERE id = $1 AND trip_id = $2`, mid, tid).Scan(&role)
	switch {
	case err == nil:
		return triprepo.ErrOwnershipChanged
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}
	if exists, err := tripExists(ctx, r.db.Pool, tid); err != nil {
		return err
	} else if !exists {
		return triprepo.ErrNotFound
	}
	return triprepo.ErrMembershipNotFound
}

func (r *Repo) TransferOwnership(ctx context.Context, tr triprepo.OwnershipTransfer) error {
	tripID, err := uuid.Parse(string(tr.TripID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	fromID, err1 := uuid.Parse(string(tr.From.ID))
	fromUser, err2 := uuid.Parse(string(tr.From.UserID))
	toID, err3 := uuid.Parse(string(tr.To.ID))
	toUser, err4 := uuid.Parse(string(tr.To.UserID))
	if err := errors.Join(err1, err2, err3, err4); err != nil || fromID == toID {
		return triprepo.ErrOwnershipChanged
	}

	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE trips SET creator_id = $3, updated_at = $4
			WHERE id = $1 AND creator_id = $2
		`, tripID, fromUser, toUser, tr.UpdatedAt.UTC())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			if exists, err := tripExists(ctx, tx, tripID); err != nil {
				return err
			} else if !exists {
				return triprepo.ErrNotFound
			}
			return triprepo.ErrOwnershipChanged
		}

		// The departing creator row goes first so the one-creator index holds throughout.
		tag, err = tx.Exec(ctx, `
			DELETE FROM trip_members
			WHERE id = $1 AND trip_id = $2 AND user_id = $3 AND role = 'creator'
		`, fromID, tripID, fromUser)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return triprepo.ErrOwnershipChanged
		}

		tag, err = tx.Exec(ctx, `
			UPDATE trip_members SET role = 'creator'
			WHERE id = $1 AND trip_id = $2 AND user_id = $3
		`, toID, tripID, toUser)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return triprepo.ErrOwnershipChanged
		}
		return nil
	})
}

func tripExists(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func insertMember(ctx context.Context, q querier, m domain.Membership) error {
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid membership id: %w", err)
	}
	tripID, err := uuid.Parse(string(m.TripID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	userID, err := uuid.Parse(string(m.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO trip_members (id, trip_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, tripID, userID, string(m.Role), m.JoinedAt.UTC())
	if err != nil {
		if postgres.IsUniqueViolation(err, "trip_members_trip_user_unique") {
			return triprepo.ErrAlreadyMember
		}
		return err
	}
	return nil
}

func insertCities(ctx context.Context, q querier, tripID uuid.UUID, cities []domain.City) error {
	for _, c := range cities {
		cityID, err := uuid.Parse(string(c.ID))
		if err != nil {
			return fmt.Errorf("invalid city id: %w", err)
		}
		_, err = q.Exec(ctx, `
			INSERT INTO cities (id, trip_id, name, country, lat, lng, arrive_date, depart_date, position, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, cityID, tripID, c.Name, c.Country, c.Lat, c.Lng, c.ArriveDate, c.DepartDate, c.Order, c.Notes)
		if err != nil {
			return err
		}
		for _, a := range c.Activities {
			a.CityID = c.ID
			if err := insertActivity(ctx, q, a); err != nil {
				return err
			}
		}
	}
	return nil
}
