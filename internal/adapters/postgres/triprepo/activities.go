package triprepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
)

func (r *Repo) GetCity(ctx context.Context, id domain.CityID) (domain.City, error) {
	cityID, err := uuid.Parse(string(id))
	if err != nil {
		return domain.City{}, activityrepo.ErrCityNotFound
	}
	c, err := scanCity(r.db.Pool.QueryRow(ctx, `SELECT `+cityColumns+` FROM cities WHERE id = $1`, cityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.City{}, activityrepo.ErrCityNotFound
		}
		return domain.City{}, err
	}
	return c, nil
}

func (r *Repo) ListActivities(ctx context.Context, city domain.CityID) ([]domain.Activity, error) {
	if _, err := r.GetCity(ctx, city); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+activityColumns("")+`
		FROM activities
		WHERE city_id = $1
		ORDER BY activity_date ASC NULLS LAST, position, id
	`, string(city))
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	domain.SortActivities(out)
	return out, nil
}

func (r *Repo) CreateActivity(ctx context.Context, a domain.Activity) (domain.Activity, error) {
	cityID, err := uuid.Parse(string(a.CityID))
	if err != nil {
		return domain.Activity{}, activityrepo.ErrCityNotFound
	}
	err = pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		// Lock the city so concurrent inserts see each other's positions.
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM cities WHERE id = $1 FOR UPDATE`, cityID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return activityrepo.ErrCityNotFound
			}
			return err
		}
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(position) + 1, 0) FROM activities WHERE city_id = $1
		`, cityID).Scan(&a.Order); err != nil {
			return err
		}
		return insertActivity(ctx, tx, a)
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

func (r *Repo) GetActivity(ctx context.Context, id domain.ActivityID) (domain.Activity, error) {
	activityID, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Activity{}, activityrepo.ErrNotFound
	}
	a, err := scanActivity(r.db.Pool.QueryRow(ctx, `SELECT `+activityColumns("")+` FROM activities WHERE id = $1`, activityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Activity{}, activityrepo.ErrNotFound
		}
		return domain.Activity{}, err
	}
	return a, nil
}

func (r *Repo) UpdateActivity(ctx context.Context, a domain.Activity) error {
	activityID, err := uuid.Parse(string(a.ID))
	if err != nil {
		return activityrepo.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE activities
		SET name = $2, activity_date = $3, description = $4, position = $5
		WHERE id = $1
	`, activityID, a.Name, a.Date, a.Description, a.Order)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return activityrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteActivity(ctx context.Context, id domain.ActivityID) error {
	activityID, err := uuid.Parse(string(id))
	if err != nil {
		return activityrepo.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, activityID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return activityrepo.ErrNotFound
	}
	return nil
}

func insertActivity(ctx context.Context, q querier, a domain.Activity) error {
	id, err := uuid.Parse(string(a.ID))
	if err != nil {
		return fmt.Errorf("invalid activity id: %w", err)
	}
	cityID, err := uuid.Parse(string(a.CityID))
	if err != nil {
		return activityrepo.ErrCityNotFound
	}
	_, err = q.Exec(ctx, `
		INSERT INTO activities (id, city_id, name, activity_date, description, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, cityID, a.Name, a.Date, a.Description, a.Order, a.CreatedAt.UTC())
	return err
}
