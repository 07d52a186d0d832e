package triprepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

// loadTrips reads whole aggregates for ids, returned in the order of ids. Missing trips are skipped.
func loadTrips(ctx context.Context, q querier, ids []uuid.UUID) ([]domain.Trip, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	byID := make(map[uuid.UUID]*domain.Trip, len(ids))
	rows, err := q.Query(ctx, `
		SELECT id, name, share_code, share_code_active, color, creator_id, created_at, updated_at
		FROM trips
		WHERE id = ANY($1::uuid[])
	`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}
	for rows.Next() {
		var (
			t          domain.Trip
			id, author uuid.UUID
		)
		if err := rows.Scan(&id, &t.Name, &t.ShareCode, &t.ShareCodeActive, &t.Color, &author, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		t.ID = domain.TripID(id.String())
		t.CreatorID = domain.UserID(author.String())
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		t.Cities = []domain.City{}
		t.Members = []domain.Membership{}
		byID[id] = &t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip rows: %w", err)
	}
	if len(byID) == 0 {
		return []domain.Trip{}, nil
	}

	if err := loadMembers(ctx, q, keys, byID); err != nil {
		return nil, err
	}
	if err := loadCities(ctx, q, keys, byID); err != nil {
		return nil, err
	}

	out := make([]domain.Trip, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func loadMembers(ctx context.Context, q querier, keys []string, byID map[uuid.UUID]*domain.Trip) error {
	rows, err := q.Query(ctx, `
		SELECT id, trip_id, user_id, role, joined_at
		FROM trip_members
		WHERE trip_id = ANY($1::uuid[])
		ORDER BY joined_at, id
	`, keys)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m                  domain.Membership
			id, tripID, userID uuid.UUID
			role               string
		)
		if err := rows.Scan(&id, &tripID, &userID, &role, &m.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		m.ID = domain.MembershipID(id.String())
		m.TripID = domain.TripID(tripID.String())
		m.UserID = domain.UserID(userID.String())
		m.Role = domain.Role(role)
		m.JoinedAt = m.JoinedAt.UTC()
		if t, ok := byID[tripID]; ok {
			t.Members = append(t.Members, m)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating member rows: %w", err)
	}
	for _, t := range byID {
		domain.SortMembers(t.Members)
	}
	return nil
}

func loadCities(ctx context.Context, q querier, keys []string, byID map[uuid.UUID]*domain.Trip) error {
	rows, err := q.Query(ctx, `
		SELECT `+cityColumns+`
		FROM cities
		WHERE trip_id = ANY($1::uuid[])
		ORDER BY position, id
	`, keys)
	if err != nil {
		return fmt.Errorf("failed to load cities: %w", err)
	}
	cityIndex := make(map[domain.CityID]*domain.City)
	var order []domain.City
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan city: %w", err)
		}
		order = append(order, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating city rows: %w", err)
	}
	for _, c := range order {
		tripID, _ := uuid.Parse(string(c.TripID))
		if t, ok := byID[tripID]; ok {
			t.Cities = append(t.Cities, c)
		}
	}
	for _, t := range byID {
		domain.SortCities(t.Cities)
		for i := range t.Cities {
			cityIndex[t.Cities[i].ID] = &t.Cities[i]
		}
	}

	arows, err := q.Query(ctx, `
		SELECT `+activityColumns("a.")+`
		FROM activities a
		JOIN cities c ON c.id = a.city_id
		WHERE c.trip_id = ANY($1::uuid[])
	`, keys)
	if err != nil {
		return fmt.Errorf("failed to load activities: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		a, err := scanActivity(arows)
		if err != nil {
			return fmt.Errorf("failed to scan activity: %w", err)
		}
		if c, ok := cityIndex[a.CityID]; ok {
			c.Activities = append(c.Activities, a)
		}
	}
	if err := arows.Err(); err != nil {
		return fmt.Errorf("error iterating activity rows: %w", err)
	}
	for _, c := range cityIndex {
		if c.Activities == nil {
			c.Activities = []domain.Activity{}
		}
		domain.SortActivities(c.Activities)
	}
	return nil
}

const cityColumns = `id, trip_id, name, country, lat, lng, arrive_date, depart_date, position, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanCity(row scanner) (domain.City, error) {
	var (
		c          domain.City
		id, tripID uuid.UUID
		depart     *time.Time
	)
	if err := row.Scan(&id, &tripID, &c.Name, &c.Country, &c.Lat, &c.Lng, &c.ArriveDate, &depart, &c.Order, &c.Notes); err != nil {
		return domain.City{}, err
	}
	c.ID = domain.CityID(id.String())
	c.TripID = domain.TripID(tripID.String())
	c.ArriveDate = dateUTC(c.ArriveDate)
	if depart != nil {
		d := dateUTC(*depart)
		c.DepartDate = &d
	}
	return c, nil
}

func activityColumns(prefix string) string {
	return prefix + "id, " + prefix + "city_id, " + prefix + "name, " + prefix + "activity_date, " +
		prefix + "description, " + prefix + "position, " + prefix + "created_at"
}

func scanActivity(row scanner) (domain.Activity, error) {
	var (
		a          domain.Activity
		id, cityID uuid.UUID
		date       *time.Time
	)
	if err := row.Scan(&id, &cityID, &a.Name, &date, &a.Description, &a.Order, &a.CreatedAt); err != nil {
		return domain.Activity{}, err
	}
	a.ID = domain.ActivityID(id.String())
	a.CityID = domain.CityID(cityID.String())
	a.CreatedAt = a.CreatedAt.UTC()
	if date != nil {
		d := dateUTC(*date)
		a.Date = &d
	}
	return a, nil
}

// dateUTC normalizes a DATE value to midnight UTC.
func dateUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
