package triprepo

import (
	"context"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
)

func (r *Repo) GetCity(ctx context.Context, id domain.CityID) (domain.City, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ci, ok := r.cityLocked(id)
	if !ok {
		return domain.City{}, activityrepo.ErrCityNotFound
	}
	c := cloneCity(r.byID[r.cityTrip[id]].Cities[ci])
	c.Activities = nil
	return c, nil
}

func (r *Repo) ListActivities(ctx context.Context, city domain.CityID) ([]domain.Activity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ci, ok := r.cityLocked(city)
	if !ok {
		return nil, activityrepo.ErrCityNotFound
	}
	out := cloneCity(t.Cities[ci]).Activities
	if out == nil {
		out = []domain.Activity{}
	}
	domain.SortActivities(out)
	return out, nil
}

func (r *Repo) CreateActivity(ctx context.Context, a domain.Activity) (domain.Activity, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ci, ok := r.cityLocked(a.CityID)
	if !ok {
		return domain.Activity{}, activityrepo.ErrCityNotFound
	}
	next := 0
	for _, existing := range t.Cities[ci].Activities {
		if existing.Order+1 > next {
			next = existing.Order + 1
		}
	}
	a.Order = next

	t = cloneTrip(t)
	t.Cities[ci].Activities = append(t.Cities[ci].Activities, cloneActivity(a))
	r.byID[t.ID] = t
	r.activityCity[a.ID] = a.CityID
	return cloneActivity(a), nil
}

func (r *Repo) GetActivity(ctx context.Context, id domain.ActivityID) (domain.Activity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ci, ai, ok := r.activityLocked(id)
	if !ok {
		return domain.Activity{}, activityrepo.ErrNotFound
	}
	return cloneActivity(t.Cities[ci].Activities[ai]), nil
}

func (r *Repo) UpdateActivity(ctx context.Context, a domain.Activity) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ci, ai, ok := r.activityLocked(a.ID)
	if !ok {
		return activityrepo.ErrNotFound
	}
	t = cloneTrip(t)
	existing := t.Cities[ci].Activities[ai]
	a.CityID = existing.CityID
	a.CreatedAt = existing.CreatedAt
	t.Cities[ci].Activities[ai] = cloneActivity(a)
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) DeleteActivity(ctx context.Context, id domain.ActivityID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ci, ai, ok := r.activityLocked(id)
	if !ok {
		return activityrepo.ErrNotFound
	}
	t = cloneTrip(t)
	as := t.Cities[ci].Activities
	t.Cities[ci].Activities = append(as[:ai], as[ai+1:]...)
	r.byID[t.ID] = t
	delete(r.activityCity, id)
	return nil
}

func (r *Repo) cityLocked(id domain.CityID) (domain.Trip, int, bool) {
	tripID, ok := r.cityTrip[id]
	if !ok {
		return domain.Trip{}, -1, false
	}
	t, ok := r.byID[tripID]
	if !ok {
		return domain.Trip{}, -1, false
	}
	for i, c := range t.Cities {
		if c.ID == id {
			return t, i, true
		}
	}
	return domain.Trip{}, -1, false
}

func (r *Repo) activityLocked(id domain.ActivityID) (domain.Trip, int, int, bool) {
	cityID, ok := r.activityCity[id]
	if !ok {
		return domain.Trip{}, -1, -1, false
	}
	t, ci, ok := r.cityLocked(cityID)
	if !ok {
		return domain.Trip{}, -1, -1, false
	}
	for ai, a := range t.Cities[ci].Activities {
		if a.ID == id {
			return t, ci, ai, true
		}
	}
	return domain.Trip{}, -1, -1, false
}
