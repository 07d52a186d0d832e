package trips

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
)

// cityForMember loads a city and checks that caller belongs to its trip.
func (s *Service) cityForMember(ctx context.Context, caller domain.UserID, cityID domain.CityID) (domain.City, error) {
	if caller == "" {
		return domain.City{}, errUnauthenticated()
	}
	c, err := s.activities.GetCity(ctx, cityID)
	if err != nil {
		if errors.Is(err, activityrepo.ErrCityNotFound) {
			return domain.City{}, errNotFound(msgCityNotFound)
		}
		return domain.City{}, err
	}
	if _, err := s.requireMember(ctx, c.TripID, caller); err != nil {
		return domain.City{}, err
	}
	return c, nil
}

func (s *Service) activityForMember(ctx context.Context, caller domain.UserID, id domain.ActivityID) (domain.Activity, domain.City, error) {
	if caller == "" {
		return domain.Activity{}, domain.City{}, errUnauthenticated()
	}
	a, err := s.activities.GetActivity(ctx, id)
	if err != nil {
		if errors.Is(err, activityrepo.ErrNotFound) {
			return domain.Activity{}, domain.City{}, errNotFound(msgActivityGone)
		}
		return domain.Activity{}, domain.City{}, err
	}
	c, err := s.cityForMember(ctx, caller, a.CityID)
	if err != nil {
		return domain.Activity{}, domain.City{}, err
	}
	return a, c, nil
}

func (s *Service) ListActivities(ctx context.Context, caller domain.UserID, cityID domain.CityID) ([]domain.Activity, error) {
	if _, err := s.cityForMember(ctx, caller, cityID); err != nil {
		return nil, err
	}
	return s.activities.ListActivities(ctx, cityID)
}

func (s *Service) AddActivity(ctx context.Context, caller domain.UserID, cityID domain.CityID, in CreateActivityInput) (domain.Activity, error) {
	c, err := s.cityForMember(ctx, caller, cityID)
	if err != nil {
		return domain.Activity{}, err
	}
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Activity{}, errValidation("Activity name is required", map[string]any{"name": "required"})
	}

	a := domain.Activity{
		ID:        domain.ActivityID(s.newID()),
		CityID:    cityID,
		Name:      name,
		Date:      in.Date,
		CreatedAt: s.clk.Now(),
	}
	if in.Description != nil {
		d := *in.Description
		a.Description = &d
	}
	stored, err := s.activities.CreateActivity(ctx, a)
	if err != nil {
		if errors.Is(err, activityrepo.ErrCityNotFound) {
			return domain.Activity{}, errNotFound(msgCityNotFound)
		}
		return domain.Activity{}, err
	}

	s.appendLog(ctx, c.TripID, caller, domain.LogActionActivityAdded, map[string]any{"name": stored.Name, "city": c.Name})
	return stored, nil
}

func (s *Service) UpdateActivity(ctx context.Context, caller domain.UserID, id domain.ActivityID, in UpdateActivityInput) (domain.Activity, error) {
	a, _, err := s.activityForMember(ctx, caller, id)
	if err != nil {
		return domain.Activity{}, err
	}

	if in.Name.IsSpecified() {
		if in.Name.IsNull() {
			return domain.Activity{}, errValidation("Activity name is required", map[string]any{"name": "cannot be null"})
		}
		name := domain.NormalizeHumanName(in.Name.Value())
		if name == "" {
			return domain.Activity{}, errValidation("Activity name is required", map[string]any{"name": "required"})
		}
		a.Name = name
	}
	if in.Date.IsSpecified() {
		if in.Date.IsNull() {
			a.Date = nil
		} else {
			d := in.Date.Value()
			a.Date = &d
		}
	}
	if in.Description.IsSpecified() {
		if in.Description.IsNull() {
			a.Description = nil
		} else {
			d := in.Description.Value()
			a.Description = &d
		}
	}
	if in.Order.IsSpecified() {
		if in.Order.IsNull() || in.Order.Value() < 0 {
			return domain.Activity{}, errValidation("Invalid activity order", map[string]any{"order": "must be a non-negative integer"})
		}
		a.Order = in.Order.Value()
	}

	if err := s.activities.UpdateActivity(ctx, a); err != nil {
		if errors.Is(err, activityrepo.ErrNotFound) {
			return domain.Activity{}, errNotFound(msgActivityGone)
		}
		return domain.Activity{}, err
	}
	return a, nil
}

func (s *Service) DeleteActivity(ctx context.Context, caller domain.UserID, id domain.ActivityID) error {
	a, c, err := s.activityForMember(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.activities.DeleteActivity(ctx, id); err != nil {
		if errors.Is(err, activityrepo.ErrNotFound) {
			return errNotFound(msgActivityGone)
		}
		return err
	}
	s.appendLog(ctx, c.TripID, caller, domain.LogActionActivityRemoved, map[string]any{"name": a.Name, "city": c.Name})
	return nil
}
