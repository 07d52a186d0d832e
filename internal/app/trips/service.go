package trips

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/sharecode"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
	clockport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/suggester"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triplogrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/userrepo"
)

const (
	// maxShareCodeAttempts bounds retries when a freshly generated code collides.
	maxShareCodeAttempts = 5
	logFeedLimit         = 50
)

// Metrics receives membership lifecycle and fallback events.
type Metrics interface {
	MembershipEvent(event string)
	Fallback(dependency string)
}

type noopMetrics struct{}

func (noopMetrics) MembershipEvent(string) {}
func (noopMetrics) Fallback(string)        {}

// Service implements trips, their membership lifecycle, share links, activities and logs.
// Every operation takes the caller explicitly; an empty caller is unauthenticated.
type Service struct {
	trips      triprepo.Repository
	activities activityrepo.Repository
	logs       triplogrepo.Repository
	users      userrepo.Repository
	clk        clockport.Clock
	logger     *logging.Logger
	tracer     trace.Tracer
	metrics    Metrics
	suggester  suggester.Suggester

	newID        func() string
	newShareCode func() (string, error)
	pickColor    func() string
}

func NewService(
	tripsRepo triprepo.Repository,
	activitiesRepo activityrepo.Repository,
	logsRepo triplogrepo.Repository,
	usersRepo userrepo.Repository,
	clk clockport.Clock,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Service{
		trips:      tripsRepo,
		activities: activitiesRepo,
		logs:       logsRepo,
		users:      usersRepo,
		clk:        clk,
		logger:     logger,
		tracer:     otel.Tracer("github.com/Overland-East-Bay/triplink-api/internal/app/trips"),
		metrics:    noopMetrics{},
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
		newShareCode: sharecode.NewGenerator(sharecode.DefaultLength),
		pickColor: func() string {
			return domain.TripColors[rand.IntN(len(domain.TripColors))]
		},
	}
}

// SetSuggester enables AI activity suggestions. Without one, the fallback list is served.
func (s *Service) SetSuggester(sg suggester.Suggester) { s.suggester = sg }

func (s *Service) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// SetNewIDForTest overrides ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewIDForTest(fn func() string) {
	if fn != nil {
		s.newID = fn
	}
}

// SetShareCodeGeneratorForTest overrides join-code generation.
// It should not be used in production code.
func (s *Service) SetShareCodeGeneratorForTest(fn func() (string, error)) {
	if fn != nil {
		s.newShareCode = fn
	}
}

func (s *Service) ListMyTrips(ctx context.Context, caller domain.UserID) ([]TripView, error) {
	if caller == "" {
		return nil, errUnauthenticated()
	}
	ts, err := s.trips.ListForUser(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, ts)
}

func (s *Service) GetTrip(ctx context.Context, caller domain.UserID, tripID domain.TripID) (TripView, error) {
	t, err := s.requireMember(ctx, tripID, caller)
	if err != nil {
		return TripView{}, err
	}
	return s.view(ctx, t)
}

func (s *Service) CreateTrip(ctx context.Context, caller domain.UserID, in CreateTripInput) (TripView, error) {
	ctx, span := s.tracer.Start(ctx, "trips.Service.CreateTrip")
	defer span.End()

	if caller == "" {
		return TripView{}, errUnauthenticated()
	}
	if len(in.Cities) == 0 {
		return TripView{}, errValidation("At least one city is required", nil)
	}

	tripID := domain.TripID(s.newID())
	cities, err := s.buildCities(tripID, in.Cities)
	if err != nil {
		return TripView{}, err
	}
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		name = "Trip to " + cities[0].Name
	}

	now := s.clk.Now()
	t := domain.Trip{
		ID:              tripID,
		Name:            name,
		ShareCodeActive: true,
		Color:           s.pickColor(),
		CreatorID:       caller,
		CreatedAt:       now,
		UpdatedAt:       now,
		Cities:          cities,
		Members: []domain.Membership{{
			ID:       domain.MembershipID(s.newID()),
			TripID:   tripID,
			UserID:   caller,
			Role:     domain.RoleCreator,
			JoinedAt: now,
		}},
	}

	err = s.withFreshShareCode(ctx, func(code string) error {
		t.ShareCode = code
		return s.trips.Create(ctx, t)
	})
	if err != nil {
		return TripView{}, err
	}

	s.appendLog(ctx, t.ID, caller, domain.LogActionCreated, map[string]any{"name": t.Name})
	s.logger.Infow("trip created", "tripId", t.ID, "userId", caller, "cities", len(cities))
	return s.reload(ctx, t.ID)
}

func (s *Service) UpdateTrip(ctx context.Context, caller domain.UserID, tripID domain.TripID, in UpdateTripInput) (TripView, error) {
	t, err := s.requireOwner(ctx, tripID, caller, msgOnlyEdit)
	if err != nil {
		return TripView{}, err
	}

	u := triprepo.Update{ID: tripID, UpdatedAt: s.clk.Now()}
	name := t.Name
	if in.Name != nil {
		name = domain.NormalizeHumanName(*in.Name)
		if name == "" {
			return TripView{}, errValidation("Trip name cannot be empty", map[string]any{"name": "must be non-empty"})
		}
		u.Name = &name
	}
	citiesCount := len(t.Cities)
	if in.Cities != nil {
		if len(*in.Cities) == 0 {
			return TripView{}, errValidation("At least one city is required", nil)
		}
		cities, err := s.buildCities(tripID, *in.Cities)
		if err != nil {
			return TripView{}, err
		}
		u.Cities = &cities
		citiesCount = len(cities)
	}

	if err := s.trips.Update(ctx, u); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return TripView{}, errNotFound(msgTripNotFound)
		}
		return TripView{}, err
	}
	s.appendLog(ctx, tripID, caller, domain.LogActionUpdated, map[string]any{"name": name, "citiesCount": citiesCount})
	return s.reload(ctx, tripID)
}

func (s *Service) DeleteTrip(ctx context.Context, caller domain.UserID, tripID domain.TripID) error {
	if _, err := s.requireOwner(ctx, tripID, caller, msgOnlyDelete); err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, tripID); err != nil && !errors.Is(err, triprepo.ErrNotFound) {
		return err
	}
	s.logger.Infow("trip deleted", "tripId", tripID, "userId", caller)
	return nil
}

// withFreshShareCode runs store with newly generated codes until one is not taken.
func (s *Service) withFreshShareCode(ctx context.Context, store func(code string) error) error {
	for attempt := 1; attempt <= maxShareCodeAttempts; attempt++ {
		code, err := s.newShareCode()
		if err != nil {
			return err
		}
		err = store(code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, triprepo.ErrShareCodeTaken) {
			return err
		}
		s.logger.Debugw("share code collision, retrying", "attempt", attempt)
	}
	s.logger.Errorw("could not issue a unique share code", "attempts", maxShareCodeAttempts)
	return errTransaction("Could not generate a share code")
}

func (s *Service) buildCities(tripID domain.TripID, in []CityInput) ([]domain.City, error) {
	out := make([]domain.City, 0, len(in))
	for i, c := range in {
		name := domain.NormalizeHumanName(c.Name)
		if name == "" {
			return nil, errValidation("City name is required", map[string]any{"index": i})
		}
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			return nil, errValidation("Invalid city coordinates", map[string]any{"index": i})
		}
		if c.ArriveDate.IsZero() {
			return nil, errValidation("City arrival date is required", map[string]any{"index": i})
		}
		if c.DepartDate != nil && c.DepartDate.Before(c.ArriveDate) {
			return nil, errValidation("Departure cannot be before arrival", map[string]any{"index": i})
		}
		city := domain.City{
			ID:         domain.CityID(s.newID()),
			TripID:     tripID,
			Name:       name,
			Country:    domain.NormalizeHumanName(c.Country),
			Lat:        c.Lat,
			Lng:        c.Lng,
			ArriveDate: c.ArriveDate,
			DepartDate: c.DepartDate,
			Order:      i,
		}
		if c.Notes != nil {
			notes := *c.Notes
			city.Notes = &notes
		}
		out = append(out, city)
	}
	return out, nil
}

func (s *Service) reload(ctx context.Context, tripID domain.TripID) (TripView, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return TripView{}, errNotFound(msgTripNotFound)
		}
		return TripView{}, err
	}
	return s.view(ctx, t)
}

func (s *Service) view(ctx context.Context, t domain.Trip) (TripView, error) {
	vs, err := s.views(ctx, []domain.Trip{t})
	if err != nil {
		return TripView{}, err
	}
	return vs[0], nil
}

// views attaches member profiles with a single user lookup across all trips.
func (s *Service) views(ctx context.Context, ts []domain.Trip) ([]TripView, error) {
	ids := make([]domain.UserID, 0)
	for _, t := range ts {
		for _, m := range t.Members {
			ids = append(ids, m.UserID)
		}
	}
	profiles, err := s.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]TripView, 0, len(ts))
	for _, t := range ts {
		v := TripView{
			Trip:            t,
			Members:         make([]MemberView, 0, len(t.Members)),
			TotalDistanceKm: domain.RouteDistanceKm(t.Cities),
		}
		for _, m := range t.Members {
			v.Members = append(v.Members, MemberView{Membership: m, User: profiles.of(m.UserID)})
		}
		out = append(out, v)
	}
	return out, nil
}

type profileSet map[domain.UserID]domain.UserSummary

func (p profileSet) of(id domain.UserID) domain.UserSummary {
	if u, ok := p[id]; ok {
		return u
	}
	return domain.UserSummary{ID: id}
}

func (s *Service) profiles(ctx context.Context, ids []domain.UserID) (profileSet, error) {
	out := make(profileSet, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	us, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load member profiles: %w", err)
	}
	for _, u := range us {
		out[u.ID] = u.Summary()
	}
	return out, nil
}
