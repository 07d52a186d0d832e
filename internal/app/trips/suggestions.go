package trips

import (
	"context"

	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/suggester"
)

// SuggestActivities proposes things to do in a city. When no suggester is configured,
// or it fails, a fixed list derived from the city is returned instead.
func (s *Service) SuggestActivities(ctx context.Context, caller domain.UserID, cityID domain.CityID) ([]suggester.Suggestion, error) {
	c, err := s.cityForMember(ctx, caller, cityID)
	if err != nil {
		return nil, err
	}
	if s.suggester == nil {
		return fallbackSuggestions(c), nil
	}

	existing, err := s.activities.ListActivities(ctx, cityID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(existing))
	for _, a := range existing {
		names = append(names, a.Name)
	}

	ctx, span := s.tracer.Start(ctx, "trips.Service.SuggestActivities")
	defer span.End()

	out, err := s.suggester.SuggestActivities(ctx, suggester.Request{City: c.Name, Country: c.Country, Existing: names})
	if err != nil || len(out) == 0 {
		s.metrics.Fallback("suggester")
		s.logger.Warnw("activity suggester unavailable, using fallback", "cityId", cityID, "error", err)
		return fallbackSuggestions(c), nil
	}
	return out, nil
}

func fallbackSuggestions(c domain.City) []suggester.Suggestion {
	return []suggester.Suggestion{
		{Name: "Explore " + c.Name + " Old Town", Description: "Walk through historic streets and discover local architecture"},
		{Name: "Visit Local Markets", Description: "Experience authentic local food and crafts"},
		{Name: "Try Local Cuisine", Description: "Sample traditional " + c.Country + " dishes at recommended restaurants"},
		{Name: "Cultural Museum Visit", Description: "Learn about local history and culture"},
		{Name: "Scenic Viewpoint", Description: "Find the best panoramic views of the city"},
	}
}
