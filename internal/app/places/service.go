package places

import (
	"context"
	"strings"

	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/geocoder"
)

const (
	minQueryLen  = 2
	resultsLimit = 5
)

// Metrics receives a notification whenever a degraded response is served.
type Metrics interface {
	Fallback(dependency string)
}

// Service looks up cities for itinerary building.
type Service struct {
	geo     geocoder.Geocoder
	logger  *logging.Logger
	metrics Metrics
}

func NewService(geo geocoder.Geocoder, logger *logging.Logger, metrics Metrics) *Service {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Service{geo: geo, logger: logger, metrics: metrics}
}

// Search never fails: short queries and provider errors both yield an empty result.
func (s *Service) Search(ctx context.Context, query string) []geocoder.Place {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < minQueryLen || s.geo == nil {
		return []geocoder.Place{}
	}
	out, err := s.geo.SearchCities(ctx, q, resultsLimit)
	if err != nil {
		s.logger.Warnw("city search failed", "query", q, "error", err)
		if s.metrics != nil {
			s.metrics.Fallback("geocoder")
		}
		return []geocoder.Place{}
	}
	if out == nil {
		out = []geocoder.Place{}
	}
	return out
}
