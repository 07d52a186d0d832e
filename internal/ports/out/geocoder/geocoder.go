package geocoder

import "context"

//go:generate mockgen -build_flags=--mod=mod -package geocoder -destination ./mock_geocoder.go -source=./geocoder.go

// Place is a geocoding hit reduced to what a trip itinerary needs.
type Place struct {
	Name        string
	Country     string
	Lat         float64
	Lng         float64
	DisplayName string
}

// Geocoder resolves free-text city queries against an external provider.
type Geocoder interface {
	SearchCities(ctx context.Context, query string, limit int) ([]Place, error)
}
