package suggester

import "context"

//go:generate mockgen -build_flags=--mod=mod -package suggester -destination ./mock_suggester.go -source=./suggester.go

// Suggestion is a proposed activity for a city.
type Suggestion struct {
	Name        string
	Description string
}

// Request carries the context an activity suggester works from.
type Request struct {
	City     string
	Country  string
	Existing []string
}

// Suggester proposes activities, typically backed by an AI provider.
type Suggester interface {
	SuggestActivities(ctx context.Context, req Request) ([]Suggestion, error)
}
