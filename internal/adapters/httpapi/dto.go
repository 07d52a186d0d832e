package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/triplink-api/internal/app/trips"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/geocoder"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/suggester"
)

// Requests.

type registerRequest struct {
	Name  string `json:"name" validate:"max=100"`
	Email string `json:"email" validate:"max=320"`
}

type recoverRequest struct {
	Email string `json:"email" validate:"max=320"`
}

type cityRequest struct {
	Name       string              `json:"name" validate:"max=200"`
	Country    string              `json:"country" validate:"max=200"`
	Lat        float64             `json:"lat" validate:"gte=-90,lte=90"`
	Lng        float64             `json:"lng" validate:"gte=-180,lte=180"`
	ArriveDate openapi_types.Date  `json:"arriveDate"`
	DepartDate *openapi_types.Date `json:"departDate,omitempty"`
	Notes      *string             `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type createTripRequest struct {
	Name   string        `json:"name" validate:"max=200"`
	Cities []cityRequest `json:"cities" validate:"dive"`
}

type updateTripRequest struct {
	Name   *string        `json:"name,omitempty" validate:"omitempty,max=200"`
	Cities *[]cityRequest `json:"cities,omitempty" validate:"omitempty,dive"`
}

type shareLinkRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type createActivityRequest struct {
	Name        string              `json:"name" validate:"max=200"`
	Date        *openapi_types.Date `json:"date,omitempty"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// updateActivityRequest distinguishes absent, null and set for every field.
type updateActivityRequest struct {
	Name        nullable.Nullable[string]             `json:"name"`
	Date        nullable.Nullable[openapi_types.Date] `json:"date"`
	Description nullable.Nullable[string]             `json:"description"`
	Order       nullable.Nullable[int]                `json:"order"`
}

func (c cityRequest) toInput() trips.CityInput {
	in := trips.CityInput{
		Name:       c.Name,
		Country:    c.Country,
		Lat:        c.Lat,
		Lng:        c.Lng,
		ArriveDate: c.ArriveDate.Time,
		Notes:      c.Notes,
	}
	if c.DepartDate != nil {
		d := c.DepartDate.Time
		in.DepartDate = &d
	}
	return in
}

func cityInputs(cs []cityRequest) []trips.CityInput {
	out := make([]trips.CityInput, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.toInput())
	}
	return out
}

func optionalFrom[T any](n nullable.Nullable[T]) trips.Optional[T] {
	if !n.IsSpecified() {
		return trips.Unspecified[T]()
	}
	if n.IsNull() {
		return trips.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return trips.Null[T]()
	}
	return trips.Some(v)
}

func (req updateActivityRequest) toInput() trips.UpdateActivityInput {
	in := trips.UpdateActivityInput{
		Name:        optionalFrom(req.Name),
		Description: optionalFrom(req.Description),
		Order:       optionalFrom(req.Order),
	}
	switch d := optionalFrom(req.Date); {
	case !d.IsSpecified():
		in.Date = trips.Unspecified[time.Time]()
	case d.IsNull():
		in.Date = trips.Null[time.Time]()
	default:
		in.Date = trips.Some(d.Value().Time)
	}
	return in
}

// Responses.

type userSummaryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type memberJSON struct {
	ID       string          `json:"id"`
	Role     string          `json:"role"`
	JoinedAt time.Time       `json:"joinedAt"`
	User     userSummaryJSON `json:"user"`
}

type activityJSON struct {
	ID          string              `json:"id"`
	CityID      string              `json:"cityId"`
	Name        string              `json:"name"`
	Date        *openapi_types.Date `json:"date"`
	Description *string             `json:"description"`
	Order       int                 `json:"order"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type cityJSON struct {
	ID         string              `json:"id"`
	TripID     string              `json:"tripId"`
	Name       string              `json:"name"`
	Country    string              `json:"country"`
	Lat        float64             `json:"lat"`
	Lng        float64             `json:"lng"`
	ArriveDate openapi_types.Date  `json:"arriveDate"`
	DepartDate *openapi_types.Date `json:"departDate"`
	Order      int                 `json:"order"`
	Notes      *string             `json:"notes"`
	Activities []activityJSON      `json:"activities"`
}

type tripJSON struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	ShareCode       string       `json:"shareCode"`
	ShareCodeActive bool         `json:"shareCodeActive"`
	Color           string       `json:"color"`
	CreatorID       string       `json:"creatorId"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
	TotalDistanceKm int          `json:"totalDistanceKm"`
	Cities          []cityJSON   `json:"cities"`
	Members         []memberJSON `json:"members"`
}

type logJSON struct {
	ID        string          `json:"id"`
	TripID    string          `json:"tripId"`
	Action    string          `json:"action"`
	Details   map[string]any  `json:"details"`
	CreatedAt time.Time       `json:"createdAt"`
	User      userSummaryJSON `json:"user"`
}

type placeJSON struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"displayName"`
}

type suggestionJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type successJSON struct {
	Success bool `json:"success"`
}

func dateJSON(t *time.Time) *openapi_types.Date {
	if t == nil {
		return nil
	}
	return &openapi_types.Date{Time: *t}
}

func userFromDomain(u domain.User) userJSON {
	return userJSON{ID: string(u.ID), Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func summaryFromDomain(u domain.UserSummary) userSummaryJSON {
	return userSummaryJSON{ID: string(u.ID), Name: u.Name}
}

func activityFromDomain(a domain.Activity) activityJSON {
	return activityJSON{
		ID:          string(a.ID),
		CityID:      string(a.CityID),
		Name:        a.Name,
		Date:        dateJSON(a.Date),
		Description: a.Description,
		Order:       a.Order,
		CreatedAt:   a.CreatedAt,
	}
}

func activitiesFromDomain(as []domain.Activity) []activityJSON {
	out := make([]activityJSON, 0, len(as))
	for _, a := range as {
		out = append(out, activityFromDomain(a))
	}
	return out
}

func tripFromView(v trips.TripView) tripJSON {
	t := v.Trip
	out := tripJSON{
		ID:              string(t.ID),
		Name:            t.Name,
		ShareCode:       t.ShareCode,
		ShareCodeActive: t.ShareCodeActive,
		Color:           t.Color,
		CreatorID:       string(t.CreatorID),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		TotalDistanceKm: v.TotalDistanceKm,
		Cities:          make([]cityJSON, 0, len(t.Cities)),
		Members:         make([]memberJSON, 0, len(v.Members)),
	}
	for _, c := range t.Cities {
		out.Cities = append(out.Cities, cityJSON{
			ID:         string(c.ID),
			TripID:     string(c.TripID),
			Name:       c.Name,
			Country:    c.Country,
			Lat:        c.Lat,
			Lng:        c.Lng,
			ArriveDate: openapi_types.Date{Time: c.ArriveDate},
			DepartDate: dateJSON(c.DepartDate),
			Order:      c.Order,
			Notes:      c.Notes,
			Activities: activitiesFromDomain(c.Activities),
		})
	}
	for _, m := range v.Members {
		out.Members = append(out.Members, memberJSON{
			ID:       string(m.ID),
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt,
			User:     summaryFromDomain(m.User),
		})
	}
	return out
}

func logsFromEntries(ls []trips.LogEntry) []logJSON {
	out := make([]logJSON, 0, len(ls))
	for _, l := range ls {
		out = append(out, logJSON{
			ID:        string(l.ID),
			TripID:    string(l.TripID),
			Action:    string(l.Action),
			Details:   l.Details,
			CreatedAt: l.CreatedAt,
			User:      summaryFromDomain(l.User),
		})
	}
	return out
}

func placesFromPorts(ps []geocoder.Place) []placeJSON {
	out := make([]placeJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, placeJSON(p))
	}
	return out
}

func suggestionsFromPorts(ss []suggester.Suggestion) []suggestionJSON {
	out := make([]suggestionJSON, 0, len(ss))
	for _, s := range ss {
		out = append(out, suggestionJSON(s))
	}
	return out
}
