package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/triplink-api/internal/app/trips"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

type suggestionsJSON struct {
	Suggestions []suggestionJSON `json:"suggestions"`
}

func cityIDParam(r *http.Request) domain.CityID {
	return domain.CityID(chi.URLParam(r, "cityId"))
}

func (s *Server) SearchCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, placesFromPorts(s.places.Search(r.Context(), r.URL.Query().Get("q"))))
}

func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	as, err := s.trips.ListActivities(r.Context(), callerID(r.Context()), cityIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activitiesFromDomain(as))
}

func (s *Server) AddActivity(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	in := trips.CreateActivityInput{Name: req.Name, Description: req.Description}
	if req.Date != nil {
		d := req.Date.Time
		in.Date = &d
	}
	a, err := s.trips.AddActivity(r.Context(), callerID(r.Context()), cityIDParam(r), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, activityFromDomain(a))
}

func (s *Server) SuggestActivities(w http.ResponseWriter, r *http.Request) {
	ss, err := s.trips.SuggestActivities(r.Context(), callerID(r.Context()), cityIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionsJSON{Suggestions: suggestionsFromPorts(ss)})
}

func (s *Server) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req updateActivityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	a, err := s.trips.UpdateActivity(r.Context(), callerID(r.Context()), domain.ActivityID(chi.URLParam(r, "activityId")), req.toInput())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityFromDomain(a))
}

func (s *Server) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.DeleteActivity(r.Context(), callerID(r.Context()), domain.ActivityID(chi.URLParam(r, "activityId"))); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w)
}
