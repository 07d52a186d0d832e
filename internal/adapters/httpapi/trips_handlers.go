package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/triplink-api/internal/app/trips"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

func tripIDParam(r *http.Request) domain.TripID {
	return domain.TripID(chi.URLParam(r, "tripId"))
}

func (s *Server) ListMyTrips(w http.ResponseWriter, r *http.Request) {
	vs, err := s.trips.ListMyTrips(r.Context(), callerID(r.Context()))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := make([]tripJSON, 0, len(vs))
	for _, v := range vs {
		out = append(out, tripFromView(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r.Context())
	if caller == "" {
		// Answer 401 before touching the body or the idempotency store.
		s.writeAppError(w, r, unauthenticated())
		return
	}
	var req createTripRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	call, handled := s.beginIdempotent(w, r, caller, "/trips", req)
	if handled {
		return
	}
	v, err := s.trips.CreateTrip(r.Context(), caller, trips.CreateTripInput{
		Name:   req.Name,
		Cities: cityInputs(req.Cities),
	})
	if err != nil {
		call.fail(w, r, err)
		return
	}
	call.respond(w, r, http.StatusCreated, tripFromView(v))
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	v, err := s.trips.GetTrip(r.Context(), callerID(r.Context()), tripIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromView(v))
}

func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var req updateTripRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	in := trips.UpdateTripInput{Name: req.Name}
	if req.Cities != nil {
		cs := cityInputs(*req.Cities)
		in.Cities = &cs
	}
	v, err := s.trips.UpdateTrip(r.Context(), callerID(r.Context()), tripIDParam(r), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromView(v))
}

func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.DeleteTrip(r.Context(), callerID(r.Context()), tripIDParam(r)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) ListLogs(w http.ResponseWriter, r *http.Request) {
	ls, err := s.trips.ListLogs(r.Context(), callerID(r.Context()), tripIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logsFromEntries(ls))
}

func (s *Server) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := s.trips.ExportCalendar(r.Context(), callerID(r.Context()), tripIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+cal.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal.Body))
}
