package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type shareCodeJSON struct {
	ShareCode string `json:"shareCode"`
}

type shareLinkJSON struct {
	ShareCode       string `json:"shareCode"`
	ShareCodeActive bool   `json:"shareCodeActive"`
}

func (s *Server) PreviewTrip(w http.ResponseWriter, r *http.Request) {
	v, err := s.trips.PreviewByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromView(v))
}

func (s *Server) JoinTrip(w http.ResponseWriter, r *http.Request) {
	v, err := s.trips.Join(r.Context(), callerID(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripFromView(v))
}

func (s *Server) LeaveTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.Leave(r.Context(), callerID(r.Context()), tripIDParam(r)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) RevokeLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.trips.RevokeLink(r.Context(), callerID(r.Context()), tripIDParam(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareCodeJSON{ShareCode: link.Code})
}

func (s *Server) SetShareLink(w http.ResponseWriter, r *http.Request) {
	var req shareLinkRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	link, err := s.trips.SetLinkActive(r.Context(), callerID(r.Context()), tripIDParam(r), *req.Active)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareLinkJSON{ShareCode: link.Code, ShareCodeActive: link.Active})
}
