package httpapi

import (
	"net/http"

	"github.com/Overland-East-Bay/triplink-api/internal/app/users"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	u, err := s.users.Register(r.Context(), users.RegisterInput{Name: req.Name, Email: req.Email})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.signIn(w, u)
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

func (s *Server) Recover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	u, err := s.users.Recover(r.Context(), req.Email)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.signIn(w, u)
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), callerID(r.Context()))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userFromDomain(u))
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w)
}

func (s *Server) signIn(w http.ResponseWriter, u domain.User) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    u.Token,
		Path:     "/",
		MaxAge:   int(s.cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
