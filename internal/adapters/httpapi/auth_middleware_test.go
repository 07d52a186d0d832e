package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Overland-East-Bay/triplink-api/internal/app/users"
	"github.com/Overland-East-Bay/triplink-api/internal/domain"
)

type stubAuthenticator struct {
	user domain.User
	err  error
}

func (s stubAuthenticator) Authenticate(context.Context, string) (domain.User, error) {
	return s.user, s.err
}

func serveWithAuth(t *testing.T, auth TokenAuthenticator) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	h := NewAuthMiddleware(auth, testCookie, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		if u, ok := UserFromContext(r.Context()); ok {
			w.Header().Set("X-User", string(u.ID))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "tok"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, reached
}

func TestAuthMiddleware_KnownTokenSetsUser(t *testing.T) {
	t.Parallel()
	rec, reached := serveWithAuth(t, stubAuthenticator{user: domain.User{ID: "user-alice"}})
	if !reached || rec.Header().Get("X-User") != "user-alice" {
		t.Fatalf("reached=%v user=%q", reached, rec.Header().Get("X-User"))
	}
}

func TestAuthMiddleware_UnknownTokenStaysAnonymous(t *testing.T) {
	t.Parallel()
	err := &users.Error{Status: 401, Code: "UNAUTHENTICATED", Message: "Not authenticated"}
	rec, reached := serveWithAuth(t, stubAuthenticator{err: err})
	if !reached || rec.Code != http.StatusNoContent || rec.Header().Get("X-User") != "" {
		t.Fatalf("reached=%v status=%d user=%q", reached, rec.Code, rec.Header().Get("X-User"))
	}
}

func TestAuthMiddleware_StoreFailureIsInternal(t *testing.T) {
	t.Parallel()
	rec, reached := serveWithAuth(t, stubAuthenticator{err: errors.New("connection refused")})
	if reached {
		t.Fatalf("handler ran after a failed session lookup")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Code != "INTERNAL" {
		t.Fatalf("body=%s err=%v", rec.Body.String(), err)
	}
}
