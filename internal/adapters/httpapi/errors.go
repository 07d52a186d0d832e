package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/Overland-East-Bay/triplink-api/internal/app/trips"
	"github.com/Overland-East-Bay/triplink-api/internal/app/users"
)

type errorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	RequestID string         `json:"requestId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
		Details:   details,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError renders app-layer errors as-is; anything else is logged and hidden behind a 500.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if te := (*trips.Error)(nil); errors.As(err, &te) {
		if te.Status >= http.StatusInternalServerError {
			s.logger.Errorw("request failed", "path", r.URL.Path, "requestId", middleware.GetReqID(r.Context()), "error", err)
		}
		writeError(w, r, te.Status, te.Code, te.Message, te.Details)
		return
	}
	if ue := (*users.Error)(nil); errors.As(err, &ue) {
		writeError(w, r, ue.Status, ue.Code, ue.Message, ue.Details)
		return
	}
	s.logger.Errorw("unexpected error", "method", r.Method, "path", r.URL.Path, "requestId", middleware.GetReqID(r.Context()), "error", err)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error", nil)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			// Drop the request struct name: "createTripRequest.cities[0].lat" -> "cities[0].lat".
			field := fe.Namespace()
			if _, rest, ok := strings.Cut(field, "."); ok {
				field = rest
			}
			details[field] = fe.Tag()
		}
	}
	writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
}

func unauthenticated() error {
	return &trips.Error{Status: http.StatusUnauthorized, Code: "UNAUTHENTICATED", Message: "Not authenticated"}
}
