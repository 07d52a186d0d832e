package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Overland-East-Bay/triplink-api/internal/app/places"
	"github.com/Overland-East-Bay/triplink-api/internal/app/trips"
	"github.com/Overland-East-Bay/triplink-api/internal/app/users"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

type ServerConfig struct {
	CookieName   string
	CookieSecure bool
	CookieMaxAge time.Duration
	Logger       *logging.Logger
}

// Server holds the HTTP handlers. Each handler resolves the caller from request
// context and hands it to the app services explicitly.
type Server struct {
	users  *users.Service
	trips  *trips.Service
	places *places.Service
	idem   idempotency.Store

	cookieName   string
	cookieSecure bool
	cookieMaxAge time.Duration

	logger   *logging.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(usersSvc *users.Service, tripsSvc *trips.Service, placesSvc *places.Service, idem idempotency.Store, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation details.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{
		users:        usersSvc,
		trips:        tripsSvc,
		places:       placesSvc,
		idem:         idem,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		cookieMaxAge: cfg.CookieMaxAge,
		logger:       logger.Named("http"),
		validate:     v,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// decodeBody reads a JSON body into dst and validates it. It writes the 400 itself
// and reports false when the request should stop.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	raw, ok := s.readBody(w, r)
	if !ok {
		return false
	}
	return s.decodeRaw(w, r, raw, dst)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return nil, false
	}
	return raw, true
}

func (s *Server) decodeRaw(w http.ResponseWriter, r *http.Request, raw []byte, dst any) bool {
	if len(strings.TrimSpace(string(raw))) == 0 {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Missing request body", nil)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			s.writeAppError(w, r, err)
			return false
		}
		writeValidationError(w, r, err)
		return false
	}
	return true
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, successJSON{Success: true})
}
