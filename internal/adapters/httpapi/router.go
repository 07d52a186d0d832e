package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/monitoring"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/tracing"
)

type RouterOptions struct {
	// AuthMiddleware resolves the session token; nil leaves every request anonymous.
	AuthMiddleware func(http.Handler) http.Handler
	Monitor        *monitoring.Monitor
	Logger         *logging.Logger

	CORSAllowedOrigins []string
	TracingEnabled     bool
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(RequestLogger(opts.Logger.Named("access")))
	}
	r.Use(middleware.Recoverer)
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyKeyHeader},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if opts.Monitor != nil {
		r.Use(opts.Monitor.ResponseTime)
	}

	// Infra endpoints stay outside auth.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Monitor != nil {
		r.Method(http.MethodGet, "/metrics", opts.Monitor.Handler())
	}

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/recover", s.Recover)
			r.Get("/me", s.Me)
			r.Post("/logout", s.Logout)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.ListMyTrips)
			r.Post("/", s.CreateTrip)
			r.Get("/join/{code}", s.PreviewTrip)
			r.Post("/join/{code}", s.JoinTrip)

			r.Route("/{tripId}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Patch("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)
				r.Post("/leave", s.LeaveTrip)
				r.Post("/revoke", s.RevokeLink)
				r.Put("/share-link", s.SetShareLink)
				r.Get("/logs", s.ListLogs)
				r.Get("/calendar.ics", s.ExportCalendar)
			})
		})

		r.Route("/cities", func(r chi.Router) {
			r.Get("/search", s.SearchCities)
			r.Get("/{cityId}/activities", s.ListActivities)
			r.Post("/{cityId}/activities", s.AddActivity)
			r.Post("/{cityId}/suggest", s.SuggestActivities)
		})

		r.Patch("/activities/{activityId}", s.UpdateActivity)
		r.Delete("/activities/{activityId}", s.DeleteActivity)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	if opts.TracingEnabled {
		return tracing.Middleware(r)
	}
	return r
}
