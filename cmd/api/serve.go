package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/triplink-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/userrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/adapters/nominatim"
	"github.com/Overland-East-Bay/triplink-api/internal/adapters/openai"
	postgres "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/idempotency"
	pgtriprepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/userrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/app/places"
	"github.com/Overland-East-Bay/triplink-api/internal/app/trips"
	"github.com/Overland-East-Bay/triplink-api/internal/app/users"
	platformclock "github.com/Overland-East-Bay/triplink-api/internal/platform/clock"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/config"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/monitoring"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/tracing"
	activityrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
	idempotencyport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/idempotency"
	triplogrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/triplogrepo"
	triprepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
	userrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/userrepo"
)

const serviceName = "triplink-api"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Start the HTTP API. Configuration comes from the environment, see internal/platform/config.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type tripStores interface {
	triprepoport.Repository
	activityrepoport.Repository
	triplogrepoport.Repository
}

type storage struct {
	users userrepoport.Repository
	trips tripStores
	idem  idempotencyport.Store
	close func()
}

func openStorage(ctx context.Context, specs *config.EnvSpec, logger *logging.Logger) (*storage, error) {
	if specs.StorageBackend != config.StorageBackendPostgres {
		logger.Warn("using in-memory storage, data is lost on restart")
		return &storage{
			users: memuserrepo.NewRepo(),
			trips: memtriprepo.NewRepo(),
			idem:  memidempotency.NewStore(),
			close: func() {},
		}, nil
	}
	db, err := postgres.Open(ctx, postgres.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &storage{
		users: pguserrepo.NewRepo(db),
		trips: pgtriprepo.NewRepo(db),
		idem:  pgidempotency.NewStore(db),
		close: db.Close,
	}, nil
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	specs, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(specs.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:      serviceName,
		OtelHTTPEndpoint: specs.OtelHTTPEndpoint,
		Enabled:          specs.TracingEnabled,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warnw("tracing shutdown failed", "error", err)
		}
	}()

	monitor := monitoring.NewMonitor(serviceName)

	store, err := openStorage(ctx, specs, logger)
	if err != nil {
		return err
	}
	defer store.close()

	clk := platformclock.NewSystemClock()
	outbound := tracing.NewHTTPClient(specs.OutboundTimeout)

	usersSvc := users.NewService(store.users, clk, logger.Named("users"))
	tripsSvc := trips.NewService(store.trips, store.trips, store.trips, store.users, clk, logger.Named("trips"))
	tripsSvc.SetMetrics(monitor)
	if specs.OpenAIAPIKey != "" {
		tripsSvc.SetSuggester(openai.NewClient(specs.OpenAIURL, specs.OpenAIAPIKey, specs.OpenAIModel, outbound))
	} else {
		logger.Info("no OPENAI_API_KEY set, serving fallback activity suggestions")
	}
	placesSvc := places.NewService(
		nominatim.NewClient(specs.GeocoderURL, specs.GeocoderUserAgent, outbound),
		logger.Named("places"),
		monitor,
	)

	api := httpapi.NewServer(usersSvc, tripsSvc, placesSvc, store.idem, httpapi.ServerConfig{
		CookieName:   specs.CookieName,
		CookieSecure: specs.CookieSecure,
		CookieMaxAge: specs.CookieMaxAge,
		Logger:       logger,
	})
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware:     httpapi.NewAuthMiddleware(usersSvc, specs.CookieName, logger.Named("auth")),
		Monitor:            monitor,
		Logger:             logger,
		CORSAllowedOrigins: specs.CORSAllowedOrigins,
		TracingEnabled:     specs.TracingEnabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", specs.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("api listening", "addr", srv.Addr, "storage", specs.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("server error: %w", err)
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
