package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/triplink-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/Overland-East-Bay/triplink-api/internal/adapters/postgres/userrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/app/places"
	"github.com/Overland-East-Bay/triplink-api/internal/app/trips"
	"github.com/Overland-East-Bay/triplink-api/internal/app/users"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/logging"
	"github.com/Overland-East-Bay/triplink-api/internal/platform/monitoring"
	activityrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/activityrepo"
	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/geocoder"
	idempotencyport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/idempotency"
	triplogrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/triplogrepo"
	triprepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/triprepo"
	userrepoport "github.com/Overland-East-Bay/triplink-api/internal/ports/out/userrepo"
)

const cookieName = "triplink_token"

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

// tripStores is the trip aggregate plus its activities and audit log, which both
// backends serve from one repo.
type tripStores interface {
	triprepoport.Repository
	activityrepoport.Repository
	triplogrepoport.Repository
}

// noGeocoder answers every search with no results; city search is covered by unit tests.
type noGeocoder struct{}

func (noGeocoder) SearchCities(_ context.Context, _ string, _ int) ([]geocoder.Place, error) {
	return nil, nil
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		userRepo  userrepoport.Repository
		tripRepo  tripStores
		idemStore idempotencyport.Store
	)
	switch b {
	case backendPostgres:
		db := postgres_testutil.OpenMigratedDB(t)
		userRepo = pguserrepo.NewRepo(db)
		tripRepo = pgtriprepo.NewRepo(db)
		idemStore = pgidempotency.NewStore(db)
	case backendMemory:
		userRepo = memuserrepo.NewRepo()
		tripRepo = memtriprepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	logger := logging.NewNoopLogger()
	monitor := monitoring.NewMonitor("triplink-api-itest")
	usersSvc := users.NewService(userRepo, clk, logger)
	tripsSvc := trips.NewService(tripRepo, tripRepo, tripRepo, userRepo, clk, logger)
	tripsSvc.SetMetrics(monitor)
	placesSvc := places.NewService(noGeocoder{}, logger, monitor)

	api := httpapi.NewServer(usersSvc, tripsSvc, placesSvc, idemStore, httpapi.ServerConfig{
		CookieName:   cookieName,
		CookieMaxAge: 30 * 24 * time.Hour,
		Logger:       logger,
	})
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewAuthMiddleware(usersSvc, cookieName, logger),
		Monitor:        monitor,
		Logger:         logger,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{baseURL: srv.URL, client: srv.Client()}
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.baseURL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

// register creates a user with a unique email and returns the session token.
func (s *testServer) register(t *testing.T, name string) string {
	t.Helper()
	email := strings.ToLower(name) + "-" + uuid.NewString() + "@example.com"
	b, _ := json.Marshal(map[string]string{"name": name, "email": email})
	resp, err := s.client.Post(s.baseURL+"/auth/register", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("register status=%d body=%s", resp.StatusCode, string(body))
	}
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	t.Fatalf("register set no session cookie")
	return ""
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

type userSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type member struct {
	ID   string      `json:"id"`
	Role string      `json:"role"`
	User userSummary `json:"user"`
}

type trip struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ShareCode       string   `json:"shareCode"`
	ShareCodeActive bool     `json:"shareCodeActive"`
	CreatorID       string   `json:"creatorId"`
	Members         []member `json:"members"`
	Cities          []struct {
		ID string `json:"id"`
	} `json:"cities"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Code != wantCode {
		t.Fatalf("code=%q want=%q body=%s", got.Code, wantCode, string(body))
	}
	if got.RequestID == "" {
		t.Fatalf("requestId missing: %s", string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
