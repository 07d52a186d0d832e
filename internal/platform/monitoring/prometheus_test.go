package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMonitor_ResponseTimeUsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := NewMonitor("triplink-test")
	r := chi.NewRouter()
	r.Use(m.ResponseTime)
	r.Get("/trips/{tripId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/trips/abc", nil))

	if n := testutil.CollectAndCount(m.responseTime); n != 1 {
		t.Fatalf("series=%d want 1", n)
	}

	rr = httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `route="/trips/{tripId}"`) || !strings.Contains(body, `status="418"`) {
		t.Fatalf("metrics body missing labels:\n%s", body)
	}
}

func TestMonitor_MembershipEvents(t *testing.T) {
	t.Parallel()

	m := NewMonitor("triplink-test")
	m.MembershipEvent("joined")
	m.MembershipEvent("joined")
	m.MembershipEvent("left")

	if got := testutil.ToFloat64(m.membershipEvents.WithLabelValues("triplink-test", "joined")); got != 2 {
		t.Fatalf("joined=%v want 2", got)
	}
	m.Fallback("geocoder")
	if got := testutil.ToFloat64(m.fallbacks.WithLabelValues("triplink-test", "geocoder")); got != 1 {
		t.Fatalf("fallbacks=%v want 1", got)
	}
}
