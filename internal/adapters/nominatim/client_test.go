package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_SearchCities(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path=%s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Porto" || q.Get("limit") != "5" || q.Get("featuretype") != "city" || q.Get("addressdetails") != "1" {
			t.Errorf("query=%v", q)
		}
		if r.Header.Get("User-Agent") != "TripLink-Test" {
			t.Errorf("user agent=%q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"Porto","lat":"41.1496","lon":"-8.6109","address":{"city":"Porto","country":"Portugal"}},
			{"name":"Porto Moniz","lat":"32.8667","lon":"-17.1667","address":{"village":"Porto Moniz Village","country":"Portugal"}},
			{"name":"Broken","lat":"n/a","lon":"0","address":{}}
		]`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/", "TripLink-Test", srv.Client())
	got, err := c.SearchCities(context.Background(), "Porto", 5)
	if err != nil {
		t.Fatalf("SearchCities err=%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2 (unparseable coordinates skipped)", len(got))
	}
	if got[0].Name != "Porto" || got[0].DisplayName != "Porto, Portugal" || got[0].Lat != 41.1496 {
		t.Fatalf("first=%+v", got[0])
	}
	if got[1].Name != "Porto Moniz Village" {
		t.Fatalf("second name=%q", got[1].Name)
	}
}

func TestClient_SearchCities_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewClient(srv.URL, "ua", srv.Client()).SearchCities(context.Background(), "Porto", 5); err == nil {
		t.Fatalf("expected error for 429")
	}
}
