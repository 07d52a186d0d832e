package places

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/geocoder"
)

type countingMetrics struct{ fallbacks int }

func (m *countingMetrics) Fallback(string) { m.fallbacks++ }

func TestService_Search(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	geo := geocoder.NewMockGeocoder(ctrl)
	metrics := &countingMetrics{}
	svc := NewService(geo, nil, metrics)
	ctx := context.Background()

	if got := svc.Search(ctx, " p "); len(got) != 0 || got == nil {
		t.Fatalf("short query got=%v", got)
	}

	paris := geocoder.Place{Name: "Paris", Country: "France", Lat: 48.85, Lng: 2.35, DisplayName: "Paris, France"}
	geo.EXPECT().SearchCities(gomock.Any(), "Paris", 5).Return([]geocoder.Place{paris}, nil)
	got := svc.Search(ctx, "  Paris ")
	if len(got) != 1 || got[0] != paris {
		t.Fatalf("got=%+v", got)
	}

	geo.EXPECT().SearchCities(gomock.Any(), "Lyon", 5).Return(nil, errors.New("upstream 503"))
	got = svc.Search(ctx, "Lyon")
	if got == nil || len(got) != 0 {
		t.Fatalf("degraded got=%v", got)
	}
	if metrics.fallbacks != 1 {
		t.Fatalf("fallbacks=%d", metrics.fallbacks)
	}
}
