package pricing

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"ravito/internal/config"
	"ravito/internal/modules/location"
	"ravito/internal/types"
)

var defaultTariff = Tariff{BaseFee: 500, PerKm: 150, MarginRate: 0.10}

func TestTariff_Quote(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		wantBase   int64
		wantMargin int64
	}{
		// 500 + 0 = 500, already a multiple of 100.
		{name: "zero distance", distanceKm: 0, wantBase: 500, wantMargin: 50},
		// 500 + 1.4*150 = 710 -> 800.
		{name: "1.4km", distanceKm: 1.4, wantBase: 800, wantMargin: 80},
		// 500 + 2*150 = 800 exactly.
		{name: "exact multiple", distanceKm: 2, wantBase: 800, wantMargin: 80},
		// 500 + 2.01*150 = 801.5 -> 900.
		{name: "just over a step", distanceKm: 2.01, wantBase: 900, wantMargin: 90},
		// 500 + 17.9*150 = 3185 -> 3200.
		{name: "17.9km", distanceKm: 17.9, wantBase: 3200, wantMargin: 320},
		{name: "negative clamps to zero", distanceKm: -3, wantBase: 500, wantMargin: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := defaultTariff.Quote(tt.distanceKm)
			assert.Equal(t, tt.wantBase, q.Base)
			assert.Equal(t, tt.wantMargin, q.Margin)
			assert.Equal(t, tt.wantBase+tt.wantMargin, q.Total)
			assert.Equal(t, types.CurrencyXOF, q.Currency)
		})
	}
}

func TestTariff_MarginRounding(t *testing.T) {
	// 900 * 0.0725 = 65.25 -> 65
	q := Tariff{BaseFee: 500, PerKm: 150, MarginRate: 0.0725}.Quote(2.01)
	assert.Equal(t, int64(900), q.Base)
	assert.Equal(t, int64(65), q.Margin)
	assert.Equal(t, int64(965), q.Total)
}

func TestTariff_BaseIsMultipleOf100(t *testing.T) {
	for d := 0.0; d <= 60; d += 0.137 {
		q := defaultTariff.Quote(d)
		if q.Base%100 != 0 {
			t.Fatalf("base %d for %.3fkm is not a multiple of 100", q.Base, d)
		}
		raw := float64(defaultTariff.BaseFee) + d*defaultTariff.PerKm
		if float64(q.Base) < raw-1e-6 || float64(q.Base)-raw >= 100 {
			t.Fatalf("base %d is not the ceiling of %.3f", q.Base, raw)
		}
	}
}

func TestTariff_Monotonic(t *testing.T) {
	origin := types.Point{Lat: 5.36, Lng: -4.02}
	prev := int64(-1)
	for i := 0; i <= 200; i++ {
		dest := types.Point{Lat: origin.Lat + float64(i)*0.005, Lng: origin.Lng}
		q := defaultTariff.Quote(location.DistanceKm(origin, dest))
		if q.Total < prev {
			t.Fatalf("cost decreased at step %d: %d < %d", i, q.Total, prev)
		}
		prev = q.Total
	}
}

func TestTariff_MarginConsistency(t *testing.T) {
	for _, rate := range []float64{0, 0.05, 0.1, 0.125, 0.333} {
		tariff := Tariff{BaseFee: 500, PerKm: 150, MarginRate: rate}
		for d := 0.0; d < 25; d += 0.71 {
			q := tariff.Quote(d)
			require.Equal(t, q.Base+q.Margin, q.Total)
			require.Equal(t, int64(math.Round(float64(q.Base)*rate)), q.Margin)
		}
	}
}

func TestService_Quote_StraightLine(t *testing.T) {
	svc := NewService(config.PricingConfig{BaseFee: 500, PerKm: 150, MarginRate: 0.10}, nil)
	client := types.Point{Lat: 5.36, Lng: -4.02}
	depotA := types.Point{Lat: 5.37, Lng: -4.03}

	q, err := svc.Quote(context.Background(), depotA, client)
	require.NoError(t, err)
	// ~1.57km: 500 + 235 = 735 -> 800, margin 80.
	assert.InDelta(t, 1.57, q.DistanceKm, 0.05)
	assert.Equal(t, int64(800), q.Base)
	assert.Equal(t, int64(80), q.Margin)
	assert.Equal(t, int64(880), q.Total)
	assert.Equal(t, types.XOF(880), q.TotalMoney())
	assert.Equal(t, types.XOF(80), q.MarginMoney())
}

func TestService_Quote_Deterministic(t *testing.T) {
	svc := NewService(config.PricingConfig{BaseFee: 500, PerKm: 150, MarginRate: 0.10}, nil)
	a := types.Point{Lat: 5.50, Lng: -4.10}
	b := types.Point{Lat: 5.36, Lng: -4.02}
	q1, _ := svc.Quote(context.Background(), a, b)
	q2, _ := svc.Quote(context.Background(), a, b)
	assert.Equal(t, q1, q2)
}

type failingDistancer struct{}

func (failingDistancer) DistanceKm(context.Context, types.Point, types.Point) (float64, error) {
	return 0, errors.New("boom")
}

func TestService_Quote_DistancerError(t *testing.T) {
	svc := NewService(config.PricingConfig{BaseFee: 500, PerKm: 150}, failingDistancer{})
	_, err := svc.Quote(context.Background(), types.Point{}, types.Point{Lat: 1})
	assert.Error(t, err)
}

func newMapsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouteDistancer_UsesRoadDistance(t *testing.T) {
	srv := newMapsServer(t, `{
		"status": "OK",
		"origin_addresses": ["depot"],
		"destination_addresses": ["client"],
		"rows": [{"elements": [{"status": "OK", "distance": {"text": "3.2 km", "value": 3200}, "duration": {"text": "9 mins", "value": 540}}]}]
	}`)
	d, err := NewRouteDistancer("test-key", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	km, err := d.DistanceKm(context.Background(), types.Point{Lat: 5.37, Lng: -4.03}, types.Point{Lat: 5.36, Lng: -4.02})
	require.NoError(t, err)
	assert.InDelta(t, 3.2, km, 1e-9)
}

func TestRouteDistancer_FallsBackToStraightLine(t *testing.T) {
	srv := newMapsServer(t, `{
		"status": "OK",
		"origin_addresses": ["depot"],
		"destination_addresses": ["client"],
		"rows": [{"elements": [{"status": "ZERO_RESULTS"}]}]
	}`)
	d, err := NewRouteDistancer("test-key", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	from := types.Point{Lat: 5.37, Lng: -4.03}
	to := types.Point{Lat: 5.36, Lng: -4.02}
	km, err := d.DistanceKm(context.Background(), from, to)
	require.NoError(t, err)
	assert.InDelta(t, location.DistanceKm(from, to), km, 1e-9)
}

func TestRouteDistancer_FallsBackOnDeniedRequest(t *testing.T) {
	srv := newMapsServer(t, `{"status": "REQUEST_DENIED", "error_message": "bad key", "rows": []}`)
	d, err := NewRouteDistancer("test-key", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	from := types.Point{Lat: 5.50, Lng: -4.10}
	to := types.Point{Lat: 5.36, Lng: -4.02}
	km, err := d.DistanceKm(context.Background(), from, to)
	require.NoError(t, err)
	assert.InDelta(t, location.DistanceKm(from, to), km, 1e-9)
}
