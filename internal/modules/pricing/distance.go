// README: Distance sources for delivery quotes (straight line or Google Maps road distance).
package pricing

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"googlemaps.github.io/maps"

	"ravito/internal/modules/location"
	"ravito/internal/types"
)

// Distancer measures the delivery distance between a depot and a client.
type Distancer interface {
	DistanceKm(ctx context.Context, from, to types.Point) (float64, error)
}

// StraightLine is the Haversine distance. It never fails.
type StraightLine struct{}

func (StraightLine) DistanceKm(_ context.Context, from, to types.Point) (float64, error) {
	return location.DistanceKm(from, to), nil
}

// RouteDistancer asks Google Maps for the driving distance and falls back to the straight
// line when the API has no answer, so a Maps outage never blocks checkout.
type RouteDistancer struct {
	client   *maps.Client
	fallback Distancer
}

func NewRouteDistancer(apiKey string, opts ...maps.ClientOption) (*RouteDistancer, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteDistancer{client: client, fallback: StraightLine{}}, nil
}

func (d *RouteDistancer) DistanceKm(ctx context.Context, from, to types.Point) (float64, error) {
	km, err := d.roadDistanceKm(ctx, from, to)
	if err != nil {
		log.Printf("pricing: road distance unavailable, using straight line: %v", err)
		return d.fallback.DistanceKm(ctx, from, to)
	}
	return km, nil
}

func (d *RouteDistancer) roadDistanceKm(ctx context.Context, from, to types.Point) (float64, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(from)},
		Destinations: []string{latLng(to)},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	}
	resp, err := d.client.DistanceMatrix(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("no route found")
	}
	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, fmt.Errorf("route status %s", el.Status)
	}
	return float64(el.Distance.Meters) / 1000.0, nil
}

func latLng(p types.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}
