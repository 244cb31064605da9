package geocode

import (
	"context"

	"googlemaps.github.io/maps"
)

// GoogleProvider geocodes through the Google Maps Geocoding API.
type GoogleProvider struct {
	client *maps.Client
}

func NewGoogleProvider(apiKey string) (*GoogleProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleProvider{client: c}, nil
}

func (g *GoogleProvider) Name() string {
	return "google"
}

func (g *GoogleProvider) Geocode(ctx context.Context, subject string) (Result, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: subject,
	})
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{}, ErrNoResults
	}

	r := results[0]
	return Result{
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
	}, nil
}
