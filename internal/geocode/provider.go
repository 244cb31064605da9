package geocode

import (
	"context"
	"errors"
)

// Result contains the coordinates a provider resolved for a subject
// string.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
}

// Provider is a single geocoding backend. Name doubles as the source
// tag stamped on results produced by this provider.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, subject string) (Result, error)
}

// ErrNoResults is returned by a provider that answered successfully
// but found nothing for the subject.
var ErrNoResults = errors.New("no geocoding results")
