package geocode

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mr1hm/go-disaster-response/internal/models"
)

// ErrGeocodeFailed means every provider and the fallback table failed.
// Callers must treat it as "no location available", never as a reason
// to abort the enclosing operation.
var ErrGeocodeFailed = errors.New("geocoding failed on all providers")

// Chain walks an ordered list of providers, then the built-in fallback
// table. The first success short-circuits.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		timeout:   timeout,
	}
}

func (c *Chain) Geocode(ctx context.Context, subject string) (models.ResolvedLocation, error) {
	for _, p := range c.providers {
		result, err := c.tryProvider(ctx, p, subject)
		if err != nil {
			slog.Warn("geocode provider failed, advancing", "provider", p.Name(), "subject", subject, "error", err)
			continue
		}
		return models.ResolvedLocation{
			Latitude:         result.Latitude,
			Longitude:        result.Longitude,
			FormattedAddress: result.FormattedAddress,
			Source:           models.LocationSource(p.Name()),
		}, nil
	}

	if result, ok := lookupFallback(subject); ok {
		slog.Info("using fallback coordinates", "subject", subject)
		return models.ResolvedLocation{
			Latitude:         result.Latitude,
			Longitude:        result.Longitude,
			FormattedAddress: result.FormattedAddress,
			Source:           models.LocationSourceFallbackTable,
		}, nil
	}

	return models.ResolvedLocation{}, ErrGeocodeFailed
}

func (c *Chain) tryProvider(ctx context.Context, p Provider, subject string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := p.Geocode(ctx, subject)
		done <- outcome{r, err}
	}()

	// A provider that ignores ctx is still bounded by the timeout; its
	// late answer is dropped.
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case o := <-done:
		return o.result, o.err
	}
}
