package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mr1hm/go-disaster-response/internal/cache"
	"github.com/mr1hm/go-disaster-response/internal/extraction"
	"github.com/mr1hm/go-disaster-response/internal/models"
)

// ErrUnresolved means no location subject could be produced from the
// query. This is a normal terminal outcome, not a failure.
var ErrUnresolved = errors.New("no location could be resolved")

// Query carries the inputs location resolution works from. At least
// one field must be present, otherwise resolution is skipped.
type Query struct {
	Description  string
	LocationName string
}

// Geocoder is the provider-chain capability the resolver delegates
// cache misses to.
type Geocoder interface {
	Geocode(ctx context.Context, subject string) (models.ResolvedLocation, error)
}

// Resolver turns a Query into coordinates: subject selection,
// cache lookup, and single-flight delegation to the geocode chain.
type Resolver struct {
	geocoder  Geocoder
	cache     *cache.Store
	extractor extraction.Extractor // nil when no extraction capability is configured
	ttl       time.Duration
	group     singleflight.Group
}

func New(geocoder Geocoder, cacheStore *cache.Store, extractor extraction.Extractor, ttl time.Duration) *Resolver {
	return &Resolver{
		geocoder:  geocoder,
		cache:     cacheStore,
		extractor: extractor,
		ttl:       ttl,
	}
}

// Resolve produces a ResolvedLocation for the query, or ErrUnresolved
// when no subject string can be derived, or geocode.ErrGeocodeFailed
// when every provider failed. Successful results are cached; failures
// are not, so a transient outage is retried on the next call.
func (r *Resolver) Resolve(ctx context.Context, q Query) (models.ResolvedLocation, error) {
	subject := r.subject(ctx, q)
	if subject == "" {
		return models.ResolvedLocation{}, ErrUnresolved
	}

	key := normalize(subject)

	if raw, ok := r.cache.Get(ctx, key); ok {
		var loc models.ResolvedLocation
		if err := json.Unmarshal(raw, &loc); err == nil {
			slog.Debug("geocoding cache hit", "subject", subject)
			loc.Source = models.LocationSourceCache
			return loc, nil
		}
		// Undecodable entry; drop it and fall through to the chain.
		_ = r.cache.Delete(ctx, key)
	}

	// Concurrent misses for the same normalized key collapse into one
	// upstream chain invocation; every waiter gets the same result.
	v, err, _ := r.group.Do(key, func() (any, error) {
		loc, err := r.geocoder.Geocode(ctx, subject)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(loc); err == nil {
			if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
				slog.Warn("failed to cache geocoding result", "subject", subject, "error", err)
			}
		}
		return loc, nil
	})
	if err != nil {
		return models.ResolvedLocation{}, err
	}
	return v.(models.ResolvedLocation), nil
}

// subject picks the string submitted to the geocoding chain: an
// explicit location name, otherwise whatever extraction or the
// heuristic can pull out of the description.
func (r *Resolver) subject(ctx context.Context, q Query) string {
	if name := strings.TrimSpace(q.LocationName); name != "" {
		return name
	}

	description := strings.TrimSpace(q.Description)
	if description == "" {
		return ""
	}

	if r.extractor != nil {
		location, err := r.extractor.ExtractLocation(ctx, description)
		if err == nil && strings.TrimSpace(location) != "" {
			slog.Info("location extracted from description", "location", location)
			return strings.TrimSpace(location)
		}
		if err != nil {
			slog.Warn("location extraction failed, trying heuristic", "error", err)
		}
	}

	if location, ok := extraction.HeuristicLocation(description); ok {
		return location
	}
	return ""
}

func normalize(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
