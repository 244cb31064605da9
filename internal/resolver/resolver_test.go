package resolver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-disaster-response/internal/cache"
	"github.com/mr1hm/go-disaster-response/internal/geocode"
	"github.com/mr1hm/go-disaster-response/internal/models"
)

// memKV is an in-memory cache backing for resolver tests.
type memKV struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
}

func newMemKV() *memKV {
	return &memKV{entries: make(map[string]models.CacheEntry)}
}

func (m *memKV) GetEntry(_ context.Context, key string) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memKV) PutEntry(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = models.CacheEntry{Key: key, Value: value, ExpiresAt: expiresAt}
	return nil
}

func (m *memKV) DeleteEntry(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memKV) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// countingGeocoder records invocations and subjects.
type countingGeocoder struct {
	calls    atomic.Int64
	mu       sync.Mutex
	subjects []string
	delay    time.Duration
	fn       func(subject string) (models.ResolvedLocation, error)
}

func (g *countingGeocoder) Geocode(ctx context.Context, subject string) (models.ResolvedLocation, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.subjects = append(g.subjects, subject)
	g.mu.Unlock()
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.fn != nil {
		return g.fn(subject)
	}
	return models.ResolvedLocation{
		Latitude:         40.7829,
		Longitude:        -73.9654,
		FormattedAddress: "Manhattan, New York, NY, USA",
		Source:           models.LocationSourceGoogle,
	}, nil
}

type stubExtractor struct {
	location string
	err      error
}

func (s *stubExtractor) ExtractLocation(context.Context, string) (string, error) {
	return s.location, s.err
}

func newTestResolver(g Geocoder, clock clockwork.Clock) (*Resolver, *cache.Store) {
	store := cache.New(newMemKV(), time.Hour, time.Hour, clock)
	return New(g, store, nil, time.Hour), store
}

func TestResolver_CacheIdempotent(t *testing.T) {
	g := &countingGeocoder{}
	r, _ := newTestResolver(g, clockwork.NewFakeClock())

	ctx := context.Background()
	first, err := r.Resolve(ctx, Query{LocationName: "Manhattan"})
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceGoogle, first.Source)

	second, err := r.Resolve(ctx, Query{LocationName: "Manhattan"})
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceCache, second.Source)
	assert.Equal(t, first.Latitude, second.Latitude)
	assert.Equal(t, first.Longitude, second.Longitude)
	assert.Equal(t, first.FormattedAddress, second.FormattedAddress)

	assert.EqualValues(t, 1, g.calls.Load(), "second call within TTL must not reach providers")
}

func TestResolver_KeyNormalization(t *testing.T) {
	g := &countingGeocoder{}
	r, _ := newTestResolver(g, clockwork.NewFakeClock())

	ctx := context.Background()
	_, err := r.Resolve(ctx, Query{LocationName: "Manhattan"})
	require.NoError(t, err)
	_, err = r.Resolve(ctx, Query{LocationName: "  MANHATTAN  "})
	require.NoError(t, err)

	assert.EqualValues(t, 1, g.calls.Load(), "differently cased subjects share one cache key")
}

func TestResolver_TTLExpiryRefetches(t *testing.T) {
	g := &countingGeocoder{}
	clock := clockwork.NewFakeClock()
	r, _ := newTestResolver(g, clock)

	ctx := context.Background()
	_, err := r.Resolve(ctx, Query{LocationName: "Manhattan"})
	require.NoError(t, err)

	clock.Advance(time.Hour)

	loc, err := r.Resolve(ctx, Query{LocationName: "Manhattan"})
	require.NoError(t, err)
	assert.Equal(t, models.LocationSourceGoogle, loc.Source, "expired entry must not be served")
	assert.EqualValues(t, 2, g.calls.Load())
}

func TestResolver_SingleFlight(t *testing.T) {
	g := &countingGeocoder{delay: 50 * time.Millisecond}
	r, _ := newTestResolver(g, clockwork.NewFakeClock())

	const n = 10
	var wg sync.WaitGroup
	results := make([]models.ResolvedLocation, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(context.Background(), Query{LocationName: "Manhattan"})
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, g.calls.Load(), "concurrent identical misses must coalesce")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Latitude, results[i].Latitude)
		assert.Equal(t, results[0].Longitude, results[i].Longitude)
	}
}

func TestResolver_FailureNotCached(t *testing.T) {
	var failed bool
	g := &countingGeocoder{}
	g.fn = func(subject string) (models.ResolvedLocation, error) {
		if !failed {
			failed = true
			return models.ResolvedLocation{}, geocode.ErrGeocodeFailed
		}
		return models.ResolvedLocation{Latitude: 1, Source: models.LocationSourceNominatim}, nil
	}
	r, _ := newTestResolver(g, clockwork.NewFakeClock())

	ctx := context.Background()
	_, err := r.Resolve(ctx, Query{LocationName: "Manhattan"})
	require.ErrorIs(t, err, geocode.ErrGeocodeFailed)

	loc, err := r.Resolve(ctx, Query{LocationName: "Manhattan"})
	require.NoError(t, err, "transient outage must be retried on the next call")
	assert.Equal(t, models.LocationSourceNominatim, loc.Source)
	assert.EqualValues(t, 2, g.calls.Load())
}

func TestResolver_EmptyQueryUnresolved(t *testing.T) {
	g := &countingGeocoder{}
	r, _ := newTestResolver(g, clockwork.NewFakeClock())

	_, err := r.Resolve(context.Background(), Query{})
	require.ErrorIs(t, err, ErrUnresolved)
	assert.EqualValues(t, 0, g.calls.Load())
}

func TestResolver_LocationNameSkipsExtraction(t *testing.T) {
	g := &countingGeocoder{}
	store := cache.New(newMemKV(), time.Hour, time.Hour, clockwork.NewFakeClock())
	extractor := &stubExtractor{location: "Chicago"}
	r := New(g, store, extractor, time.Hour)

	_, err := r.Resolve(context.Background(), Query{
		Description:  "Flooding in Houston",
		LocationName: "Manhattan",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Manhattan"}, g.subjects)
}

func TestResolver_ExtractorProvidesSubject(t *testing.T) {
	g := &countingGeocoder{}
	store := cache.New(newMemKV(), time.Hour, time.Hour, clockwork.NewFakeClock())
	extractor := &stubExtractor{location: "Chicago, IL"}
	r := New(g, store, extractor, time.Hour)

	_, err := r.Resolve(context.Background(), Query{Description: "Blizzard conditions downtown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Chicago, IL"}, g.subjects)
}

func TestResolver_HeuristicWhenExtractionFails(t *testing.T) {
	g := &countingGeocoder{}
	store := cache.New(newMemKV(), time.Hour, time.Hour, clockwork.NewFakeClock())
	extractor := &stubExtractor{err: context.DeadlineExceeded}
	r := New(g, store, extractor, time.Hour)

	_, err := r.Resolve(context.Background(), Query{Description: "Heavy flooding in Manhattan, NYC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Manhattan"}, g.subjects)
}

func TestResolver_HeuristicWithoutExtractor(t *testing.T) {
	g := &countingGeocoder{}
	r, _ := newTestResolver(g, clockwork.NewFakeClock())

	_, err := r.Resolve(context.Background(), Query{Description: "Heavy flooding in Manhattan, NYC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Manhattan"}, g.subjects)
}

func TestResolver_NoSubjectFromDescription(t *testing.T) {
	g := &countingGeocoder{}
	r, _ := newTestResolver(g, clockwork.NewFakeClock())

	_, err := r.Resolve(context.Background(), Query{Description: "Massive power outage everywhere"})
	require.ErrorIs(t, err, ErrUnresolved)
	assert.EqualValues(t, 0, g.calls.Load())
}
