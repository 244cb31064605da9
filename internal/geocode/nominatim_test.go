package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimProvider_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Manhattan", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, nominatimUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"40.7829","lon":"-73.9654","display_name":"Manhattan, New York"}]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL)
	result, err := p.Geocode(context.Background(), "Manhattan")
	require.NoError(t, err)
	assert.Equal(t, 40.7829, result.Latitude)
	assert.Equal(t, -73.9654, result.Longitude)
	assert.Equal(t, "Manhattan, New York", result.FormattedAddress)
}

func TestNominatimProvider_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL)
	_, err := p.Geocode(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrNoResults)
}

func TestNominatimProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL)
	_, err := p.Geocode(context.Background(), "Manhattan")
	require.Error(t, err)
}

func TestNominatimProvider_BadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"lat":"not-a-number","lon":"0","display_name":"x"}]`))
	}))
	defer srv.Close()

	p := NewNominatimProvider(srv.URL)
	_, err := p.Geocode(context.Background(), "Manhattan")
	require.Error(t, err)
}
