package extraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiExtractor_ExtractLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Manhattan, NYC\n"}]}}]}`))
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", srv.URL, time.Second)
	location, err := e.ExtractLocation(context.Background(), "Heavy flooding in Manhattan, NYC")
	require.NoError(t, err)
	assert.Equal(t, "Manhattan, NYC", location, "response text is trimmed")
}

func TestGeminiExtractor_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", srv.URL, time.Second)
	_, err := e.ExtractLocation(context.Background(), "something happened")
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestGeminiExtractor_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", srv.URL, time.Second)
	_, err := e.ExtractLocation(context.Background(), "something happened")
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestGeminiExtractor_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewGeminiExtractor("test-key", srv.URL, time.Second)
	_, err := e.ExtractLocation(context.Background(), "something happened")
	require.Error(t, err)
}
