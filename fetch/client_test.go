package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() blogscout.Config {
	cfg := blogscout.DefaultConfig()
	cfg.RetryBaseDelay = 5 * time.Millisecond
	cfg.RetryMaxDelay = 20 * time.Millisecond
	cfg.HTTPTimeout = 2 * time.Second
	return cfg
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// TestClientGet_Success verifies a plain fetch returns the body
func TestClientGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "blogscout")
		w.Write([]byte("<html>page</html>"))
	}))
	defer server.Close()

	client := NewClient(testConfig(), testLogger())
	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>page</html>", body)
}

// TestClientGet_NotFoundNoRetry verifies 4xx responses fail without retry
func TestClientGet_NotFoundNoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(), testLogger())
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")
}

// TestClientGet_RetriesRateLimit verifies 429 triggers backoff and retry
func TestClientGet_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := NewClient(testConfig(), testLogger())
	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, int32(3), calls.Load())
}

// TestClientGet_RetriesExhausted verifies the attempt cap is honored
func TestClientGet_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig()
	client := NewClient(cfg, testLogger())
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(cfg.MaxRetries), calls.Load())
}

// TestClientGet_UsesCache verifies a cached page short-circuits the network
func TestClientGet_UsesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("fresh body"))
	}))
	defer server.Close()

	cache, err := NewPageCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	client := NewClient(testConfig(), testLogger()).WithCache(cache)

	first, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	second, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second fetch should come from cache")
}

// TestIsTransient verifies the retry classification
func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{Code: 429}))
	assert.True(t, IsTransient(&StatusError{Code: 503}))
	assert.False(t, IsTransient(&StatusError{Code: 404}))
	assert.False(t, IsTransient(&StatusError{Code: 403}))
	assert.False(t, IsTransient(nil))
}
