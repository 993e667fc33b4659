package pool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreakerTestClient(max int) *RateLimitedHTTPClient {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: max,
	}, logger)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newBreakerTestClient(2)
	defer client.Close()

	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), srv.URL)
		require.Error(t, err)
	}

	_, err := client.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestCircuitBreakerResetsOnSuccess(t *testing.T) {
	var fail bool
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		shouldFail := fail
		mu.Unlock()
		if shouldFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newBreakerTestClient(2)
	defer client.Close()

	// Alternating failures never accumulate enough to trip the breaker.
	for i := 0; i < 3; i++ {
		mu.Lock()
		fail = true
		mu.Unlock()
		_, err := client.Get(context.Background(), srv.URL)
		require.Error(t, err)

		mu.Lock()
		fail = false
		mu.Unlock()
		resp, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
}

func TestHTTPClientConcurrentRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newBreakerTestClient(5)
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Get(context.Background(), srv.URL)
			assert.NoError(t, err)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()
}
