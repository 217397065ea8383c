package upstream

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropguard/internal/types"
)

func noSleep(time.Duration) {}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", testPolicy(), WithSleepFunc(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", testPolicy(), WithSleepFunc(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", testPolicy(), WithSleepFunc(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	// 4xx (other than 429) passes through without retrying; the caller
	// decides what to do with it.
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestDo_PersistentRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", testPolicy(), WithSleepFunc(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	_, err := c.Do(req)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamRateLimit, appErr.Code)
}

func TestDo_ExhaustedRetriesMapToUpstreamError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", testPolicy(), WithSleepFunc(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	_, err := c.Do(req)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
}

func TestDo_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewBaseClient(srv.Client(), "test", testPolicy(), WithSleepFunc(noSleep))

	// The breaker trips after more than 5 consecutive failures; two full
	// retry cycles (4 attempts each) push it past the threshold.
	req1, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := c.Do(req1)
	require.Error(t, err)

	req2, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err = c.Do(req2)
	require.Error(t, err)

	callsBefore := calls
	req3, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err = c.Do(req3)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
	// The open breaker short-circuits without hitting the server.
	assert.Equal(t, callsBefore, calls)
}

func TestBackoff_CappedAtMaxWait(t *testing.T) {
	c := NewBaseClient(http.DefaultClient, "test", RetryPolicy{
		MaxRetries: 10,
		MinWait:    time.Second,
		MaxWait:    2 * time.Second,
	})

	// Jitter adds at most 25% on top of the capped wait.
	for attempt := 1; attempt <= 10; attempt++ {
		wait := c.backoff(attempt)
		assert.LessOrEqual(t, wait, 2*time.Second+500*time.Millisecond)
	}
}
