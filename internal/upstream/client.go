// Package upstream is the anti-corruption layer between CropGuard domain
// logic and the external forecast provider. All outbound HTTP calls are
// routed through the BaseClient, which enforces consistent resilience
// patterns: circuit breaking, bounded retries with exponential backoff, and
// error mapping to types.AppError.
package upstream

import (
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"cropguard/internal/types"
)

// RetryPolicy configures the retry behavior for the BaseClient.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns sensible defaults for forecast API calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// BaseClient wraps an *http.Client and a circuit breaker. Provider clients
// (Open-Meteo) embed BaseClient to inherit this behavior.
type BaseClient struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	sleepFn     func(time.Duration) // for testability; defaults to time.Sleep
}

// BaseClientOption is a functional option for configuring a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc overrides the sleep function used between retries.
// Intended for testing to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) {
		c.sleepFn = fn
	}
}

// NewBaseClient creates a BaseClient with the given http client, breaker
// name, and retry policy.
func NewBaseClient(httpClient *http.Client, breakerName string, retryPolicy RetryPolicy, opts ...BaseClientOption) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	bc := &BaseClient{
		client:      httpClient,
		breaker:     cb,
		retryPolicy: retryPolicy,
		sleepFn:     time.Sleep,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// Do executes the request through the circuit breaker, retrying on 429 and
// 5xx with exponential backoff plus jitter. On success the response is
// returned as-is; the caller owns the body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retryPolicy.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleepFn(c.backoff(attempt))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			resp, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, &retryableStatusError{status: resp.StatusCode}
			}
			return resp, nil
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "forecast provider circuit open", err)
		}
		var rse *retryableStatusError
		if errors.As(err, &rse) && rse.status == http.StatusTooManyRequests && attempt == c.retryPolicy.MaxRetries {
			return nil, types.NewAppError(types.ErrCodeUpstreamRateLimit, "forecast provider rate limited", err)
		}
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
	}

	return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "forecast provider unavailable", lastErr)
}

// backoff computes the exponential wait for the given attempt, capped at
// MaxWait, with up to 25% jitter.
func (c *BaseClient) backoff(attempt int) time.Duration {
	wait := time.Duration(float64(c.retryPolicy.MinWait) * math.Pow(2, float64(attempt-1)))
	if wait > c.retryPolicy.MaxWait {
		wait = c.retryPolicy.MaxWait
	}
	jitter := time.Duration(rand.Int64N(int64(wait)/4 + 1))
	return wait + jitter
}

// retryableStatusError marks HTTP statuses the client retries on.
type retryableStatusError struct {
	status int
}

func (e *retryableStatusError) Error() string {
	return http.StatusText(e.status)
}
