package clients

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RetryConfig defines retry behavior for Admin API calls
type RetryConfig struct {
	MaxRetries     int           // Maximum number of retry attempts
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration
	BackoffFactor  float64       // Multiplier for exponential backoff
	Jitter         float64       // Random jitter factor (0-1)
	RetryableCodes []int         // HTTP status codes to retry
}

// DefaultRetryConfig returns retry settings tuned for the Shopify Admin API,
// which throttles with 429 + Retry-After.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     4,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryableCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	config *RetryConfig
}

// NewRetrier creates a new retrier with the given config
func NewRetrier(config *RetryConfig) *Retrier {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &Retrier{config: config}
}

// ShouldRetry determines if a response should be retried. Network errors
// (statusCode 0) always retry; 4xx other than 429 never do.
func (r *Retrier) ShouldRetry(statusCode int, err error) bool {
	if err != nil && statusCode == 0 {
		return true
	}
	for _, code := range r.config.RetryableCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// CalculateBackoff returns the wait before the given attempt, honoring an
// upstream Retry-After when present.
func (r *Retrier) CalculateBackoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}

	backoff := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffFactor, float64(attempt))
	if r.config.Jitter > 0 {
		backoff += backoff * r.config.Jitter * (rand.Float64()*2 - 1)
	}
	if backoff > float64(r.config.MaxBackoff) {
		backoff = float64(r.config.MaxBackoff)
	}
	return time.Duration(backoff)
}

// ParseRetryAfter extracts the Retry-After duration from an HTTP response
func ParseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}
	return 0
}

// RetryableResponseFunc performs one HTTP attempt
type RetryableResponseFunc func(ctx context.Context) (*http.Response, error)

// DoHTTP executes an HTTP operation with retry logic and returns the final
// response. The caller owns the response body.
func (r *Retrier) DoHTTP(ctx context.Context, operation string, fn RetryableResponseFunc) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		resp, err := fn(ctx)
		lastResp, lastErr = resp, err

		var retryAfter time.Duration
		if err != nil {
			if !r.ShouldRetry(0, err) || attempt >= r.config.MaxRetries {
				return resp, fmt.Errorf("%s failed: %w", operation, err)
			}
		} else {
			if resp.StatusCode < 400 {
				return resp, nil
			}
			retryAfter = ParseRetryAfter(resp)
			if !r.ShouldRetry(resp.StatusCode, nil) || attempt >= r.config.MaxRetries {
				return resp, nil
			}
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return lastResp, ctx.Err()
		case <-time.After(r.CalculateBackoff(attempt, retryAfter)):
		}
	}

	if lastErr != nil {
		return lastResp, fmt.Errorf("%s failed after %d attempts: %w", operation, r.config.MaxRetries+1, lastErr)
	}
	return lastResp, nil
}

// CircuitBreaker trips after consecutive upstream failures so a struggling
// shop API is not hammered by every request.
type CircuitBreaker struct {
	mu           sync.Mutex
	failures     int
	successes    int
	state        CircuitState
	lastFailure  time.Time
	threshold    int
	resetTimeout time.Duration
	halfOpenMax  int
}

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		halfOpenMax:  3,
		state:        CircuitClosed,
	}
}

// Allow checks if a request should be allowed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailure) >= cb.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.successes = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		return cb.successes < cb.halfOpenMax
	}
	return false
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.successes++
		if cb.successes >= cb.halfOpenMax {
			cb.state = CircuitClosed
			cb.failures = 0
		}
	} else {
		cb.failures = 0
	}
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
