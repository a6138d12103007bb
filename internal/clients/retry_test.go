package clients

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	r := NewRetrier(nil)

	assert.True(t, r.ShouldRetry(http.StatusTooManyRequests, nil))
	assert.True(t, r.ShouldRetry(http.StatusServiceUnavailable, nil))
	assert.True(t, r.ShouldRetry(http.StatusInternalServerError, nil))
	assert.True(t, r.ShouldRetry(0, assert.AnError))

	assert.False(t, r.ShouldRetry(http.StatusOK, nil))
	assert.False(t, r.ShouldRetry(http.StatusNotFound, nil))
	assert.False(t, r.ShouldRetry(http.StatusUnprocessableEntity, nil))
}

func TestCalculateBackoff_HonorsRetryAfter(t *testing.T) {
	r := NewRetrier(nil)
	assert.Equal(t, 7*time.Second, r.CalculateBackoff(0, 7*time.Second))
}

func TestCalculateBackoff_ExponentialAndCapped(t *testing.T) {
	r := NewRetrier(&RetryConfig{
		MaxRetries:     4,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BackoffFactor:  2.0,
	})

	assert.Equal(t, 100*time.Millisecond, r.CalculateBackoff(0, 0))
	assert.Equal(t, 200*time.Millisecond, r.CalculateBackoff(1, 0))
	assert.Equal(t, 400*time.Millisecond, r.CalculateBackoff(2, 0))
	// Capped at MaxBackoff
	assert.Equal(t, 1*time.Second, r.CalculateBackoff(10, 0))
}

func TestParseRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, ParseRetryAfter(resp))

	resp.Header.Del("Retry-After")
	assert.Equal(t, time.Duration(0), ParseRetryAfter(resp))

	assert.Equal(t, time.Duration(0), ParseRetryAfter(nil))
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)

	cb.RecordFailure()
	assert.False(t, cb.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}
