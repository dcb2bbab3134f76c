package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 1*time.Second, policy.InitialBackoff)
	assert.Equal(t, 5*time.Minute, policy.MaxBackoff)
	assert.Equal(t, 2.0, policy.BackoffFactor)
	assert.Equal(t, 0.1, policy.JitterFactor)
}

func TestRetryPolicy_CalculateBackoff(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     1 * time.Minute,
		BackoffFactor:  2.0,
		JitterFactor:   0, // No jitter for predictable tests
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},  // Initial
		{1, 2 * time.Second},  // 1 * 2^1
		{2, 4 * time.Second},  // 1 * 2^2
		{3, 8 * time.Second},  // 1 * 2^3
		{4, 16 * time.Second}, // 1 * 2^4
		{10, 1 * time.Minute}, // Capped at max
	}

	for _, tt := range tests {
		backoff := policy.CalculateBackoff(tt.attempt)
		assert.Equal(t, tt.expected, backoff, "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_CalculateBackoff_WithJitter(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     1 * time.Minute,
		BackoffFactor:  2.0,
		JitterFactor:   0.5,
	}

	// With jitter, result should be within range
	for i := 0; i < 10; i++ {
		backoff := policy.CalculateBackoff(1)
		// Base is 2s, with 50% jitter, range is 1s-3s
		assert.GreaterOrEqual(t, backoff, 1*time.Second)
		assert.LessOrEqual(t, backoff, 3*time.Second)
	}
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts: 3,
	}

	tests := []struct {
		attempts int
		expected bool
	}{
		{0, true},
		{1, true},
		{2, true},
		{3, false},
		{5, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.ShouldRetry(tt.attempts), "attempts: %d", tt.attempts)
	}
}

func TestRetryPolicy_NextRetryTime(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     1 * time.Minute,
		BackoffFactor:  2.0,
		JitterFactor:   0,
	}

	before := time.Now().UTC()
	retryTime := policy.NextRetryTime(1)
	after := time.Now().UTC()

	// Should be approximately 2 seconds from now
	expectedMin := before.Add(2 * time.Second)
	expectedMax := after.Add(2 * time.Second)

	assert.True(t, retryTime.After(expectedMin) || retryTime.Equal(expectedMin))
	assert.True(t, retryTime.Before(expectedMax) || retryTime.Equal(expectedMax))
}

func TestRetryPolicy_GetRetryInfo(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     1 * time.Minute,
		BackoffFactor:  2.0,
		JitterFactor:   0,
	}

	info := policy.GetRetryInfo(1)

	assert.True(t, info.ShouldRetry)
	assert.Equal(t, 2, info.AttemptsLeft)
	assert.Equal(t, 3, info.TotalAttempts)
	assert.Equal(t, 2*time.Second, info.BackoffDelay)
}
