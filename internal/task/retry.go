package task

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy is internal to sample task implementations: the
// scheduler itself never retries a task (a FAIL health is quiescent
// until an explicit restart, per the scheduling design). A Task body
// uses a RetryPolicy to decide, on its own, how many attempts to give
// itself before reporting health=FAIL.
type RetryPolicy struct {
	MaxAttempts    int           // Maximum number of attempts before giving up
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration
	BackoffFactor  float64       // Multiplier for exponential backoff
	JitterFactor   float64       // Random jitter factor (0.0 to 1.0)
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Minute,
		BackoffFactor:  2.0,
		JitterFactor:   0.1,
	}
}

// CalculateBackoff calculates the backoff duration for a given attempt number.
func (p *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.InitialBackoff
	}

	backoff := float64(p.InitialBackoff) * math.Pow(p.BackoffFactor, float64(attempt))

	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	if p.JitterFactor > 0 {
		jitter := backoff * p.JitterFactor * (rand.Float64()*2 - 1) // -jitter to +jitter
		backoff += jitter
	}

	if backoff < 0 {
		backoff = float64(p.InitialBackoff)
	}

	return time.Duration(backoff)
}

// ShouldRetry reports whether another attempt is allowed given how many
// have already been made.
func (p *RetryPolicy) ShouldRetry(attempts int) bool {
	return attempts < p.MaxAttempts
}

// NextRetryTime calculates when the next attempt should happen.
func (p *RetryPolicy) NextRetryTime(attempts int) time.Time {
	return time.Now().UTC().Add(p.CalculateBackoff(attempts))
}

// RetryInfo summarizes retry scheduling for diagnostics.
type RetryInfo struct {
	ShouldRetry   bool
	NextRetryAt   time.Time
	BackoffDelay  time.Duration
	AttemptsLeft  int
	TotalAttempts int
}

// GetRetryInfo returns comprehensive retry information given the number
// of attempts made so far.
func (p *RetryPolicy) GetRetryInfo(attempts int) *RetryInfo {
	shouldRetry := p.ShouldRetry(attempts)
	backoff := p.CalculateBackoff(attempts)

	return &RetryInfo{
		ShouldRetry:   shouldRetry,
		NextRetryAt:   time.Now().UTC().Add(backoff),
		BackoffDelay:  backoff,
		AttemptsLeft:  p.MaxAttempts - attempts,
		TotalAttempts: p.MaxAttempts,
	}
}
