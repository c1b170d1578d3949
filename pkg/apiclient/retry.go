package apiclient

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls how server and network failures are retried.
type RetryConfig struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration

	// Multiplier grows the delay after each further failure.
	Multiplier float64

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// Jitter spreads each wait by up to this fraction in either direction.
	// Zero disables it.
	Jitter float64
}

// DefaultRetryConfig returns three retries starting at one second and
// doubling, without jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		Multiplier: 2,
	}
}

// backoff is the wait after failed attempt number attempt (zero based):
// base * multiplier^attempt.
func (c RetryConfig) backoff(base time.Duration, attempt int) time.Duration {
	mult := c.Multiplier
	if mult <= 0 {
		mult = 2
	}
	f := float64(base) * math.Pow(mult, float64(attempt))
	d := time.Duration(math.MaxInt64)
	if f < math.MaxInt64 {
		d = time.Duration(f)
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	if c.Jitter > 0 && d < math.MaxInt64/2 {
		d += time.Duration(float64(d) * c.Jitter * (rand.Float64()*2 - 1))
	}
	return d
}
