package runner

import (
	"errors"
	"math/rand"
	"time"
)

// BackoffPolicy controls retries of transient failures. Delay grows as
// Base * 2^attempt, optionally smeared by up to Jitter.
type BackoffPolicy struct {
	Base        time.Duration
	MaxAttempts int
	Jitter      time.Duration
}

// Delay returns the wait before retrying after the given zero-based attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	d := p.Base << uint(attempt)
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

// attempts normalizes MaxAttempts; a zero policy means a single attempt.
func (p BackoffPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Transient is implemented by errors that are expected to succeed on retry,
// such as provider rate limits.
type Transient interface {
	Transient() bool
}

// IsTransient reports whether err is retryable under a backoff policy.
func IsTransient(err error) bool {
	var t Transient
	return errors.As(err, &t) && t.Transient()
}
