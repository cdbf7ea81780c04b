package push

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	normalDelay       = 5 * time.Second
	maxDelay          = 5 * time.Minute
	idleFailureLimit  = 10
	idleReadSlack     = 5 * time.Minute
	backoffMultiplier = 2
)

// WakeLockTimeout bounds every wake lock hold taken while a worker is busy.
const WakeLockTimeout = 60 * time.Second

// retryPolicy tracks consecutive IDLE failures.
type retryPolicy struct {
	backoff  *backoff.ExponentialBackOff
	failures int
}

func newRetryPolicy() *retryPolicy {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     normalDelay,
		RandomizationFactor: 0,
		Multiplier:          backoffMultiplier,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return &retryPolicy{backoff: b}
}

// Failure records one more consecutive failure and returns the delay to sleep
// before the next attempt. disabled is true once the limit is exceeded.
func (p *retryPolicy) Failure() (delay time.Duration, disabled bool) {
	delay = p.backoff.NextBackOff()
	p.failures++
	return delay, p.failures > idleFailureLimit
}

func (p *retryPolicy) Success() {
	p.backoff.Reset()
	p.failures = 0
}

func (p *retryPolicy) Failures() int {
	return p.failures
}

func idleReadTimeout(idleRefreshMinutes int) time.Duration {
	return time.Duration(idleRefreshMinutes)*time.Minute + idleReadSlack
}
