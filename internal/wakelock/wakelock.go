// Package wakelock provides the timeout-bounded lock a push worker holds
// while it is doing work rather than waiting on the server.
package wakelock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/aaronromeo/imappush/wakelock"

// Lock is not reference counted: any number of Acquire calls are undone by a
// single Release. A hold that is never released ends when its timeout fires.
type Lock struct {
	tag  string
	log  *slog.Logger
	held metric.Float64Histogram
	now  func() time.Time

	mu      sync.Mutex
	holding bool
	since   time.Time
	timer   *time.Timer
	gen     uint64
}

type Option func(*Lock)

func WithLogger(log *slog.Logger) Option {
	return func(l *Lock) {
		l.log = log
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(l *Lock) {
		l.held = newHistogram(provider)
	}
}

func New(tag string, opts ...Option) *Lock {
	l := &Lock{
		tag: tag,
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.held == nil {
		l.held = newHistogram(otel.GetMeterProvider())
	}
	l.log = l.log.With("wake_lock", tag)
	return l
}

func newHistogram(provider metric.MeterProvider) metric.Float64Histogram {
	h, _ := provider.Meter(instrumentationName).Float64Histogram("imappush.wakelock.held",
		metric.WithDescription("How long a wake lock was held"),
		metric.WithUnit("s"))
	return h
}

// Acquire takes the lock, or extends the current hold, for at most timeout.
func (l *Lock) Acquire(timeout time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.holding {
		l.holding = true
		l.since = l.now()
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.gen++
	gen := l.gen
	l.timer = time.AfterFunc(timeout, func() { l.expire(gen, timeout) })
}

// Release ends the current hold. Releasing a lock that is not held does nothing.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.holding {
		return
	}
	l.endLocked("released")
}

func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holding
}

func (l *Lock) expire(gen uint64, timeout time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A later Acquire or Release superseded this timer.
	if !l.holding || gen != l.gen {
		return
	}
	l.log.Warn("Wake lock timed out", "timeout", timeout)
	l.endLocked("expired")
}

func (l *Lock) endLocked(reason string) {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.gen++
	l.holding = false

	held := l.now().Sub(l.since)
	l.log.Debug("Wake lock "+reason, "held", held)
	l.held.Record(context.Background(), held.Seconds(),
		metric.WithAttributes(
			attribute.String("wake_lock", l.tag),
			attribute.String("reason", reason),
		))
}
