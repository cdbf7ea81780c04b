package statestore

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	retryBaseDelay  = 50 * time.Millisecond
	retryMaxDelay   = 500 * time.Millisecond
	retryMaxRetries = 3
)

// isTransientSQLiteErr matches the lock contention errors modernc.org/sqlite
// reports in its messages.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"database is locked",
		"database table is locked",
		"(5)",
		"(6)",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func newRetryBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBaseDelay
	b.MaxInterval = retryMaxDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, retryMaxRetries), ctx)
}

// retryOnContention runs fn again while it fails with a transient error.
func retryOnContention(ctx context.Context, fn func() error) error {
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !isTransientSQLiteErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}, newRetryBackOff(ctx))
}
