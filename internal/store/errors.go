package store

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"time"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrTryAgain is returned when the store gave up after transient failures;
// callers may safely retry the whole operation later.
var ErrTryAgain = errors.New("temporarily unavailable, try again")

// retryableSQLStates are PostgreSQL error classes worth retrying:
// connection failures (08), serialization/deadlock (40), insufficient
// resources (53), operator intervention (57).
var retryableSQLStates = map[string]bool{
	"08": true,
	"40": true,
	"53": true,
	"57": true,
}

// IsTransient reports whether err is a transient failure that a bounded
// retry may recover from.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if len(code) >= 2 && retryableSQLStates[code[:2]] {
			return true
		}
	}
	return errors.Is(err, sql.ErrConnDone)
}

// retryAttempts bounds WithRetry; backoff doubles per attempt.
const (
	retryAttempts = 3
	retryBackoff  = 250 * time.Millisecond
)

// WithRetry runs fn up to three times, backing off exponentially between
// attempts while the failure looks transient. Permanent errors return
// immediately; an exhausted budget returns ErrTryAgain wrapping the last
// failure.
func WithRetry(ctx context.Context, fn func() error) error {
	var last error
	backoff := retryBackoff
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		last = fn()
		if last == nil {
			return nil
		}
		if !IsTransient(last) {
			return last
		}
		if attempt == retryAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return errors.Join(ErrTryAgain, last)
}
