package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	maxWriteAttempts = 3
	retryBaseWait    = 50 * time.Millisecond
	retryMaxWait     = time.Second
)

// transientCodes are the PostgreSQL error classes worth a retry: serialization
// failures, deadlocks, and dropped or refused connections.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
	"57P03": true, // cannot_connect_now
}

// IsTransient reports whether err is a storage error that may clear on retry.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	return pgconn.SafeToRetry(err)
}

// RetryTransient runs fn, retrying transient storage errors with bounded
// exponential backoff. Inside a transaction fn runs exactly once: replaying a
// statement in an aborted transaction cannot succeed.
func (db *DB) RetryTransient(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTransaction(ctx) {
		return fn(ctx)
	}

	wait := retryBaseWait
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
			if wait > retryMaxWait {
				wait = retryMaxWait
			}
		}

		if err = fn(ctx); err == nil || !IsTransient(err) {
			return err
		}
	}

	return err
}
