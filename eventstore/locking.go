package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"
)

// LockingError is returned when a LockStrategy could not acquire its
// lock within its configured timeout. It is not retried by the gateway —
// a stuck lock is assumed to need operator attention, not another
// attempt a moment later.
type LockingError struct {
	Dialect string
	Err     error
}

func (e *LockingError) Error() string {
	return fmt.Sprintf("eventstore: lock acquisition failed (%s): %v", e.Dialect, e.Err)
}

func (e *LockingError) Unwrap() error { return e.Err }

// LockStrategy runs at the start of every sink transaction, before any
// row is inserted. The default is a no-op (used by the H2 test/dev
// dialect); PostgresAdvisoryLock serializes all sinks behind a single
// transaction-scoped advisory lock, which is useful for test determinism
// or coordinated migration windows.
type LockStrategy interface {
	Acquire(ctx context.Context, tx *sql.Tx) error
}

// NoopLock never blocks. It is the default strategy and the only one
// that makes sense for the H2 test/dev dialect, which has no advisory
// lock primitive.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, *sql.Tx) error { return nil }

// PostgresAdvisoryLock issues `SET LOCAL lock_timeout` followed by
// `pg_advisory_xact_lock`, so the lock is automatically released at
// transaction end regardless of commit or rollback. A timeout is mapped
// to LockingError.
//
// Repeated timeouts (e.g. a stuck migration holding the lock) trip an
// internal circuit breaker so that subsequent sinks fail fast with
// LockingError instead of each queuing for the full lock_timeout in
// turn; the breaker resets itself after its cooldown window.
type PostgresAdvisoryLock struct {
	Key     int64
	Timeout time.Duration

	breaker *gobreaker.CircuitBreaker
}

// NewPostgresAdvisoryLock builds a PostgresAdvisoryLock guarding key,
// bounded by timeout (default 10s if timeout <= 0).
func NewPostgresAdvisoryLock(key int64, timeout time.Duration) *PostgresAdvisoryLock {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := &PostgresAdvisoryLock{Key: key, Timeout: timeout}
	l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eventstore.advisory-lock",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return l
}

func (l *PostgresAdvisoryLock) Acquire(ctx context.Context, tx *sql.Tx) error {
	_, err := l.breaker.Execute(func() (interface{}, error) {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.Timeout.Milliseconds())); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", l.Key); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &LockingError{Dialect: "postgres", Err: err}
		}
		if isLockTimeout(err) {
			return &LockingError{Dialect: "postgres", Err: err}
		}
		return err
	}
	return nil
}

func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 55P03 = lock_not_available in PostgreSQL.
		return pqErr.Code == "55P03"
	}
	return false
}
