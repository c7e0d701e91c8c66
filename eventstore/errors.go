package eventstore

import "fmt"

// ConcurrencyError signals that a unique-constraint violation on
// (aggregate_id, aggregate_sequence) or on the event id surfaced during
// sink — another writer raced us. It is retriable: the gateway retries
// the whole dispatch step a bounded number of times.
type ConcurrencyError struct {
	AggregateID       string
	AggregateSequence int64
	Err               error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("eventstore: concurrency conflict on aggregate %s at sequence %d: %v", e.AggregateID, e.AggregateSequence, e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }
