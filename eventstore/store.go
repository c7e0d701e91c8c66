// Package eventstore implements a transactional append-only log:
// Store.Sink appends a batch of events for one
// aggregate atomically, delivering them to every registered synchronous
// processor inside the same transaction; Store.GetAfter and
// Store.EventsFor serve the two read paths (poll-from-sequence and
// replay-one-aggregate) consumers need.
package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jules-labs/eventcore/event"
	"github.com/jules-labs/eventcore/serializer"
	"github.com/jules-labs/eventcore/telemetry"
)

// SyncProcessor is delivered every event sunk in a transaction, before
// that transaction commits. A SyncProcessor must not call Store.Sink
// itself — re-entering the same advisory lock inside its own holder
// deadlocks; see DESIGN.md for why re-entrancy is handled this way.
// Any error aborts the sink's transaction.
type SyncProcessor interface {
	Process(ctx context.Context, tx *sql.Tx, e event.Event) error
}

// Store is the transactional event log over a relational database. One
// Store instance owns exactly one Dialect and one LockStrategy.
type Store struct {
	db         *sqlx.DB
	dialect    Dialect
	lock       LockStrategy
	serializer *serializer.Serializer
	stats      *SequenceStatsStore
	sync       []SyncProcessor
	tracer     trace.Tracer
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLockStrategy overrides the default NoopLock.
func WithLockStrategy(l LockStrategy) Option {
	return func(s *Store) { s.lock = l }
}

// WithSyncProcessors registers processors delivered every event inside
// the sinking transaction, in the given order.
func WithSyncProcessors(procs ...SyncProcessor) Option {
	return func(s *Store) { s.sync = append(s.sync, procs...) }
}

// New builds a Store. dialect must be Postgres or H2MySQLMode; anything
// else panics with an *ErrUnsupportedDialect: accepting an
// unrecognized dialect silently would be worse than failing loudly at
// construction time.
func New(db *sql.DB, dialect Dialect, reg *serializer.Registry, opts ...Option) *Store {
	switch dialect {
	case Postgres, H2MySQLMode:
	default:
		panic(&ErrUnsupportedDialect{Got: dialect.Name()})
	}

	sx := sqlx.NewDb(db, dialectDriverName(dialect))
	s := &Store{
		db:         sx,
		dialect:    dialect,
		lock:       NoopLock{},
		serializer: serializer.New(reg),
		stats:      NewSequenceStatsStore(sx, dialect),
		tracer:     telemetry.Tracer("eventcore/eventstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dialectDriverName(d Dialect) string {
	if d == Postgres {
		return "postgres"
	}
	return "mysql"
}

// Sink appends events atomically for one aggregate. All events in the
// batch must belong to aggregateID/aggregateType and carry consecutive
// AggregateSequence values; the gateway is responsible for assigning
// those before calling Sink.
func (s *Store) Sink(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	aggregateID := events[0].AggregateID
	aggregateType := events[0].AggregateType

	ctx, span := s.tracer.Start(ctx, "eventstore.sink", trace.WithAttributes(
		attribute.String("aggregate.id", aggregateID.String()),
		attribute.String("aggregate.type", aggregateType),
		attribute.Int("event.count", len(events)),
	))
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("eventstore: begin sink transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.lock.Acquire(ctx, tx.Tx); err != nil {
		return err
	}

	for _, e := range events {
		if err := s.insertOne(ctx, tx, e); err != nil {
			var pqConflict *ConcurrencyError
			if errors.As(err, &pqConflict) {
				span.SetAttributes(attribute.Bool("conflict.detected", true))
			}
			return err
		}
	}

	for _, proc := range s.sync {
		for _, e := range events {
			if err := proc.Process(ctx, tx.Tx, e); err != nil {
				return fmt.Errorf("eventstore: synchronous processor rejected event %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("eventstore: commit sink transaction: %w", err)
	}
	span.SetAttributes(attribute.Bool("sink.success", true))
	return nil
}

func (s *Store) insertOne(ctx context.Context, tx *sqlx.Tx, e event.Event) error {
	bodyJSON, metaJSON, err := s.serializer.Encode(e.EventType, e.Body, e.Metadata)
	if err != nil {
		// *EventBodySerializationError / *EventMetadataSerializationError
		// indicate a programming error (an event or metadata type wired
		// up wrong), not a retriable condition. They propagate as plain
		// errors up through Sink, which aborts the transaction via its
		// deferred Rollback; the gateway must not retry on them.
		return err
	}

	var seq int64
	if s.dialect == Postgres {
		err = tx.QueryRowxContext(ctx, s.dialect.InsertEventSQL(),
			e.ID, e.AggregateID, e.AggregateType, e.AggregateSequence, e.EventType, e.CreatedAt, bodyJSON, metaJSON,
		).Scan(&seq)
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx, s.dialect.InsertEventSQL(),
			e.ID, e.AggregateID, e.AggregateType, e.AggregateSequence, e.EventType, e.CreatedAt, bodyJSON, metaJSON,
		)
		if err == nil {
			seq, err = res.LastInsertId()
		}
	}
	if err != nil {
		if isUniqueViolation(err) {
			return &ConcurrencyError{AggregateID: e.AggregateID.String(), AggregateSequence: e.AggregateSequence, Err: err}
		}
		return fmt.Errorf("eventstore: insert event %s: %w", e.ID, err)
	}

	return upsertSequenceStat(ctx, tx, s.dialect, e.EventType, seq)
}

// GetAfter returns at most batchSize events with store-global sequence
// strictly greater than after, optionally filtered to eventClasses
// (empty = no filter), in ascending sequence order.
func (s *Store) GetAfter(ctx context.Context, after int64, eventClasses []string, batchSize int) ([]event.SequencedEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.get_after", trace.WithAttributes(
		attribute.Int64("after", after),
		attribute.Int("batch.size", batchSize),
	))
	defer span.End()

	query := `SELECT sequence, id, aggregate_id, aggregate_type, aggregate_sequence, event_type, created_at, json_body, metadata
	          FROM events WHERE sequence > ?`
	args := []interface{}{after}
	if len(eventClasses) > 0 {
		var err error
		query, args, err = sqlx.In(query+" AND event_type IN (?)", after, eventClasses)
		if err != nil {
			return nil, err
		}
	}
	query += " ORDER BY sequence ASC LIMIT ?"
	args = append(args, batchSize)
	query = s.db.Rebind(query)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: get_after query: %w", err)
	}
	defer rows.Close()

	events, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.returned", len(events)))
	return events, nil
}

// EventsFor returns all events for aggregateID, in ascending aggregate
// sequence order.
func (s *Store) EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]event.Event, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.events_for", trace.WithAttributes(
		attribute.String("aggregate.id", aggregateID.String()),
	))
	defer span.End()

	query := s.db.Rebind(`SELECT sequence, id, aggregate_id, aggregate_type, aggregate_sequence, event_type, created_at, json_body, metadata
	          FROM events WHERE aggregate_id = ? ORDER BY aggregate_sequence ASC`)
	rows, err := s.db.QueryxContext(ctx, query, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: events_for query: %w", err)
	}
	defer rows.Close()

	sequenced, err := s.scanRows(rows)
	if err != nil {
		return nil, err
	}
	out := make([]event.Event, len(sequenced))
	for i, se := range sequenced {
		out[i] = se.Event
	}
	span.SetAttributes(attribute.Int("events.returned", len(out)))
	return out, nil
}

// LastSequence returns the maximum store-global sequence, optionally
// restricted to eventClasses. It reads the events table directly; async
// consumers wanting a cheap, frequently-polled high-water mark should use
// SequenceStatsStore.LastSequence instead.
func (s *Store) LastSequence(ctx context.Context, eventClasses []string) (int64, error) {
	query := `SELECT COALESCE(MAX(sequence), 0) FROM events`
	args := []interface{}{}
	if len(eventClasses) > 0 {
		var err error
		query, args, err = sqlx.In(query+` WHERE event_type IN (?)`, eventClasses)
		if err != nil {
			return 0, err
		}
		query = s.db.Rebind(query)
	}
	var seq int64
	if err := s.db.GetContext(ctx, &seq, query, args...); err != nil {
		return 0, fmt.Errorf("eventstore: last_sequence query: %w", err)
	}
	return seq, nil
}

// Stats exposes the cached sequence-stats store for callers (typically
// async.Monitor) that want a cheap high-water mark without scanning
// events.
func (s *Store) Stats() *SequenceStatsStore { return s.stats }

func (s *Store) scanRows(rows *sqlx.Rows) ([]event.SequencedEvent, error) {
	var out []event.SequencedEvent
	for rows.Next() {
		var (
			seq               int64
			id                uuid.UUID
			aggID             uuid.UUID
			aggType           string
			aggSeq            int64
			eventType         string
			createdAt         interface{}
			bodyJSON, metaRaw []byte
		)
		if err := rows.Scan(&seq, &id, &aggID, &aggType, &aggSeq, &eventType, &createdAt, &bodyJSON, &metaRaw); err != nil {
			return nil, fmt.Errorf("eventstore: scan row: %w", err)
		}
		body, meta, err := s.serializer.Decode(eventType, bodyJSON, metaRaw)
		if err != nil {
			return nil, fmt.Errorf("eventstore: decode row %d: %w", seq, err)
		}
		ts, err := coerceTime(createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, event.SequencedEvent{
			Sequence: seq,
			Event: event.Event{
				ID:                id,
				AggregateID:       aggID,
				AggregateType:     aggType,
				AggregateSequence: aggSeq,
				EventType:         body.EventType(),
				CreatedAt:         ts,
				Metadata:          meta,
				Body:              body,
			},
		})
	}
	return out, rows.Err()
}
