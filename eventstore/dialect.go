package eventstore

import "fmt"

// Dialect isolates the handful of differences between the two supported
// backing stores: PostgreSQL (JSONB, RETURNING) and H2 running in
// MySQL-compatibility mode (TEXT columns, no RETURNING). Any other
// dialect is rejected explicitly — never silently downgraded to a
// lowest-common-denominator query.
type Dialect interface {
	// Name identifies the dialect for error messages and logging.
	Name() string
	// InsertEventSQL returns the parameterized insert statement for a
	// single event row. Implementations differ in placeholder style and
	// in whether they can use RETURNING sequence to get the assigned
	// store-global sequence back from the same round trip.
	InsertEventSQL() string
	// JSONColumnType names the column type used for json_body/metadata
	// in this dialect's DDL (informational; schema creation lives with
	// the caller).
	JSONColumnType() string
	// SequenceStatUpsertSQL returns the parameterized upsert for
	// event_sequence_stats, taking (event_type, sequence) and keeping
	// only the higher of the existing and new sequence.
	SequenceStatUpsertSQL() string
	// BookmarkUpsertSQL returns the parameterized upsert for bookmarks,
	// taking (name, value) and stamping both created_at and updated_at.
	BookmarkUpsertSQL() string
}

// Postgres is the JSONB + RETURNING dialect.
type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) InsertEventSQL() string {
	return `INSERT INTO events (id, aggregate_id, aggregate_type, aggregate_sequence, event_type, created_at, json_body, metadata)
	        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	        RETURNING sequence`
}
func (postgresDialect) JSONColumnType() string { return "JSONB" }
func (postgresDialect) SequenceStatUpsertSQL() string {
	return `INSERT INTO event_sequence_stats (event_type, sequence)
	        VALUES ($1, $2)
	        ON CONFLICT (event_type) DO UPDATE
	        SET sequence = EXCLUDED.sequence
	        WHERE event_sequence_stats.sequence < EXCLUDED.sequence`
}
func (postgresDialect) BookmarkUpsertSQL() string {
	return `INSERT INTO bookmarks (name, value, created_at, updated_at)
	        VALUES ($1, $2, now(), now())
	        ON CONFLICT (name) DO UPDATE
	        SET value = EXCLUDED.value, updated_at = now()`
}

// Postgres is the shared PostgreSQL dialect instance.
var Postgres Dialect = postgresDialect{}

// h2MySQLDialect is H2 running in MySQL-compatibility mode, as used by
// the test/dev harness. It has no RETURNING clause; the caller must
// query back the assigned sequence within the same transaction.
type h2MySQLDialect struct{}

func (h2MySQLDialect) Name() string             { return "h2-mysql" }
func (h2MySQLDialect) JSONColumnType() string   { return "TEXT" }
func (h2MySQLDialect) InsertEventSQL() string {
	return `INSERT INTO events (id, aggregate_id, aggregate_type, aggregate_sequence, event_type, created_at, json_body, metadata)
	        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
}
func (h2MySQLDialect) SequenceStatUpsertSQL() string {
	return `INSERT INTO event_sequence_stats (event_type, sequence)
	        VALUES (?, ?)
	        ON DUPLICATE KEY UPDATE sequence = GREATEST(sequence, VALUES(sequence))`
}
func (h2MySQLDialect) BookmarkUpsertSQL() string {
	return `INSERT INTO bookmarks (name, value, created_at, updated_at)
	        VALUES (?, ?, NOW(), NOW())
	        ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = NOW()`
}

// H2MySQLMode is the shared H2-in-MySQL-mode dialect instance, intended
// for tests and local development.
var H2MySQLMode Dialect = h2MySQLDialect{}

// ErrUnsupportedDialect is the value New panics with when given anything
// other than Postgres or H2MySQLMode.
type ErrUnsupportedDialect struct {
	Got string
}

func (e *ErrUnsupportedDialect) Error() string {
	return fmt.Sprintf("eventstore: unsupported dialect %q (only postgres and h2-mysql are supported)", e.Got)
}
