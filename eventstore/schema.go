package eventstore

// Schema DDL is provided as reference constants, not executed by this
// package: environment-driven database bootstrap is left to the caller.
// Callers (tests, migration tooling) apply whichever of these
// matches their Dialect.

// PostgresSchema is the authoritative schema for the Postgres dialect.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	sequence           BIGSERIAL PRIMARY KEY,
	id                 UUID UNIQUE NOT NULL,
	aggregate_sequence BIGINT NOT NULL,
	aggregate_id       UUID NOT NULL,
	aggregate_type     VARCHAR(128) NOT NULL,
	event_type         VARCHAR(256) NOT NULL,
	created_at         TIMESTAMP NOT NULL,
	json_body          JSONB NOT NULL,
	metadata           JSONB NOT NULL,
	UNIQUE (aggregate_id, aggregate_sequence)
);
CREATE INDEX IF NOT EXISTS events_type_idx ON events (event_type, aggregate_type);

CREATE TABLE IF NOT EXISTS bookmarks (
	name       VARCHAR(160) PRIMARY KEY,
	value      BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT now(),
	updated_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS event_sequence_stats (
	event_type VARCHAR(256) PRIMARY KEY,
	sequence   BIGINT NOT NULL
);
`

// H2MySQLSchema is the equivalent DDL for H2 running in MySQL-
// compatibility mode, used by tests and local development: TEXT instead
// of JSONB, no advisory locking.
const H2MySQLSchema = `
CREATE TABLE IF NOT EXISTS events (
	sequence           BIGINT AUTO_INCREMENT PRIMARY KEY,
	id                 CHAR(36) UNIQUE NOT NULL,
	aggregate_sequence BIGINT NOT NULL,
	aggregate_id       CHAR(36) NOT NULL,
	aggregate_type     VARCHAR(128) NOT NULL,
	event_type         VARCHAR(256) NOT NULL,
	created_at         TIMESTAMP NOT NULL,
	json_body          TEXT NOT NULL,
	metadata           TEXT NOT NULL,
	UNIQUE (aggregate_id, aggregate_sequence)
);
CREATE INDEX events_type_idx ON events (event_type, aggregate_type);

CREATE TABLE IF NOT EXISTS bookmarks (
	name       VARCHAR(160) PRIMARY KEY,
	value      BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS event_sequence_stats (
	event_type VARCHAR(256) PRIMARY KEY,
	sequence   BIGINT NOT NULL
);
`
