package eventstore_test

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/jules-labs/eventcore/event"
	"github.com/jules-labs/eventcore/eventstore"
	"github.com/jules-labs/eventcore/internal/fixture"
	"github.com/jules-labs/eventcore/serializer"
)

func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	pgUser := envOr("PGUSER", "user")
	pgPassword := envOr("PGPASSWORD", "password")
	pgHost := envOr("PGHOST", "localhost")
	pgPort := envOr("PGPORT", "5432")
	pgDB := envOr("PGDATABASE", "testdb")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(eventstore.PostgresSchema)
	require.NoError(t, err)
	_, err = db.Exec(`TRUNCATE events, bookmarks, event_sequence_stats`)
	require.NoError(t, err)

	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newTestStore(t testing.TB) *eventstore.Store {
	t.Helper()
	db := setupTestDB(t)
	reg := serializer.NewRegistry(event.StandardMetadata{})
	fixture.RegisterTypes(reg)
	return eventstore.New(db, eventstore.Postgres, reg)
}

func widgetCreatedEvent(id uuid.UUID, name string) event.Event {
	return event.Event{
		ID:                uuid.New(),
		AggregateID:       id,
		AggregateType:     fixture.AggregateType,
		AggregateSequence: 1,
		EventType:         "WidgetCreated",
		CreatedAt:         time.Now().UTC(),
		Metadata:          event.StandardMetadata{Correlation: "corr-1"},
		Body:              fixture.WidgetCreated{ID: id, Name: name},
	}
}

func TestSinkThenEventsFor(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	widgetID := uuid.New()
	require.NoError(t, store.Sink(ctx, []event.Event{widgetCreatedEvent(widgetID, "sprocket")}))

	events, err := store.EventsFor(ctx, widgetID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "WidgetCreated", events[0].EventType)
	require.Equal(t, widgetID, events[0].AggregateID)
}

func TestSinkDuplicateAggregateSequenceIsConcurrencyError(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	widgetID := uuid.New()
	require.NoError(t, store.Sink(ctx, []event.Event{widgetCreatedEvent(widgetID, "sprocket")}))

	err := store.Sink(ctx, []event.Event{widgetCreatedEvent(widgetID, "sprocket-again")})
	require.Error(t, err)

	var conc *eventstore.ConcurrencyError
	require.ErrorAs(t, err, &conc)
	require.Equal(t, widgetID.String(), conc.AggregateID)
}

func TestGetAfterOrdersAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Sink(ctx, []event.Event{widgetCreatedEvent(uuid.New(), fmt.Sprintf("w%d", i))}))
	}

	batch, err := store.GetAfter(ctx, 0, nil, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Less(t, batch[0].Sequence, batch[1].Sequence)

	rest, err := store.GetAfter(ctx, batch[1].Sequence, nil, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}

func TestLastSequenceReflectsSunkEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	seq0, err := store.LastSequence(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), seq0)

	require.NoError(t, store.Sink(ctx, []event.Event{widgetCreatedEvent(uuid.New(), "sprocket")}))

	seq1, err := store.LastSequence(ctx, nil)
	require.NoError(t, err)
	require.Greater(t, seq1, int64(0))
}

func TestStatsLastSequenceTracksEventType(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Sink(ctx, []event.Event{widgetCreatedEvent(uuid.New(), "sprocket")}))

	seq, err := store.Stats().LastSequence(ctx, []string{"WidgetCreated"})
	require.NoError(t, err)
	require.Greater(t, seq, int64(0))

	seq, err = store.Stats().LastSequence(ctx, []string{"NeverSunk"})
	require.NoError(t, err)
	require.Equal(t, int64(0), seq)
}

func TestNewPanicsOnUnsupportedDialect(t *testing.T) {
	db := setupTestDB(t)
	reg := serializer.NewRegistry(event.StandardMetadata{})

	require.Panics(t, func() {
		eventstore.New(db, nil, reg)
	})
}
