package eventstore_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jules-labs/eventcore/event"
	"github.com/jules-labs/eventcore/eventstore"
	"github.com/jules-labs/eventcore/internal/fixture"
	"github.com/jules-labs/eventcore/serializer"
)

func TestSinkWithPostgresAdvisoryLockStillAppends(t *testing.T) {
	db := setupTestDB(t)
	reg := serializer.NewRegistry(event.StandardMetadata{})
	fixture.RegisterTypes(reg)

	lock := eventstore.NewPostgresAdvisoryLock(42, time.Second)
	store := eventstore.New(db, eventstore.Postgres, reg, eventstore.WithLockStrategy(lock))

	widgetID := uuid.New()
	require.NoError(t, store.Sink(t.Context(), []event.Event{widgetCreatedEvent(widgetID, "sprocket")}))

	events, err := store.EventsFor(t.Context(), widgetID)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
