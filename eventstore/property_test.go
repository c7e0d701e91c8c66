package eventstore_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/jules-labs/eventcore/event"
	"github.com/jules-labs/eventcore/internal/fixture"
)

// TestSinkAssignsStrictlyIncreasingSequence checks that the aggregate
// sequences read back by EventsFor are exactly 1..N, strictly increasing
// with no gaps, across however many events a single Sink call appends
// for one aggregate.
func TestSinkAssignsStrictlyIncreasingSequence(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	rapid.Check(t, func(tt *rapid.T) {
		renameCount := rapid.IntRange(0, 10).Draw(tt, "renames")
		widgetID := uuid.New()

		events := []event.Event{widgetCreatedEvent(widgetID, "seed")}
		for i := 0; i < renameCount; i++ {
			events = append(events, event.Event{
				ID:                uuid.New(),
				AggregateID:       widgetID,
				AggregateType:     fixture.AggregateType,
				AggregateSequence: int64(i + 2),
				EventType:         "WidgetRenamed",
				CreatedAt:         time.Now().UTC(),
				Metadata:          event.StandardMetadata{Correlation: "corr-prop"},
				Body:              fixture.WidgetRenamed{ID: widgetID, Name: "renamed"},
			})
		}

		if err := store.Sink(ctx, events); err != nil {
			tt.Fatalf("sink: %v", err)
		}

		got, err := store.EventsFor(ctx, widgetID)
		if err != nil {
			tt.Fatalf("events_for: %v", err)
		}
		if len(got) != len(events) {
			tt.Fatalf("expected %d events, got %d", len(events), len(got))
		}
		for i, e := range got {
			if e.AggregateSequence != int64(i+1) {
				tt.Fatalf("expected aggregate sequence %d at position %d, got %d", i+1, i, e.AggregateSequence)
			}
		}
	})
}
