package aggregate_test

import (
	"testing"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"github.com/jules-labs/eventcore/aggregate"
	"github.com/jules-labs/eventcore/event"
	"github.com/jules-labs/eventcore/internal/fixture"
)

// TestRehydrateIsDeterministic checks that replaying the same event
// history twice always yields the same state,
// regardless of how many rename events the history contains.
func TestRehydrateIsDeterministic(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		widgetID := uuid.New()
		names := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 20).Draw(tt, "names")

		events := make([]event.Event, 0, len(names)+1)
		events = append(events, event.Event{
			AggregateID:       widgetID,
			AggregateSequence: 1,
			EventType:         "WidgetCreated",
			Body:              fixture.WidgetCreated{ID: widgetID, Name: "seed"},
		})
		for i, n := range names {
			events = append(events, event.Event{
				AggregateID:       widgetID,
				AggregateSequence: int64(i + 2),
				EventType:         "WidgetRenamed",
				Body:              fixture.WidgetRenamed{ID: widgetID, Name: n},
			})
		}

		cfg := fixture.Configuration()
		s1, err := aggregate.Rehydrate(cfg, events)
		if err != nil {
			tt.Fatalf("first rehydrate: %v", err)
		}
		s2, err := aggregate.Rehydrate(cfg, events)
		if err != nil {
			tt.Fatalf("second rehydrate: %v", err)
		}

		if s1.(fixture.State) != s2.(fixture.State) {
			tt.Fatalf("replay produced divergent state: %v vs %v", s1, s2)
		}

		expectedName := "seed"
		if len(names) > 0 {
			expectedName = names[len(names)-1]
		}
		if got := s1.(fixture.State).Name; got != expectedName {
			tt.Fatalf("expected final name %q, got %q", expectedName, got)
		}
	})
}
