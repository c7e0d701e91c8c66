package async

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/metric"

	"github.com/jules-labs/eventcore/telemetry"
)

// StatsSource is the narrow high-water-mark dependency Monitor needs —
// satisfied by *eventstore.SequenceStatsStore.
type StatsSource interface {
	LastSequence(ctx context.Context, eventClasses []string) (int64, error)
}

// Monitor periodically reports Lag = highWater(eventClasses) -
// bookmark.sequence for each registered processor.
// Lag is observed on an OTel async gauge rather than pushed through a
// bespoke metrics callback, since a tracer/meter pair is already wired
// for every other package via telemetry.Meter.
type Monitor struct {
	processors []*BatchedAsyncEventProcessor
	stats      StatsSource
	gauge      metric.Int64ObservableGauge
}

// NewMonitor registers an observable gauge "eventcore.async.lag",
// tagged by consumer name, computed from stats on every collection.
func NewMonitor(stats StatsSource, processors ...*BatchedAsyncEventProcessor) (*Monitor, error) {
	m := &Monitor{processors: processors, stats: stats}

	meter := telemetry.Meter("eventcore/async")
	gauge, err := meter.Int64ObservableGauge(
		"eventcore.async.lag",
		metric.WithDescription("highWater(eventClasses) - bookmark.sequence, per async consumer"),
		metric.WithInt64Callback(m.observe),
	)
	if err != nil {
		return nil, err
	}
	m.gauge = gauge
	return m, nil
}

func (m *Monitor) observe(ctx context.Context, obs metric.Int64Observer) error {
	for _, p := range m.processors {
		lag, err := m.Lag(ctx, p)
		if err != nil {
			log.Printf("async monitor: lag for %s: %v", p.Name, err)
			continue
		}
		obs.Observe(lag, metric.WithAttributes(attributeConsumer(p.Name)))
	}
	return nil
}

// Lag computes the current lag for one processor without waiting for the
// next collection cycle: highWater(eventClasses) - bookmark.sequence.
func (m *Monitor) Lag(ctx context.Context, p *BatchedAsyncEventProcessor) (int64, error) {
	high, err := m.stats.LastSequence(ctx, p.EventProc.EventClasses())
	if err != nil {
		return 0, err
	}
	bm, err := p.Bookmarks.BookmarkFor(ctx, p.Name)
	if err != nil {
		return 0, err
	}
	lag := high - bm.Sequence
	if lag < 0 {
		// Sequence-stats can lag a hair behind the events table between
		// a sink's insert and its commit; never report negative lag.
		lag = 0
	}
	return lag, nil
}
