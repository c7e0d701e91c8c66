// Package async implements a batched polling consumer: a
// bookmark-driven reader that streams events from the log into a
// processor with at-least-once delivery, advancing the bookmark only
// after each event has been handled.
package async

import (
	"context"
	"fmt"
	"time"

	"github.com/jules-labs/eventcore/bookmark"
	"github.com/jules-labs/eventcore/event"
)

// EventSource is the read side of the log an async processor polls —
// satisfied by *eventstore.Store.
type EventSource interface {
	GetAfter(ctx context.Context, after int64, eventClasses []string, batchSize int) ([]event.SequencedEvent, error)
}

// BookmarkStore is the subset of *bookmark.Store the processor needs.
type BookmarkStore interface {
	BookmarkFor(ctx context.Context, name string) (bookmark.Bookmark, error)
	Save(ctx context.Context, name string, b bookmark.Bookmark) error
}

// EventProcessor is the narrow interface *processor.EventProcessor
// satisfies: what BatchedAsyncEventProcessor dispatches each polled
// event to.
type EventProcessor interface {
	Process(ctx context.Context, e event.Event) error
	EventClasses() []string
}

// Outcome is what ProcessOneBatch returns: whether the caller should
// poll again immediately (more work may remain) or back off.
type Outcome int

const (
	// Continue indicates the batch was full — more events may be
	// waiting immediately after this one.
	Continue Outcome = iota
	// Wait indicates the batch was not full — the consumer has caught
	// up to the tail of the log for now.
	Wait
)

func (o Outcome) String() string {
	if o == Continue {
		return "Continue"
	}
	return "Wait"
}

// StatsSink, if configured, is notified once per event successfully
// processed — used for latency observability, separate from
// async.Monitor's lag gauge.
type StatsSink func(proc *BatchedAsyncEventProcessor, se event.SequencedEvent, durationMs int64)

// BatchedAsyncEventProcessor is one named consumer of the log: it reads
// its bookmark, pulls at most BatchSize events the wrapped EventProcessor
// is interested in, and processes them one at a time, saving the
// bookmark after each successfully processed event.
type BatchedAsyncEventProcessor struct {
	Name          string
	Source        EventSource
	Bookmarks     BookmarkStore
	EventProc     EventProcessor
	BatchSize     int
	Stats         StatsSink
	clock         func() time.Time
}

// New builds a BatchedAsyncEventProcessor. batchSize defaults to 1000
// when <= 0.
func New(name string, source EventSource, bookmarks BookmarkStore, proc EventProcessor, batchSize int) *BatchedAsyncEventProcessor {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &BatchedAsyncEventProcessor{
		Name:      name,
		Source:    source,
		Bookmarks: bookmarks,
		EventProc: proc,
		BatchSize: batchSize,
		clock:     time.Now,
	}
}

// ProcessOneBatch runs the state machine:
// Idle -> Polling -> Processing[i] -> BookmarkSaved[i] -> ... -> Done. A
// crash at any point leaves the bookmark at the last successfully
// processed event; the next call re-delivers from bookmark+1 onward, so
// EventProc's handlers must tolerate replay.
func (p *BatchedAsyncEventProcessor) ProcessOneBatch(ctx context.Context) (Outcome, error) {
	start, err := p.Bookmarks.BookmarkFor(ctx, p.Name)
	if err != nil {
		return Wait, fmt.Errorf("async[%s]: read bookmark: %w", p.Name, err)
	}

	batch, err := p.Source.GetAfter(ctx, start.Sequence, p.EventProc.EventClasses(), p.BatchSize)
	if err != nil {
		return Wait, fmt.Errorf("async[%s]: get_after: %w", p.Name, err)
	}

	for _, se := range batch {
		t0 := p.clock()
		if err := p.EventProc.Process(ctx, se.Event); err != nil {
			return Wait, fmt.Errorf("async[%s]: process %s: %w", p.Name, se.ID, err)
		}
		if err := p.Bookmarks.Save(ctx, p.Name, bookmark.Bookmark{Sequence: se.Sequence}); err != nil {
			return Wait, fmt.Errorf("async[%s]: save bookmark at %d: %w", p.Name, se.Sequence, err)
		}
		if p.Stats != nil {
			p.Stats(p, se, p.clock().Sub(t0).Milliseconds())
		}
	}

	if len(batch) == p.BatchSize {
		return Continue, nil
	}
	return Wait, nil
}
