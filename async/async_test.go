package async_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jules-labs/eventcore/async"
	"github.com/jules-labs/eventcore/bookmark"
	"github.com/jules-labs/eventcore/event"
)

type fakeSource struct {
	events []event.SequencedEvent
}

func (f *fakeSource) GetAfter(ctx context.Context, after int64, eventClasses []string, batchSize int) ([]event.SequencedEvent, error) {
	var out []event.SequencedEvent
	for _, se := range f.events {
		if se.Sequence > after {
			out = append(out, se)
		}
		if len(out) == batchSize {
			break
		}
	}
	return out, nil
}

type fakeBookmarks struct {
	saved map[string]bookmark.Bookmark
}

func newFakeBookmarks() *fakeBookmarks {
	return &fakeBookmarks{saved: make(map[string]bookmark.Bookmark)}
}

func (f *fakeBookmarks) BookmarkFor(ctx context.Context, name string) (bookmark.Bookmark, error) {
	return f.saved[name], nil
}

func (f *fakeBookmarks) Save(ctx context.Context, name string, b bookmark.Bookmark) error {
	f.saved[name] = b
	return nil
}

type fakeProcessor struct {
	classes   []string
	processed []event.Event
	failOn    string
}

func (f *fakeProcessor) EventClasses() []string { return f.classes }

func (f *fakeProcessor) Process(ctx context.Context, e event.Event) error {
	if f.failOn != "" && e.EventType == f.failOn {
		return errors.New("processor refused " + f.failOn)
	}
	f.processed = append(f.processed, e)
	return nil
}

func seq(n int64, t string) event.SequencedEvent {
	return event.SequencedEvent{Event: event.Event{EventType: t}, Sequence: n}
}

func TestProcessOneBatchAdvancesBookmarkPastEachEvent(t *testing.T) {
	source := &fakeSource{events: []event.SequencedEvent{seq(1, "A"), seq(2, "A"), seq(3, "A")}}
	bookmarks := newFakeBookmarks()
	proc := &fakeProcessor{}

	p := async.New("consumer-1", source, bookmarks, proc, 10)

	outcome, err := p.ProcessOneBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, async.Wait, outcome)
	assert.Len(t, proc.processed, 3)
	assert.Equal(t, int64(3), bookmarks.saved["consumer-1"].Sequence)
}

func TestProcessOneBatchReturnsContinueWhenBatchIsFull(t *testing.T) {
	source := &fakeSource{events: []event.SequencedEvent{seq(1, "A"), seq(2, "A"), seq(3, "A")}}
	bookmarks := newFakeBookmarks()
	proc := &fakeProcessor{}

	p := async.New("consumer-1", source, bookmarks, proc, 2)

	outcome, err := p.ProcessOneBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, async.Continue, outcome)
	assert.Len(t, proc.processed, 2)
	assert.Equal(t, int64(2), bookmarks.saved["consumer-1"].Sequence)
}

func TestProcessOneBatchLeavesBookmarkAtLastSuccessOnFailure(t *testing.T) {
	source := &fakeSource{events: []event.SequencedEvent{seq(1, "A"), seq(2, "B"), seq(3, "A")}}
	bookmarks := newFakeBookmarks()
	proc := &fakeProcessor{failOn: "B"}

	p := async.New("consumer-1", source, bookmarks, proc, 10)

	_, err := p.ProcessOneBatch(context.Background())
	require.Error(t, err)
	assert.Len(t, proc.processed, 1)
	assert.Equal(t, int64(1), bookmarks.saved["consumer-1"].Sequence)
}

func TestProcessOneBatchResumesFromBookmark(t *testing.T) {
	source := &fakeSource{events: []event.SequencedEvent{seq(1, "A"), seq(2, "A")}}
	bookmarks := newFakeBookmarks()
	bookmarks.saved["consumer-1"] = bookmark.Bookmark{Sequence: 1}
	proc := &fakeProcessor{}

	p := async.New("consumer-1", source, bookmarks, proc, 10)

	_, err := p.ProcessOneBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, proc.processed, 1)
	assert.Equal(t, "A", proc.processed[0].EventType)
	assert.Equal(t, int64(2), bookmarks.saved["consumer-1"].Sequence)
}

func TestNewDefaultsBatchSize(t *testing.T) {
	p := async.New("c", &fakeSource{}, newFakeBookmarks(), &fakeProcessor{}, 0)
	assert.Equal(t, 1000, p.BatchSize)
}
