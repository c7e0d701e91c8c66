package async_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jules-labs/eventcore/async"
	"github.com/jules-labs/eventcore/bookmark"
)

type fakeStats struct {
	highWater int64
}

func (f *fakeStats) LastSequence(ctx context.Context, eventClasses []string) (int64, error) {
	return f.highWater, nil
}

func TestMonitorLagComputesDifference(t *testing.T) {
	bookmarks := newFakeBookmarks()
	bookmarks.saved["consumer-1"] = bookmark.Bookmark{Sequence: 7}
	proc := async.New("consumer-1", &fakeSource{}, bookmarks, &fakeProcessor{}, 10)

	m, err := async.NewMonitor(&fakeStats{highWater: 12}, proc)
	require.NoError(t, err)

	lag, err := m.Lag(context.Background(), proc)
	require.NoError(t, err)
	assert.Equal(t, int64(5), lag)
}

func TestMonitorLagNeverNegative(t *testing.T) {
	bookmarks := newFakeBookmarks()
	bookmarks.saved["consumer-1"] = bookmark.Bookmark{Sequence: 20}
	proc := async.New("consumer-1", &fakeSource{}, bookmarks, &fakeProcessor{}, 10)

	m, err := async.NewMonitor(&fakeStats{highWater: 12}, proc)
	require.NoError(t, err)

	lag, err := m.Lag(context.Background(), proc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), lag)
}
