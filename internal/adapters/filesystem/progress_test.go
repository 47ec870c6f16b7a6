package filesystem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/example/encheres/internal/adapters/filesystem"
	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/secondary"
)

func TestProgressAdapter_Report(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	now := started.Add(30 * time.Second)

	adapter, err := filesystem.NewProgressAdapter(dir, func() time.Time { return now })
	require.NoError(t, err)
	require.NotEmpty(t, adapter.JobID())

	err = adapter.Report(secondary.Progress{
		RunID:     7,
		Type:      scraperun.TypeIncremental,
		Status:    secondary.ProgressRunning,
		Total:     10,
		Counters:  scraperun.Counters{ListingsNew: 2, ListingsUpdated: 1, Unchanged: 3, Errors: 1, PagesScraped: 4},
		StartedAt: started,
	})
	require.NoError(t, err)

	doc, err := filesystem.ReadProgress(dir)
	require.NoError(t, err)
	assert.Equal(t, adapter.JobID(), doc["job_id"])
	assert.Equal(t, "running", doc["status"])
	assert.Equal(t, "incremental", doc["scrape_type"])
	assert.Equal(t, 7.0, doc["processed"])
	assert.Equal(t, 2.0, doc["created"])
	assert.Equal(t, 30.0, doc["elapsed_seconds"])

	other, err := filesystem.NewProgressAdapter(dir, nil)
	require.NoError(t, err)
	assert.NotEqual(t, adapter.JobID(), other.JobID())
}

func TestCancelFlag(t *testing.T) {
	flag := filesystem.NewCancelFlag(t.TempDir())

	assert.False(t, flag.Requested())
	require.NoError(t, flag.Clear(), "clearing a missing flag is fine")

	require.NoError(t, flag.Request())
	assert.True(t, flag.Requested())

	require.NoError(t, flag.Clear())
	assert.False(t, flag.Requested())
}

func TestCancelFlag_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	flag := filesystem.NewCancelFlag(t.TempDir())
	ctx, stop := flag.Watch(context.Background(), 5*time.Millisecond)
	defer stop()

	require.NoError(t, flag.Request())

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not observe the cancel flag")
	}
}

func TestCancelFlag_WatchStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	flag := filesystem.NewCancelFlag(t.TempDir())
	ctx, stop := flag.Watch(context.Background(), time.Hour)
	stop()
	<-ctx.Done()
}

func TestRunLock(t *testing.T) {
	dir := t.TempDir()

	first, err := filesystem.AcquireRunLock(dir)
	require.NoError(t, err)

	_, err = filesystem.AcquireRunLock(dir)
	assert.ErrorIs(t, err, filesystem.ErrRunLocked)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release(), "second release is a no-op")

	again, err := filesystem.AcquireRunLock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
