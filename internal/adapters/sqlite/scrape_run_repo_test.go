package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/encheres/internal/adapters/sqlite"
	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/secondary"
)

func TestScrapeRunRepository_Lifecycle(t *testing.T) {
	repo := sqlite.NewScrapeRunRepository(setupTestDB(t))
	ctx := context.Background()

	run, err := repo.Create(ctx, scraperun.TypeFullIndex, "nightly", testNow)
	require.NoError(t, err)
	assert.True(t, run.IsOpen())
	assert.Equal(t, scraperun.TypeFullIndex, run.Type)
	assert.Equal(t, "nightly", run.Notes)
	assert.True(t, run.StartedAt.Equal(testNow))

	for _, o := range []scraperun.Outcome{
		scraperun.OutcomeCreated, scraperun.OutcomeCreated,
		scraperun.OutcomeUpdated, scraperun.OutcomeUnchanged, scraperun.OutcomeError,
	} {
		require.NoError(t, repo.Increment(ctx, run.ID, o))
	}
	require.NoError(t, repo.AddPages(ctx, run.ID, 4))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ListingsNew)
	assert.Equal(t, 1, got.ListingsUpdated)
	assert.Equal(t, 1, got.Errors)
	assert.Equal(t, 4, got.PagesScraped)

	finishedAt := testNow.Add(10 * time.Minute)
	require.NoError(t, repo.Finish(ctx, run.ID, finishedAt, "nightly; unchanged=1"))

	got, err = repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finishedAt))
	assert.Equal(t, "nightly; unchanged=1", got.Notes)

	// Frozen after finish.
	assert.ErrorIs(t, repo.Finish(ctx, run.ID, finishedAt, ""), scraperun.ErrRunFinished)
	assert.ErrorIs(t, repo.Increment(ctx, run.ID, scraperun.OutcomeCreated), scraperun.ErrRunFinished)
	assert.ErrorIs(t, repo.AddPages(ctx, run.ID, 1), scraperun.ErrRunFinished)

	got, err = repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ListingsNew)
}

func TestScrapeRunRepository_Missing(t *testing.T) {
	repo := sqlite.NewScrapeRunRepository(setupTestDB(t))
	ctx := context.Background()

	assert.ErrorIs(t, repo.Finish(ctx, 404, testNow, ""), secondary.ErrNotFound)
	assert.ErrorIs(t, repo.Increment(ctx, 404, scraperun.OutcomeError), secondary.ErrNotFound)
}

func TestScrapeRunRepository_RejectsUnknownType(t *testing.T) {
	repo := sqlite.NewScrapeRunRepository(setupTestDB(t))

	_, err := repo.Create(context.Background(), "weekly", "", testNow)
	assert.Error(t, err)
}

func TestScrapeRunRepository_ListOpen(t *testing.T) {
	repo := sqlite.NewScrapeRunRepository(setupTestDB(t))
	ctx := context.Background()

	old, err := repo.Create(ctx, scraperun.TypeHistory, "", testNow.Add(-8*time.Hour))
	require.NoError(t, err)
	done, err := repo.Create(ctx, scraperun.TypeIncremental, "", testNow.Add(-2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Finish(ctx, done.ID, testNow.Add(-time.Hour), ""))
	recent, err := repo.Create(ctx, scraperun.TypeDetailBackfill, "", testNow)
	require.NoError(t, err)

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, old.ID, open[0].ID)
	assert.Equal(t, recent.ID, open[1].ID)

	latest, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, recent.ID, latest[0].ID)
	assert.Equal(t, done.ID, latest[1].ID)
}
