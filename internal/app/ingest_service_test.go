package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

func TestUpsert_IndexThenDetailThenIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.ingest.Upsert(ctx, indexSnap(42, "75", 100000, "2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeCreated, res.Outcome)
	assert.Positive(t, res.ListingID)
	assert.Equal(t, listing.StatusUpcoming, res.Transition.Status)

	detail := listing.Snapshot{LicitorID: 42, Page: listing.PageDetail}
	detail.SurfaceM2 = f64p(85)
	detail.Description = strp("Appartement de trois pièces")
	res, err = env.ingest.Upsert(ctx, detail)
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeUpdated, res.Outcome)
	assert.Len(t, res.Changes, 2)

	// A new price on the index page is taken; detail-only data is kept.
	res, err = env.ingest.Upsert(ctx, indexSnap(42, "75", 200000, "2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeUpdated, res.Outcome)
	assert.Equal(t, []listing.FieldChange{{Field: "mise_a_prix", Old: "100000", New: "200000"}}, res.Changes)

	stored, err := env.listingRepo.GetByLicitorID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), *stored.MiseAPrix)
	assert.Equal(t, 85.0, *stored.SurfaceM2)
	assert.True(t, stored.DetailScraped)

	res, err = env.ingest.Upsert(ctx, indexSnap(42, "75", 200000, "2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeUnchanged, res.Outcome)

	changes, err := env.history.ListChanges(ctx, 42, 0)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestUpsert_PastAuctionDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.ingest.Upsert(ctx, indexSnap(2001, "69", 50000, "2025-02-27"))
	require.NoError(t, err)
	assert.Equal(t, listing.StatusPast, res.Transition.Status)

	stored, err := env.listingRepo.GetByLicitorID(ctx, 2001)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusPast, stored.Status)
	assert.True(t, stored.IsHistorical)

	// An auction held today is still upcoming.
	res, err = env.ingest.Upsert(ctx, indexSnap(2002, "69", 50000, "2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, listing.StatusUpcoming, res.Transition.Status)
}

func TestUpsert_ResultMovesToPast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingest.Upsert(ctx, indexSnap(3001, "13", 80000, "2025-05-02"))
	require.NoError(t, err)

	snap := indexSnap(3001, "13", 80000, "2025-05-02")
	sold := listing.ResultSold
	snap.ResultStatus = &sold
	snap.FinalPrice = i64p(120000)
	res, err := env.ingest.Upsert(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeUpdated, res.Outcome)
	assert.Equal(t, listing.StatusPast, res.Transition.Status)
	assert.Equal(t, 1, env.observer.transitions[listing.StatusPast])

	changes, err := env.history.ListChanges(ctx, 3001, 0)
	require.NoError(t, err)
	fields := make(map[string]bool)
	for _, c := range changes {
		fields[c.FieldName] = true
	}
	assert.True(t, fields["status"])
	assert.True(t, fields["result_status"])
	assert.True(t, fields["final_price"])
}

func TestUpsert_CancelledIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	snap := indexSnap(4001, "33", 60000, "2025-04-01")
	snap.Cancelled = true
	res, err := env.ingest.Upsert(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusCancelled, res.Transition.Status)

	again := indexSnap(4001, "33", 60000, "2025-04-01")
	again.City = strp("Bordeaux")
	res, err = env.ingest.Upsert(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusCancelled, res.Transition.Status)

	stored, err := env.listingRepo.GetByLicitorID(ctx, 4001)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusCancelled, stored.Status)
	assert.True(t, stored.IsHistorical)
}

func TestUpsert_RejectsInvalidRecord(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ingest.Upsert(context.Background(), listing.Snapshot{LicitorID: 0, Page: listing.PageIndex})
	require.Error(t, err)
	assert.True(t, errors.Is(err, listing.ErrInvalidRecord))

	bad := indexSnap(5001, "75", 1000, "10/04/2025")
	_, err = env.ingest.Upsert(context.Background(), bad)
	assert.True(t, errors.Is(err, listing.ErrInvalidRecord))
}

func TestUpsert_MatchesAlertsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name: "Paris under 150k",
		Criteria: alert.Criteria{
			MaxPrice:        i64p(150000),
			DepartmentCodes: alert.NewSet("75"),
		},
	})
	require.NoError(t, err)

	res, err := env.ingest.Upsert(ctx, indexSnap(6001, "75", 100000, "2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, res.MatchedAlerts)

	detail := listing.Snapshot{LicitorID: 6001, Page: listing.PageDetail}
	detail.SurfaceM2 = f64p(40)
	res, err = env.ingest.Upsert(ctx, detail)
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeUpdated, res.Outcome)
	assert.Empty(t, res.MatchedAlerts)

	res, err = env.ingest.Upsert(ctx, indexSnap(6002, "92", 100000, "2025-04-10"))
	require.NoError(t, err)
	assert.Empty(t, res.MatchedAlerts)

	matches, err := env.matches.ListMatches(ctx, secondary.MatchFilters{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(6001), matches[0].LicitorID)

	n, err := env.matches.MarkSeen(ctx, []int64{matches[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	matches, err = env.matches.ListMatches(ctx, secondary.MatchFilters{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestUpsert_MatchSurvivesListingLeavingCriteria(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name: "Petite couronne",
		Criteria: alert.Criteria{
			MinPrice:        i64p(50000),
			MaxPrice:        i64p(150000),
			DepartmentCodes: alert.NewSet("75", "92"),
		},
	})
	require.NoError(t, err)

	res, err := env.ingest.Upsert(ctx, indexSnap(42, "75", 100000, "2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, res.MatchedAlerts)

	res, err = env.ingest.Upsert(ctx, indexSnap(42, "75", 200000, "2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeUpdated, res.Outcome)
	assert.Equal(t, []listing.FieldChange{{Field: "mise_a_prix", Old: "100000", New: "200000"}}, res.Changes)
	assert.Empty(t, res.MatchedAlerts)

	matches, err := env.matches.ListMatches(ctx, secondary.MatchFilters{IncludeSeen: true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, a.ID, matches[0].AlertID)
	assert.Equal(t, int64(42), matches[0].LicitorID)
}

func TestUpsert_RetriesMatchingAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name:     "Under 150k",
		Criteria: alert.Criteria{MinPrice: i64p(50000), MaxPrice: i64p(150000)},
	})
	require.NoError(t, err)

	_, err = env.ingest.Upsert(ctx, indexSnap(42, "75", 300000, "2025-04-10"))
	require.NoError(t, err)

	_, err = env.db.Exec("ALTER TABLE alert_matches RENAME TO alert_matches_offline")
	require.NoError(t, err)

	res, err := env.ingest.Upsert(ctx, indexSnap(42, "75", 100000, "2025-04-10"))
	require.ErrorIs(t, err, ErrMatchDeferred)
	require.NotNil(t, res)
	assert.Equal(t, scraperun.OutcomeUpdated, res.Outcome)

	stored, err := env.listingRepo.GetByLicitorID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), *stored.MiseAPrix)
	assert.True(t, stored.MatchPending)

	_, err = env.db.Exec("ALTER TABLE alert_matches_offline RENAME TO alert_matches")
	require.NoError(t, err)

	// Same record again: nothing changes, but matching is still owed.
	res, err = env.ingest.Upsert(ctx, indexSnap(42, "75", 100000, "2025-04-10"))
	require.NoError(t, err)
	assert.Equal(t, scraperun.OutcomeUnchanged, res.Outcome)
	assert.Equal(t, []int64{a.ID}, res.MatchedAlerts)

	stored, err = env.listingRepo.GetByLicitorID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, stored.MatchPending)

	res, err = env.ingest.Upsert(ctx, indexSnap(42, "75", 100000, "2025-04-10"))
	require.NoError(t, err)
	assert.Empty(t, res.MatchedAlerts)

	matches, err := env.matches.ListMatches(ctx, secondary.MatchFilters{IncludeSeen: true})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestUpsert_UnknownSurfaceNeverMatchesSurfaceBound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name:     "Large",
		Criteria: alert.Criteria{MinSurface: f64p(80)},
	})
	require.NoError(t, err)

	res, err := env.ingest.Upsert(ctx, indexSnap(7001, "75", 100000, "2025-04-10"))
	require.NoError(t, err)
	assert.Empty(t, res.MatchedAlerts)

	detail := listing.Snapshot{LicitorID: 7001, Page: listing.PageDetail}
	detail.SurfaceM2 = f64p(95)
	res, err = env.ingest.Upsert(ctx, detail)
	require.NoError(t, err)
	assert.Len(t, res.MatchedAlerts, 1)
}

func TestUpsert_RegionFromTribunal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.tribunals.RegisterTribunal(ctx, primary.RegisterTribunalRequest{
		Name:   "Tribunal Judiciaire de Paris",
		Slug:   "tj-paris",
		Region: strp("Île-de-France"),
	})
	require.NoError(t, err)

	_, err = env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name:     "IDF",
		Criteria: alert.Criteria{Regions: alert.NewSet("ÎLE-DE-FRANCE")},
	})
	require.NoError(t, err)

	snap := indexSnap(8001, "75", 100000, "2025-04-10")
	snap.TribunalSlug = strp("tj-paris")
	res, err := env.ingest.Upsert(ctx, snap)
	require.NoError(t, err)
	assert.True(t, res.TribunalLinked)
	assert.Len(t, res.MatchedAlerts, 1)
}

func TestUpsert_DeferredTribunalIsLinkedOnRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	snap := indexSnap(9001, "69", 70000, "2025-04-10")
	snap.TribunalSlug = strp("tj-lyon")
	res, err := env.ingest.Upsert(ctx, snap)
	require.NoError(t, err)
	assert.False(t, res.TribunalLinked)

	stored, err := env.listingRepo.GetByLicitorID(ctx, 9001)
	require.NoError(t, err)
	assert.Nil(t, stored.TribunalID)

	reg, err := env.tribunals.RegisterTribunal(ctx, primary.RegisterTribunalRequest{
		Name:   "Tribunal Judiciaire de Lyon",
		Slug:   "tj-lyon",
		Region: strp("Auvergne-Rhône-Alpes"),
	})
	require.NoError(t, err)
	assert.True(t, reg.Created)
	assert.Equal(t, int64(1), reg.ListingsLinked)

	detail, err := env.listings.GetListing(ctx, 9001)
	require.NoError(t, err)
	require.NotNil(t, detail.Tribunal)
	assert.Equal(t, "tj-lyon", detail.Tribunal.Slug)
}

func TestUpsert_RegistersTribunalFromName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	snap := indexSnap(9101, "92", 70000, "2025-04-10")
	snap.TribunalSlug = strp("tj-nanterre")
	snap.TribunalName = strp("Tribunal Judiciaire de Nanterre")
	res, err := env.ingest.Upsert(ctx, snap)
	require.NoError(t, err)
	assert.True(t, res.TribunalLinked)

	all, err := env.tribunals.ListTribunals(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "tj-nanterre", all[0].Slug)
	assert.Nil(t, all[0].Region)
}

func TestProcessBatch_CountsOutcomes(t *testing.T) {
	env := newTestEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	run, err := env.runs.Begin(ctx, scraperun.TypeIncremental, "")
	require.NoError(t, err)

	_, err = env.ingest.Upsert(ctx, indexSnap(100, "75", 1000, "2025-04-10"))
	require.NoError(t, err)

	items := []primary.IngestItem{
		item(1, indexSnap(100, "75", 1000, "2025-04-10")), // unchanged
		item(2, indexSnap(101, "75", 2000, "2025-04-10")), // created
		{Line: 3, ParseErr: errors.New("unexpected end of JSON input")},
		item(4, indexSnap(102, "75", -5, "2025-04-10")),   // invalid
		item(5, indexSnap(101, "75", 2500, "2025-04-10")), // updated, same worker as line 2
		item(6, indexSnap(103, "13", 3000, "2025-04-11")), // created
	}

	var progressCalls atomic.Int64
	result, err := env.ingest.ProcessBatch(ctx, primary.ProcessBatchRequest{
		RunID:    run.ID,
		Items:    items,
		Workers:  4,
		Progress: func(scraperun.Counters) { progressCalls.Add(1) },
	})
	require.NoError(t, err)
	assert.False(t, result.Cancelled)
	assert.Equal(t, 2, result.ListingsNew)
	assert.Equal(t, 1, result.ListingsUpdated)
	assert.Equal(t, 1, result.Unchanged)
	assert.Equal(t, 2, result.Errors)
	assert.Equal(t, len(items), result.Processed())
	assert.Equal(t, int64(len(items)), progressCalls.Load())

	stored, err := env.listingRepo.GetByLicitorID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), *stored.MiseAPrix, "later record of a licitor_id wins")

	persisted, err := env.runs.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, persisted.ListingsNew)
	assert.Equal(t, 1, persisted.ListingsUpdated)
	assert.Equal(t, 2, persisted.Errors)

	changes, err := env.history.ListChanges(ctx, 101, 0)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].ScrapeRunID)
	assert.Equal(t, run.ID, *changes[0].ScrapeRunID)
}

func TestProcessBatch_MatchFailureKeepsCommittedOutcome(t *testing.T) {
	env := newTestEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	_, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name:     "Everything",
		Criteria: alert.Criteria{},
	})
	require.NoError(t, err)

	run, err := env.runs.Begin(ctx, scraperun.TypeIncremental, "")
	require.NoError(t, err)

	_, err = env.db.Exec("ALTER TABLE alert_matches RENAME TO alert_matches_offline")
	require.NoError(t, err)

	result, err := env.ingest.ProcessBatch(ctx, primary.ProcessBatchRequest{
		RunID: run.ID,
		Items: []primary.IngestItem{item(1, indexSnap(500, "75", 1000, "2025-04-10"))},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ListingsNew)
	assert.Zero(t, result.Errors)
	assert.Zero(t, result.MatchesCreated)

	stored, err := env.listingRepo.GetByLicitorID(ctx, 500)
	require.NoError(t, err)
	assert.True(t, stored.MatchPending)
}

func TestProcessBatch_CancelledBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	run, err := env.runs.Begin(context.Background(), scraperun.TypeIncremental, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.ingest.ProcessBatch(ctx, primary.ProcessBatchRequest{
		RunID:   run.ID,
		Items:   []primary.IngestItem{item(1, indexSnap(200, "75", 1000, "2025-04-10"))},
		Workers: 2,
	})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Zero(t, result.Processed())

	_, err = env.listingRepo.GetByLicitorID(context.Background(), 200)
	assert.Error(t, err)
}

func TestProcessBatch_StoreUnavailableIsFatal(t *testing.T) {
	env := newTestEnv(t)

	run, err := env.runs.Begin(context.Background(), scraperun.TypeIncremental, "")
	require.NoError(t, err)
	require.NoError(t, env.db.Close())

	_, err = env.ingest.ProcessBatch(context.Background(), primary.ProcessBatchRequest{
		RunID: run.ID,
		Items: []primary.IngestItem{item(1, indexSnap(300, "75", 1000, "2025-04-10"))},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestPartition(t *testing.T) {
	a1 := indexSnap(1, "75", 1, "2025-04-10")
	b := indexSnap(2, "75", 1, "2025-04-10")
	a2 := indexSnap(1, "75", 2, "2025-04-10")
	items := []primary.IngestItem{
		{Line: 1, Snapshot: &a1},
		{Line: 2, ParseErr: errors.New("bad")},
		{Line: 3, Snapshot: &b},
		{Line: 4, Snapshot: &a2},
		{Line: 5, ParseErr: errors.New("bad")},
	}

	groups := partition(items)
	require.Len(t, groups, 4)
	require.Len(t, groups[0], 2)
	assert.Equal(t, 1, groups[0][0].Line)
	assert.Equal(t, 4, groups[0][1].Line)
	assert.Equal(t, 2, groups[1][0].Line)
	assert.Equal(t, 3, groups[2][0].Line)
	assert.Equal(t, 5, groups[3][0].Line)
}
