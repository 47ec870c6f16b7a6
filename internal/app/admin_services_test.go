package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

func TestAlertService_CreateValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{Name: "  "})
	assert.Error(t, err)

	_, err = env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name:     "inverted",
		Criteria: alert.Criteria{MinPrice: i64p(200), MaxPrice: i64p(100)},
	})
	assert.True(t, errors.Is(err, alert.ErrInvalidCriteria))

	a, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name:     " Houses ",
		Criteria: alert.Criteria{PropertyTypes: alert.NewSet("Maison")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Houses", a.Name)
	assert.True(t, a.IsActive)

	got, err := env.alerts.GetAlert(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Criteria.PropertyTypes.Contains("maison"))
}

func TestAlertService_RematchAndDisable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingest.Upsert(ctx, indexSnap(1, "75", 90000, "2025-04-10"))
	require.NoError(t, err)
	_, err = env.ingest.Upsert(ctx, indexSnap(2, "75", 300000, "2025-04-10"))
	require.NoError(t, err)
	_, err = env.ingest.Upsert(ctx, indexSnap(3, "75", 80000, "2025-01-10")) // past
	require.NoError(t, err)

	a, err := env.alerts.CreateAlert(ctx, primary.CreateAlertRequest{
		Name:     "cheap",
		Criteria: alert.Criteria{MaxPrice: i64p(100000)},
	})
	require.NoError(t, err)

	resp, err := env.alerts.Rematch(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Evaluated)
	assert.Equal(t, 1, resp.MatchesCreated)

	resp, err = env.alerts.Rematch(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, resp.MatchesCreated)

	require.NoError(t, env.alerts.SetAlertActive(ctx, a.ID, false))
	active, err := env.alerts.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = env.alerts.Rematch(ctx, a.ID)
	assert.Error(t, err)

	res, err := env.ingest.Upsert(ctx, indexSnap(4, "75", 50000, "2025-04-10"))
	require.NoError(t, err)
	assert.Empty(t, res.MatchedAlerts, "disabled alerts are not evaluated")
}

func TestTribunalService_RegisterCorrectsRegion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.tribunals.RegisterTribunal(ctx, primary.RegisterTribunalRequest{
		Name: "Tribunal Judiciaire de Marseille",
		Slug: "tj-marseille",
	})
	require.NoError(t, err)
	assert.True(t, first.Created)

	_, err = env.ingest.Upsert(ctx, func() listing.Snapshot {
		s := indexSnap(50, "13", 1000, "2025-04-10")
		s.TribunalSlug = strp("tj-marseille")
		return s
	}())
	require.NoError(t, err)

	second, err := env.tribunals.RegisterTribunal(ctx, primary.RegisterTribunalRequest{
		Name:   "Tribunal Judiciaire de Marseille",
		Slug:   "tj-marseille",
		Region: strp("Provence-Alpes-Côte d'Azur"),
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.TribunalID, second.TribunalID)

	// The resolver cache was invalidated by the correction.
	detail, err := env.listings.GetListing(ctx, 50)
	require.NoError(t, err)
	require.NotNil(t, detail.Tribunal)
	require.NotNil(t, detail.Tribunal.Region)
	assert.Equal(t, "Provence-Alpes-Côte d'Azur", *detail.Tribunal.Region)

	_, err = env.tribunals.RegisterTribunal(ctx, primary.RegisterTribunalRequest{Name: "x"})
	assert.True(t, errors.Is(err, ErrInvalidTribunal))
}

func TestTribunalService_ImportAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.tribunals.ImportTribunals(ctx, []primary.RegisterTribunalRequest{
		{Name: "Tribunal Judiciaire de Paris", Slug: "tj-paris", Region: strp("Île-de-France")},
		{Name: "Tribunal Judiciaire de Bordeaux", Slug: "tj-bordeaux", Region: strp("Nouvelle-Aquitaine")},
		{Name: "Tribunal Judiciaire de Paris", Slug: "tj-paris"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Created)
	assert.Equal(t, 1, resp.Updated)

	found, err := env.tribunals.SearchTribunals(ctx, "bordx", 5)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "tj-bordeaux", found[0].Slug)

	all, err := env.tribunals.SearchTribunals(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListingService_AdvanceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingest.Upsert(ctx, indexSnap(70, "75", 1000, "2025-03-02"))
	require.NoError(t, err)
	_, err = env.ingest.Upsert(ctx, indexSnap(71, "75", 1000, "2025-03-20"))
	require.NoError(t, err)

	env.clock.Set(testStart.Add(48 * time.Hour))
	resp, err := env.listings.AdvanceLifecycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Evaluated)
	assert.Equal(t, 1, resp.Transitions[listing.StatusPast])

	detail, err := env.listings.GetListing(ctx, 70)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusPast, detail.Listing.Status)
	assert.True(t, detail.Listing.IsHistorical)

	changes, err := env.history.ListChanges(ctx, 70, 1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "status", changes[0].FieldName)

	// Idempotent: a second sweep finds nothing to do.
	resp, err = env.listings.AdvanceLifecycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Evaluated)
	assert.Empty(t, resp.Transitions)
}

func TestListingService_Candidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingest.Upsert(ctx, indexSnap(80, "75", 1000, "2025-04-10"))
	require.NoError(t, err)

	got, err := env.listings.Candidates(ctx, secondary.CandidateDetail, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(80), got[0].LicitorID)

	_, err = env.listings.Candidates(ctx, "photos", 10)
	assert.Error(t, err)
}

func TestAdjudication_OverridesEffectiveResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	snap := indexSnap(90, "75", 1000, "2025-02-10")
	sold := listing.ResultSold
	snap.ResultStatus = &sold
	snap.FinalPrice = i64p(150000)
	_, err := env.ingest.Upsert(ctx, snap)
	require.NoError(t, err)

	detail, err := env.listings.GetListing(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, "scraped", detail.Effective.Source)
	assert.Equal(t, int64(150000), *detail.Effective.FinalPrice)

	rec, err := env.adjudicate.SetAdjudication(ctx, primary.SetAdjudicationRequest{
		LicitorID:   90,
		FinalPrice:  162000,
		PriceSource: "external",
		ResultDate:  "2025-02-10",
		Notes:       "greffe",
	})
	require.NoError(t, err)
	assert.Equal(t, secondary.PriceSourceExternal, rec.PriceSource)

	detail, err = env.listings.GetListing(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, "external", detail.Effective.Source)
	assert.Equal(t, int64(162000), *detail.Effective.FinalPrice)
	assert.Equal(t, listing.ResultSold, *detail.Effective.Status)
	// Scraped columns are untouched.
	assert.Equal(t, int64(150000), *detail.Listing.FinalPrice)

	_, err = env.adjudicate.SetAdjudication(ctx, primary.SetAdjudicationRequest{LicitorID: 90, FinalPrice: 1, PriceSource: "guess"})
	assert.True(t, errors.Is(err, listing.ErrInvalidRecord))

	_, err = env.adjudicate.SetAdjudication(ctx, primary.SetAdjudicationRequest{LicitorID: 404, FinalPrice: 1})
	assert.True(t, errors.Is(err, secondary.ErrNotFound))
}
