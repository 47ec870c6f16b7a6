package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/encheres/internal/adapters/sqlite"
	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/ports/secondary"
)

func TestAlertRepository_RoundTrip(t *testing.T) {
	testDB := setupTestDB(t)
	repo := sqlite.NewAlertRepository(testDB)
	ctx := context.Background()

	in := &alert.Alert{
		Name: "Paris + 92",
		Criteria: alert.Criteria{
			MinPrice:        i64p(50000),
			MaxPrice:        i64p(150000),
			MaxSurface:      f64p(80),
			DepartmentCodes: alert.NewSet("75", "92"),
			PropertyTypes:   alert.NewSet("Appartement"),
		},
		IsActive:  true,
		CreatedAt: testNow,
	}

	id, err := repo.Create(ctx, in)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Paris + 92", got.Name)
	assert.Equal(t, int64(50000), *got.Criteria.MinPrice)
	assert.Nil(t, got.Criteria.MinSurface)
	assert.Equal(t, []string{"75", "92"}, got.Criteria.DepartmentCodes.Values())
	assert.True(t, got.Criteria.Regions.IsEmpty())
	assert.True(t, got.IsActive)
	assert.True(t, got.CreatedAt.Equal(testNow))

	var depts, regions *string
	require.NoError(t, testDB.QueryRow("SELECT department_codes, regions FROM alerts WHERE id = ?", id).Scan(&depts, &regions))
	assert.Equal(t, "75,92", *depts)
	assert.Nil(t, regions, "empty set is stored as NULL")
}

func TestAlertRepository_ListAndSetActive(t *testing.T) {
	testDB := setupTestDB(t)
	repo := sqlite.NewAlertRepository(testDB)
	ctx := context.Background()

	a := seedAlert(t, testDB, "a")
	seedAlert(t, testDB, "b")

	require.NoError(t, repo.SetActive(ctx, a, false))

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Name)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, repo.SetActive(ctx, 999, true), secondary.ErrNotFound)
	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, secondary.ErrNotFound)
}

func TestAlertRepository_DefaultsCreatedAt(t *testing.T) {
	repo := sqlite.NewAlertRepository(setupTestDB(t))
	before := time.Now().Add(-time.Second)

	id, err := repo.Create(context.Background(), &alert.Alert{Name: "x", IsActive: true})
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.After(before))
}
