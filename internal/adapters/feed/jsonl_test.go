package feed_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/encheres/internal/adapters/feed"
	"github.com/example/encheres/internal/core/listing"
)

func TestDecodeJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"licitor_id": 101, "page": "index", "url_path": "/annonce/101.html", "mise_a_prix": 85000, "auction_date": "2025-04-10", "department_code": "75"}`,
		``,
		`{"licitor_id": 102, "page": "detail", "surface_m2": 42.5, "tribunal_slug": "tj-paris", "tribunal_name": "TJ Paris", "unknown_key": 1}`,
		`{"licitor_id": 103, "page": "index", "status": "cancelled"}`,
		`{"licitor_id": 104, "page": "index", "result_status": "sold", "final_price": 120000, "historical": true, "status": "past"}`,
		`{"licitor_id": 105, "page": "gallery"}`,
		`{"licitor_id": 106, "page": "index", "result_status": "withdrawn"}`,
		`{"licitor_id": 107, "page": "index"`,
	}, "\n")

	items, err := feed.DecodeJSONL(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, items, 7)

	first := items[0]
	assert.Equal(t, 1, first.Line)
	require.NoError(t, first.ParseErr)
	assert.Equal(t, int64(101), first.Snapshot.LicitorID)
	assert.Equal(t, listing.PageIndex, first.Snapshot.Page)
	assert.Equal(t, int64(85000), *first.Snapshot.MiseAPrix)
	assert.Equal(t, "2025-04-10", *first.Snapshot.AuctionDate)

	detail := items[1]
	assert.Equal(t, 3, detail.Line, "blank lines keep the numbering")
	require.NoError(t, detail.ParseErr)
	assert.Equal(t, 42.5, *detail.Snapshot.SurfaceM2)
	assert.Equal(t, "TJ Paris", *detail.Snapshot.TribunalName)

	assert.True(t, items[2].Snapshot.Cancelled)

	sold := items[3].Snapshot
	require.NotNil(t, sold)
	assert.Equal(t, listing.ResultSold, *sold.ResultStatus)
	assert.False(t, sold.Cancelled)

	for _, it := range items[4:] {
		assert.Nil(t, it.Snapshot, "line %d", it.Line)
		assert.True(t, errors.Is(it.ParseErr, listing.ErrInvalidRecord), "line %d: %v", it.Line, it.ParseErr)
	}
}

func TestDecodeTribunals(t *testing.T) {
	input := `
tribunals:
  - name: Tribunal Judiciaire de Paris
    slug: tj-paris
    region: Île-de-France
  - name: Tribunal Judiciaire de Nanterre
    slug: tj-nanterre
`
	entries, err := feed.DecodeTribunals(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "tj-paris", entries[0].Slug)
	require.NotNil(t, entries[0].Region)
	assert.Equal(t, "Île-de-France", *entries[0].Region)
	assert.Nil(t, entries[1].Region)

	_, err = feed.DecodeTribunals(strings.NewReader("tribunals:\n  - name: Orphan\n"))
	assert.Error(t, err)

	_, err = feed.DecodeTribunals(strings.NewReader("tribunals:\n  - name: X\n    slug: x\n    court: y\n"))
	assert.Error(t, err, "unknown keys are rejected")

	entries, err = feed.DecodeTribunals(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
