// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func strp(s string) *string   { return &s }
func i64p(v int64) *int64     { return &v }
func f64p(v float64) *float64 { return &v }

// seedTribunal inserts a tribunal and returns its ID.
func seedTribunal(t *testing.T, testDB *sql.DB, slug, region string) int64 {
	t.Helper()
	res, err := testDB.Exec("INSERT INTO tribunals (name, slug, region) VALUES (?, ?, ?)", "TJ "+slug, slug, region)
	if err != nil {
		t.Fatalf("failed to seed tribunal: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// seedListing inserts a minimal listing and returns its ID.
func seedListing(t *testing.T, testDB *sql.DB, licitorID int64, mutate func(*listing.Listing)) int64 {
	t.Helper()
	l := &listing.Listing{
		LicitorID:      licitorID,
		Status:         listing.StatusUpcoming,
		FirstScrapedAt: testNow,
		LastScrapedAt:  testNow,
	}
	l.URLPath = strp("/annonce/x.html")
	if mutate != nil {
		mutate(l)
	}
	var result any
	if l.ResultStatus != nil {
		result = string(*l.ResultStatus)
	}
	res, err := testDB.Exec(`
		INSERT INTO listings (licitor_id, url_path, status, is_historical, tribunal_id, tribunal_slug,
			department_code, property_type, mise_a_prix, surface_m2, auction_date,
			first_scraped_at, last_scraped_at, detail_scraped, result_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.LicitorID, l.URLPath, string(l.Status), l.IsHistorical, l.TribunalID, l.TribunalSlug,
		l.DepartmentCode, l.PropertyType, l.MiseAPrix, l.SurfaceM2, l.AuctionDate,
		l.FirstScrapedAt, l.LastScrapedAt, l.DetailScraped, result,
	)
	if err != nil {
		t.Fatalf("failed to seed listing: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// seedAlert inserts an active alert without criteria and returns its ID.
func seedAlert(t *testing.T, testDB *sql.DB, name string) int64 {
	t.Helper()
	res, err := testDB.Exec("INSERT INTO alerts (name) VALUES (?)", name)
	if err != nil {
		t.Fatalf("failed to seed alert: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}
