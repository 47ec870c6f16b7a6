package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with development fixtures: a handful of
// tribunals, listings in every lifecycle state, alerts and one finished run.
func SeedFixtures(database *sql.DB) error {
	now := time.Now().UTC()

	tribunals := []struct{ name, slug, region string }{
		{"Tribunal Judiciaire de Paris", "tj-paris", "Île-de-France"},
		{"Tribunal Judiciaire de Nanterre", "tj-nanterre", "Île-de-France"},
		{"Tribunal Judiciaire de Lyon", "tj-lyon", "Auvergne-Rhône-Alpes"},
		{"Tribunal Judiciaire de Marseille", "tj-marseille", "Provence-Alpes-Côte d'Azur"},
	}
	for _, t := range tribunals {
		if _, err := database.Exec(
			"INSERT INTO tribunals (name, slug, region, created_at) VALUES (?, ?, ?, ?)",
			t.name, t.slug, t.region, now,
		); err != nil {
			return fmt.Errorf("seed tribunals: %w", err)
		}
	}

	upcoming := now.AddDate(0, 0, 21).Format("2006-01-02")
	past := now.AddDate(0, 0, -30).Format("2006-01-02")

	listings := []struct {
		licitorID  int64
		slug       string
		dept, city string
		ptype      string
		price      int64
		surface    any
		date       string
		status     string
		historical int
		detail     int
		result     any
		finalPrice any
	}{
		{100001, "tj-paris", "75", "Paris", "Appartement", 180000, 42.5, upcoming, "upcoming", 0, 1, nil, nil},
		{100002, "tj-nanterre", "92", "Courbevoie", "Appartement", 95000, nil, upcoming, "upcoming", 0, 0, nil, nil},
		{100003, "tj-lyon", "69", "Lyon", "Maison", 210000, 118.0, past, "past", 1, 1, "sold", 265000},
		{100004, "tj-marseille", "13", "Marseille", "Local commercial", 60000, 80.0, past, "past", 1, 1, "carence", nil},
		{100005, "tj-paris", "75", "Paris", "Parking", 15000, nil, upcoming, "cancelled", 1, 0, nil, nil},
	}
	for _, l := range listings {
		if _, err := database.Exec(`
			INSERT INTO listings (licitor_id, url_path, status, is_historical, property_type, surface_m2,
				department_code, city, tribunal_id, tribunal_slug, auction_date, mise_a_prix,
				first_scraped_at, last_scraped_at, detail_scraped, result_status, final_price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT id FROM tribunals WHERE slug = ?), ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.licitorID, fmt.Sprintf("/annonce/%d.html", l.licitorID), l.status, l.historical, l.ptype, l.surface,
			l.dept, l.city, l.slug, l.slug, l.date, l.price,
			now, now, l.detail, l.result, l.finalPrice,
		); err != nil {
			return fmt.Errorf("seed listings: %w", err)
		}
	}

	alerts := []struct {
		name            string
		minPrice        any
		maxPrice        any
		departmentCodes any
		propertyTypes   any
	}{
		{"Paris petite couronne", 50000, 200000, "75,92,93,94", nil},
		{"Maisons Rhône", nil, 300000, "69", "Maison"},
	}
	for _, a := range alerts {
		if _, err := database.Exec(
			"INSERT INTO alerts (name, min_price, max_price, department_codes, property_types, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			a.name, a.minPrice, a.maxPrice, a.departmentCodes, a.propertyTypes, now,
		); err != nil {
			return fmt.Errorf("seed alerts: %w", err)
		}
	}

	if _, err := database.Exec(`
		INSERT INTO alert_matches (alert_id, listing_id, matched_at)
		SELECT 1, id, ? FROM listings WHERE licitor_id IN (100001, 100002)`, now,
	); err != nil {
		return fmt.Errorf("seed alert matches: %w", err)
	}

	if _, err := database.Exec(`
		INSERT INTO scrape_log (started_at, finished_at, scrape_type, pages_scraped, listings_new, listings_updated, errors, notes)
		VALUES (?, ?, 'full_index', 3, 5, 0, 0, 'seed')`,
		now.Add(-time.Minute), now,
	); err != nil {
		return fmt.Errorf("seed scrape log: %w", err)
	}

	return nil
}
