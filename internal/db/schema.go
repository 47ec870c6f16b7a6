package db

// SchemaSQL is the complete modern schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(): if repository code references a column that
// doesn't exist here, tests fail immediately with "no such column".
//
// # Keeping Schema in Sync
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//  3. Bump the migration count marked as applied for fresh installs
//
// Dates of the auction domain (auction_date, result_date, visit_date) are TEXT
// in YYYY-MM-DD form. Only bookkeeping timestamps use DATETIME.
const SchemaSQL = `
-- Tribunals (jurisdictions, reference data)
CREATE TABLE IF NOT EXISTS tribunals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	region TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Listings (one row per licitor_id)
CREATE TABLE IF NOT EXISTS listings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	licitor_id INTEGER NOT NULL UNIQUE,
	url_path TEXT,
	status TEXT NOT NULL CHECK(status IN ('upcoming', 'past', 'cancelled')) DEFAULT 'upcoming',
	is_historical INTEGER NOT NULL DEFAULT 0,

	property_type TEXT,
	description TEXT,
	surface_m2 REAL,
	energy_rating TEXT,
	occupancy_status TEXT,

	department_code TEXT,
	city TEXT,
	full_address TEXT,
	latitude REAL,
	longitude REAL,
	cadastral_ref TEXT,

	tribunal_id INTEGER,
	tribunal_slug TEXT,
	auction_date TEXT,
	auction_time TEXT,
	mise_a_prix INTEGER,
	case_reference TEXT,
	has_price_reduction TEXT,

	lawyer_name TEXT,
	lawyer_phone TEXT,
	visit_date TEXT,

	price_per_m2_min REAL,
	price_per_m2_avg REAL,
	price_per_m2_max REAL,

	view_count INTEGER,
	favorites_count INTEGER,
	publication_date TEXT,

	first_scraped_at DATETIME NOT NULL,
	last_scraped_at DATETIME NOT NULL,
	detail_scraped INTEGER NOT NULL DEFAULT 0,
	match_pending INTEGER NOT NULL DEFAULT 0,

	result_status TEXT CHECK(result_status IS NULL OR result_status IN ('sold', 'carence', 'non_requise')),
	final_price INTEGER,
	result_date TEXT,

	FOREIGN KEY (tribunal_id) REFERENCES tribunals(id)
);

CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_auction_date ON listings(auction_date);
CREATE INDEX IF NOT EXISTS idx_listings_department ON listings(department_code);
CREATE INDEX IF NOT EXISTS idx_listings_tribunal_slug ON listings(tribunal_slug);

-- Field change ledger (provenance of every merged value)
CREATE TABLE IF NOT EXISTS listing_changes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	listing_id INTEGER NOT NULL,
	scrape_run_id INTEGER,
	field_name TEXT NOT NULL,
	old_value TEXT,
	new_value TEXT,
	changed_at DATETIME NOT NULL,
	FOREIGN KEY (listing_id) REFERENCES listings(id),
	FOREIGN KEY (scrape_run_id) REFERENCES scrape_log(id)
);

CREATE INDEX IF NOT EXISTS idx_listing_changes_listing ON listing_changes(listing_id);

-- Adjudication corrections (at most one per listing)
CREATE TABLE IF NOT EXISTS adjudication_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	listing_id INTEGER NOT NULL UNIQUE,
	result_status TEXT CHECK(result_status IS NULL OR result_status IN ('sold', 'carence', 'non_requise')),
	final_price INTEGER NOT NULL,
	result_date TEXT,
	price_source TEXT NOT NULL CHECK(price_source IN ('manual', 'external', 'estimated')) DEFAULT 'manual',
	notes TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (listing_id) REFERENCES listings(id)
);

-- Alerts (saved filters; set criteria are comma-delimited, NULL = no constraint)
CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	min_price INTEGER,
	max_price INTEGER,
	min_surface REAL,
	max_surface REAL,
	department_codes TEXT,
	regions TEXT,
	property_types TEXT,
	tribunal_slugs TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Alert matches (append-only ledger)
CREATE TABLE IF NOT EXISTS alert_matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id INTEGER NOT NULL,
	listing_id INTEGER NOT NULL,
	matched_at DATETIME NOT NULL,
	is_seen INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (alert_id) REFERENCES alerts(id),
	FOREIGN KEY (listing_id) REFERENCES listings(id),
	UNIQUE(alert_id, listing_id)
);

CREATE INDEX IF NOT EXISTS idx_alert_matches_unseen ON alert_matches(is_seen, matched_at);

-- Scrape log (one row per batch run)
CREATE TABLE IF NOT EXISTS scrape_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	scrape_type TEXT NOT NULL CHECK(scrape_type IN (
		'full_index', 'incremental', 'history',
		'detail_backfill', 'map_backfill', 'surface_backfill'
	)),
	pages_scraped INTEGER NOT NULL DEFAULT 0,
	listings_new INTEGER NOT NULL DEFAULT 0,
	listings_updated INTEGER NOT NULL DEFAULT 0,
	errors INTEGER NOT NULL DEFAULT 0,
	notes TEXT
);
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
