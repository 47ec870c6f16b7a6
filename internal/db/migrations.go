package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// migrations upgrade databases created before schema_version existed. Fresh
// installs get SchemaSQL and are marked as fully migrated.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "widen_scrape_type_check",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_tribunal_slug_to_listings",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "create_listing_changes_table",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_result_columns_to_adjudication_results",
		Up:      migrationV4,
	},
	{
		Version: 5,
		Name:    "add_match_pending_to_listings",
		Up:      migrationV5,
	},
}

// LatestVersion is the schema version of SchemaSQL.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

const createSchemaVersion = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)
`

// InitSchema brings the database to the latest schema.
func InitSchema(db *sql.DB) error {
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}
	if tableCount > 0 {
		return RunMigrations(db)
	}

	// No schema_version: either a legacy database or a fresh file.
	var legacyCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('listings', 'scrape_log')").Scan(&legacyCount)
	if err != nil {
		return err
	}
	if legacyCount > 0 {
		return RunMigrations(db)
	}

	if _, err := db.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(createSchemaVersion); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return err
		}
	}
	return nil
}

// RunMigrations applies every pending migration, each in its own transaction.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(createSchemaVersion); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("running migration", "version", migration.Version, "name", migration.Name)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	return n > 0, err
}

func migrationV1(tx *sql.Tx) error {
	// Older scrape logs only accepted the index run types.
	var ddl string
	err := tx.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name='scrape_log'").Scan(&ddl)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	var widened int
	if err := tx.QueryRow("SELECT instr(?, 'surface_backfill')", ddl).Scan(&widened); err != nil {
		return err
	}
	if widened > 0 {
		return nil
	}

	_, err = tx.Exec(`
		CREATE TABLE scrape_log_new (
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
		INSERT INTO scrape_log_new
			SELECT id, started_at, finished_at, scrape_type,
				COALESCE(pages_scraped, 0), COALESCE(listings_new, 0),
				COALESCE(listings_updated, 0), COALESCE(errors, 0), notes
			FROM scrape_log;
		DROP TABLE scrape_log;
		ALTER TABLE scrape_log_new RENAME TO scrape_log;
	`)
	if err != nil {
		return fmt.Errorf("failed to rebuild scrape_log: %w", err)
	}
	return nil
}

func migrationV2(tx *sql.Tx) error {
	exists, err := columnExists(tx, "listings", "tribunal_slug")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := tx.Exec("ALTER TABLE listings ADD COLUMN tribunal_slug TEXT"); err != nil {
			return fmt.Errorf("failed to add tribunal_slug column: %w", err)
		}
	}
	// Backfill from the linked tribunal where one is set.
	_, err = tx.Exec(`
		UPDATE listings SET tribunal_slug = (SELECT slug FROM tribunals WHERE tribunals.id = listings.tribunal_id)
		WHERE tribunal_slug IS NULL AND tribunal_id IS NOT NULL
	`)
	if err != nil {
		return fmt.Errorf("failed to backfill tribunal_slug: %w", err)
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_listings_tribunal_slug ON listings(tribunal_slug)")
	return err
}

func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	if err != nil {
		return fmt.Errorf("failed to create listing_changes: %w", err)
	}
	return nil
}

func migrationV4(tx *sql.Tx) error {
	columns := []struct{ name, ddl string }{
		{"result_status", "ALTER TABLE adjudication_results ADD COLUMN result_status TEXT CHECK(result_status IS NULL OR result_status IN ('sold', 'carence', 'non_requise'))"},
		{"result_date", "ALTER TABLE adjudication_results ADD COLUMN result_date TEXT"},
		{"updated_at", "ALTER TABLE adjudication_results ADD COLUMN updated_at DATETIME"},
	}
	for _, c := range columns {
		exists, err := columnExists(tx, "adjudication_results", c.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := tx.Exec(c.ddl); err != nil {
			return fmt.Errorf("failed to add %s column: %w", c.name, err)
		}
	}
	return nil
}

func migrationV5(tx *sql.Tx) error {
	exists, err := columnExists(tx, "listings", "match_pending")
	if err != nil || exists {
		return err
	}
	if _, err := tx.Exec("ALTER TABLE listings ADD COLUMN match_pending INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("failed to add match_pending column: %w", err)
	}
	return nil
}
