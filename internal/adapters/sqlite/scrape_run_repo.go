// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/secondary"
)

// ScrapeRunRepository implements secondary.ScrapeRunRepository over scrape_log.
type ScrapeRunRepository struct {
	db *sql.DB
}

// NewScrapeRunRepository creates a new SQLite scrape log repository.
func NewScrapeRunRepository(db *sql.DB) *ScrapeRunRepository {
	return &ScrapeRunRepository{db: db}
}

const runSelect = `SELECT id, scrape_type, started_at, finished_at, pages_scraped,
	listings_new, listings_updated, errors, notes FROM scrape_log`

// counterColumns maps persisted outcomes to their column. Unchanged
// outcomes have no column.
var counterColumns = map[scraperun.Outcome]string{
	scraperun.OutcomeCreated: "listings_new",
	scraperun.OutcomeUpdated: "listings_updated",
	scraperun.OutcomeError:   "errors",
}

func scanRun(row rowScanner) (*scraperun.Run, error) {
	var (
		run      scraperun.Run
		typ      string
		started  timestamp
		finished timestamp
		notes    sql.NullString
	)
	err := row.Scan(&run.ID, &typ, &started, &finished, &run.PagesScraped,
		&run.ListingsNew, &run.ListingsUpdated, &run.Errors, &notes)
	if err != nil {
		return nil, err
	}
	run.Type = scraperun.Type(typ)
	run.StartedAt = started.Time
	run.FinishedAt = finished.ptr()
	run.Notes = notes.String
	return &run, nil
}

// Create opens a run.
func (r *ScrapeRunRepository) Create(ctx context.Context, typ scraperun.Type, notes string, startedAt time.Time) (*scraperun.Run, error) {
	var n *string
	if notes != "" {
		n = &notes
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO scrape_log (scrape_type, started_at, notes) VALUES (?, ?, ?)",
		string(typ), startedAt.UTC(), n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrape run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a run.
func (r *ScrapeRunRepository) GetByID(ctx context.Context, id int64) (*scraperun.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, runSelect+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, notFound("scrape run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scrape run: %w", err)
	}
	return run, nil
}

// Increment adds one to the counter of an outcome on an open run.
func (r *ScrapeRunRepository) Increment(ctx context.Context, id int64, outcome scraperun.Outcome) error {
	col, ok := counterColumns[outcome]
	if !ok {
		return nil
	}
	return r.add(ctx, id, col, 1)
}

// AddPages adds to the pages_scraped counter of an open run.
func (r *ScrapeRunRepository) AddPages(ctx context.Context, id int64, n int) error {
	if n == 0 {
		return nil
	}
	return r.add(ctx, id, "pages_scraped", n)
}

func (r *ScrapeRunRepository) add(ctx context.Context, id int64, col string, n int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE scrape_log SET "+col+" = "+col+" + ? WHERE id = ? AND finished_at IS NULL", n, id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", col, err)
	}
	return r.openRowAffected(ctx, res, id)
}

// Finish freezes the run. Only the first call succeeds.
func (r *ScrapeRunRepository) Finish(ctx context.Context, id int64, finishedAt time.Time, notes string) error {
	var n *string
	if notes != "" {
		n = &notes
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE scrape_log SET finished_at = ?, notes = ? WHERE id = ? AND finished_at IS NULL",
		finishedAt.UTC(), n, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish scrape run: %w", err)
	}
	return r.openRowAffected(ctx, res, id)
}

// openRowAffected distinguishes a finished run from a missing one when a
// guarded update touched nothing.
func (r *ScrapeRunRepository) openRowAffected(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	run, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return scraperun.CanRecord(run).Error()
}

// List retrieves the most recent runs first.
func (r *ScrapeRunRepository) List(ctx context.Context, limit int) ([]*scraperun.Run, error) {
	query := runSelect + " ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// ListOpen retrieves unfinished runs, oldest first.
func (r *ScrapeRunRepository) ListOpen(ctx context.Context) ([]*scraperun.Run, error) {
	return r.list(ctx, runSelect+" WHERE finished_at IS NULL ORDER BY started_at, id")
}

func (r *ScrapeRunRepository) list(ctx context.Context, query string, args ...any) ([]*scraperun.Run, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape runs: %w", err)
	}
	defer rows.Close()

	var out []*scraperun.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrape run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Ensure ScrapeRunRepository implements the interface
var _ secondary.ScrapeRunRepository = (*ScrapeRunRepository)(nil)
