// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/encheres/internal/ports/secondary"
)

// TribunalRepository implements secondary.TribunalRepository with SQLite.
type TribunalRepository struct {
	db *sql.DB
}

// NewTribunalRepository creates a new SQLite tribunal repository.
func NewTribunalRepository(db *sql.DB) *TribunalRepository {
	return &TribunalRepository{db: db}
}

// Upsert inserts a tribunal or corrects its region.
func (r *TribunalRepository) Upsert(ctx context.Context, t *secondary.TribunalRecord) (int64, bool, error) {
	if existing, err := r.GetBySlug(ctx, t.Slug); err == nil {
		return existing.ID, false, r.correctRegion(ctx, existing.ID, t.Region)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tribunals (name, slug, region, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		t.Name, t.Slug, t.Region,
	)
	if isUniqueViolation(err) {
		// Registered concurrently.
		existing, gerr := r.GetBySlug(ctx, t.Slug)
		if gerr != nil {
			return 0, false, gerr
		}
		return existing.ID, false, r.correctRegion(ctx, existing.ID, t.Region)
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to create tribunal: %w", err)
	}
	id, err := res.LastInsertId()
	return id, true, err
}

func (r *TribunalRepository) correctRegion(ctx context.Context, id int64, region *string) error {
	if region == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE tribunals SET region = ? WHERE id = ?", *region, id); err != nil {
		return fmt.Errorf("failed to update tribunal region: %w", err)
	}
	return nil
}

func (r *TribunalRepository) get(ctx context.Context, where string, arg any) (*secondary.TribunalRecord, error) {
	var (
		t       secondary.TribunalRecord
		created timestamp
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, region, created_at FROM tribunals WHERE "+where, arg,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Region, &created)
	if err == sql.ErrNoRows {
		return nil, notFound("tribunal", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tribunal: %w", err)
	}
	t.CreatedAt = created.Time
	return &t, nil
}

// GetBySlug retrieves a tribunal by slug.
func (r *TribunalRepository) GetBySlug(ctx context.Context, slug string) (*secondary.TribunalRecord, error) {
	return r.get(ctx, "slug = ?", slug)
}

// GetByID retrieves a tribunal by ID.
func (r *TribunalRepository) GetByID(ctx context.Context, id int64) (*secondary.TribunalRecord, error) {
	return r.get(ctx, "id = ?", id)
}

// List retrieves all tribunals ordered by name.
func (r *TribunalRepository) List(ctx context.Context) ([]*secondary.TribunalRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug, region, created_at FROM tribunals ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list tribunals: %w", err)
	}
	defer rows.Close()

	var out []*secondary.TribunalRecord
	for rows.Next() {
		var (
			t       secondary.TribunalRecord
			created timestamp
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Region, &created); err != nil {
			return nil, fmt.Errorf("failed to scan tribunal: %w", err)
		}
		t.CreatedAt = created.Time
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Ensure TribunalRepository implements the interface
var _ secondary.TribunalRepository = (*TribunalRepository)(nil)
