// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/encheres/internal/ports/secondary"
)

// ListingChangeRepository implements secondary.ListingChangeRepository with SQLite.
type ListingChangeRepository struct {
	db *sql.DB
}

// NewListingChangeRepository creates a new SQLite change ledger repository.
func NewListingChangeRepository(db *sql.DB) *ListingChangeRepository {
	return &ListingChangeRepository{db: db}
}

// Append stores the changed fields of one merge in a single transaction.
func (r *ListingChangeRepository) Append(ctx context.Context, records []*secondary.ListingChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin change ledger transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listing_changes (listing_id, scrape_run_id, field_name, old_value, new_value, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare change insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range records {
		if _, err := stmt.ExecContext(ctx,
			c.ListingID, c.ScrapeRunID, c.FieldName, c.OldValue, c.NewValue, c.ChangedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to append change for %s: %w", c.FieldName, err)
		}
	}

	return tx.Commit()
}

// ListByListing returns the changes of a listing, newest first.
func (r *ListingChangeRepository) ListByListing(ctx context.Context, listingID int64, limit int) ([]*secondary.ListingChangeRecord, error) {
	query := `SELECT id, listing_id, scrape_run_id, field_name, old_value, new_value, changed_at
		FROM listing_changes WHERE listing_id = ? ORDER BY changed_at DESC, id DESC`
	args := []any{listingID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var out []*secondary.ListingChangeRecord
	for rows.Next() {
		var (
			c  secondary.ListingChangeRecord
			at timestamp
		)
		if err := rows.Scan(&c.ID, &c.ListingID, &c.ScrapeRunID, &c.FieldName, &c.OldValue, &c.NewValue, &at); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		c.ChangedAt = at.Time
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Ensure ListingChangeRepository implements the interface
var _ secondary.ListingChangeRepository = (*ListingChangeRepository)(nil)
