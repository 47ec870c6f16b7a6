// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/encheres/internal/ports/secondary"
)

// AdjudicationRepository implements secondary.AdjudicationRepository with SQLite.
type AdjudicationRepository struct {
	db *sql.DB
}

// NewAdjudicationRepository creates a new SQLite adjudication repository.
func NewAdjudicationRepository(db *sql.DB) *AdjudicationRepository {
	return &AdjudicationRepository{db: db}
}

// Upsert stores the single correction of a listing.
func (r *AdjudicationRepository) Upsert(ctx context.Context, rec *secondary.AdjudicationRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO adjudication_results (listing_id, result_status, final_price, result_date, price_source, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(listing_id) DO UPDATE SET
			result_status = excluded.result_status,
			final_price = excluded.final_price,
			result_date = excluded.result_date,
			price_source = excluded.price_source,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		rec.ListingID, rec.ResultStatus, rec.FinalPrice, rec.ResultDate,
		string(rec.PriceSource), rec.Notes, rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert adjudication result: %w", err)
	}
	return nil
}

// GetByListingID retrieves the correction for a listing.
func (r *AdjudicationRepository) GetByListingID(ctx context.Context, listingID int64) (*secondary.AdjudicationRecord, error) {
	var (
		rec     secondary.AdjudicationRecord
		source  string
		updated timestamp
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, listing_id, result_status, final_price, result_date, price_source, notes, updated_at
		FROM adjudication_results WHERE listing_id = ?`, listingID,
	).Scan(&rec.ID, &rec.ListingID, &rec.ResultStatus, &rec.FinalPrice, &rec.ResultDate, &source, &rec.Notes, &updated)
	if err == sql.ErrNoRows {
		return nil, notFound("adjudication result for listing", listingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjudication result: %w", err)
	}
	rec.PriceSource = secondary.PriceSource(source)
	rec.UpdatedAt = updated.Time
	return &rec, nil
}

// Ensure AdjudicationRepository implements the interface
var _ secondary.AdjudicationRepository = (*AdjudicationRepository)(nil)
