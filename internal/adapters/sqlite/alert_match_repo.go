// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/encheres/internal/ports/secondary"
)

// AlertMatchRepository implements secondary.AlertMatchRepository with SQLite.
type AlertMatchRepository struct {
	db *sql.DB
}

// NewAlertMatchRepository creates a new SQLite alert match repository.
func NewAlertMatchRepository(db *sql.DB) *AlertMatchRepository {
	return &AlertMatchRepository{db: db}
}

// Insert records a match unless the (alert, listing) pair already exists.
func (r *AlertMatchRepository) Insert(ctx context.Context, alertID, listingID int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO alert_matches (alert_id, listing_id, matched_at) VALUES (?, ?, ?)",
		alertID, listingID, at.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List retrieves matches joined with their alert and listing, newest first.
func (r *AlertMatchRepository) List(ctx context.Context, filters secondary.MatchFilters) ([]*secondary.MatchView, error) {
	query := `
		SELECT am.id, am.alert_id, a.name, am.listing_id, l.licitor_id, l.url_path, l.city,
			l.department_code, l.property_type, l.mise_a_prix, l.auction_date, am.matched_at, am.is_seen
		FROM alert_matches am
		JOIN alerts a ON a.id = am.alert_id
		JOIN listings l ON l.id = am.listing_id
		WHERE 1=1`
	var args []any

	if !filters.IncludeSeen {
		query += " AND am.is_seen = 0"
	}
	if filters.AlertID > 0 {
		query += " AND am.alert_id = ?"
		args = append(args, filters.AlertID)
	}
	query += " ORDER BY am.matched_at DESC, am.id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert matches: %w", err)
	}
	defer rows.Close()

	var out []*secondary.MatchView
	for rows.Next() {
		var (
			m       secondary.MatchView
			matched timestamp
			seen    int
		)
		if err := rows.Scan(&m.ID, &m.AlertID, &m.AlertName, &m.ListingID, &m.LicitorID, &m.URLPath, &m.City,
			&m.DepartmentCode, &m.PropertyType, &m.MiseAPrix, &m.AuctionDate, &matched, &seen); err != nil {
			return nil, fmt.Errorf("failed to scan alert match: %w", err)
		}
		m.MatchedAt = matched.Time
		m.IsSeen = seen != 0
		out = append(out, &m)
	}
	return out, rows.Err()
}

// MarkSeen flags matches as surfaced.
func (r *AlertMatchRepository) MarkSeen(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE alert_matches SET is_seen = 1 WHERE is_seen = 0 AND id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark matches seen: %w", err)
	}
	return res.RowsAffected()
}

// Ensure AlertMatchRepository implements the interface
var _ secondary.AlertMatchRepository = (*AlertMatchRepository)(nil)
