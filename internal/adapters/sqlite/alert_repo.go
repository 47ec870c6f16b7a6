// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/ports/secondary"
)

// AlertRepository implements secondary.AlertRepository with SQLite.
// Set criteria are stored as comma-delimited text; NULL means no constraint.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new SQLite alert repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertSelect = `SELECT id, name, min_price, max_price, min_surface, max_surface,
	department_codes, regions, property_types, tribunal_slugs, is_active, created_at FROM alerts`

func encodeSet(s alert.Set) *string {
	if s.IsEmpty() {
		return nil
	}
	v := s.String()
	return &v
}

func decodeSet(s *string) alert.Set {
	if s == nil {
		return alert.Set{}
	}
	return alert.ParseList(*s)
}

func scanAlert(row rowScanner) (*alert.Alert, error) {
	var (
		a                                 alert.Alert
		depts, regions, ptypes, tribunals *string
		active                            int
		created                           timestamp
	)
	err := row.Scan(&a.ID, &a.Name,
		&a.Criteria.MinPrice, &a.Criteria.MaxPrice, &a.Criteria.MinSurface, &a.Criteria.MaxSurface,
		&depts, &regions, &ptypes, &tribunals, &active, &created)
	if err != nil {
		return nil, err
	}
	a.Criteria.DepartmentCodes = decodeSet(depts)
	a.Criteria.Regions = decodeSet(regions)
	a.Criteria.PropertyTypes = decodeSet(ptypes)
	a.Criteria.TribunalSlugs = decodeSet(tribunals)
	a.IsActive = active != 0
	a.CreatedAt = created.Time
	return &a, nil
}

// Create persists a new alert.
func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) (int64, error) {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	c := a.Criteria
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (name, min_price, max_price, min_surface, max_surface,
			department_codes, regions, property_types, tribunal_slugs, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, c.MinPrice, c.MaxPrice, c.MinSurface, c.MaxSurface,
		encodeSet(c.DepartmentCodes), encodeSet(c.Regions), encodeSet(c.PropertyTypes), encodeSet(c.TribunalSlugs),
		boolToInt(a.IsActive), createdAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create alert: %w", err)
	}
	return res.LastInsertId()
}

// GetByID retrieves an alert by ID.
func (r *AlertRepository) GetByID(ctx context.Context, id int64) (*alert.Alert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, alertSelect+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, notFound("alert", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// List retrieves alerts ordered by ID.
func (r *AlertRepository) List(ctx context.Context, activeOnly bool) ([]*alert.Alert, error) {
	query := alertSelect
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var out []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetActive enables or disables an alert.
func (r *AlertRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE alerts SET is_active = ? WHERE id = ?", boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	return expectOne(res, "alert", id)
}

// Ensure AlertRepository implements the interface
var _ secondary.AlertRepository = (*AlertRepository)(nil)
