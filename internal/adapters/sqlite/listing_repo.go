// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/secondary"
)

// ListingRepository implements secondary.ListingRepository with SQLite.
type ListingRepository struct {
	db *sql.DB
}

// NewListingRepository creates a new SQLite listing repository.
func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// attributeColumns are written and read in this order for every listing.
var attributeColumns = []string{
	"url_path", "tribunal_slug",
	"property_type", "description", "surface_m2", "energy_rating", "occupancy_status",
	"department_code", "city", "full_address", "latitude", "longitude", "cadastral_ref",
	"auction_date", "auction_time", "mise_a_prix", "case_reference", "has_price_reduction",
	"lawyer_name", "lawyer_phone", "visit_date",
	"price_per_m2_min", "price_per_m2_avg", "price_per_m2_max",
	"view_count", "favorites_count", "publication_date",
	"result_status", "final_price", "result_date",
}

var bookkeepingColumns = []string{
	"status", "is_historical", "tribunal_id", "first_scraped_at", "last_scraped_at", "detail_scraped", "match_pending",
}

var listingSelect = "SELECT id, licitor_id, " +
	strings.Join(attributeColumns, ", ") + ", " +
	strings.Join(bookkeepingColumns, ", ") + " FROM listings"

// attributeRefs returns pointers in attributeColumns order. They serve both
// as Scan destinations and, dereferenced, as statement arguments.
func attributeRefs(a *listing.Attributes) []any {
	return []any{
		&a.URLPath, &a.TribunalSlug,
		&a.PropertyType, &a.Description, &a.SurfaceM2, &a.EnergyRating, &a.OccupancyStatus,
		&a.DepartmentCode, &a.City, &a.FullAddress, &a.Latitude, &a.Longitude, &a.CadastralRef,
		&a.AuctionDate, &a.AuctionTime, &a.MiseAPrix, &a.CaseReference, &a.HasPriceReduction,
		&a.LawyerName, &a.LawyerPhone, &a.VisitDate,
		&a.PricePerM2Min, &a.PricePerM2Avg, &a.PricePerM2Max,
		&a.ViewCount, &a.FavoritesCount, &a.PublicationDate,
		&a.ResultStatus, &a.FinalPrice, &a.ResultDate,
	}
}

func attributeArgs(a *listing.Attributes) []any {
	return []any{
		a.URLPath, a.TribunalSlug,
		a.PropertyType, a.Description, a.SurfaceM2, a.EnergyRating, a.OccupancyStatus,
		a.DepartmentCode, a.City, a.FullAddress, a.Latitude, a.Longitude, a.CadastralRef,
		a.AuctionDate, a.AuctionTime, a.MiseAPrix, a.CaseReference, a.HasPriceReduction,
		a.LawyerName, a.LawyerPhone, a.VisitDate,
		a.PricePerM2Min, a.PricePerM2Avg, a.PricePerM2Max,
		a.ViewCount, a.FavoritesCount, a.PublicationDate,
		a.ResultStatus, a.FinalPrice, a.ResultDate,
	}
}

func bookkeepingArgs(l *listing.Listing) []any {
	return []any{
		string(l.Status), boolToInt(l.IsHistorical), l.TribunalID,
		l.FirstScrapedAt.UTC(), l.LastScrapedAt.UTC(), boolToInt(l.DetailScraped),
		boolToInt(l.MatchPending),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*listing.Listing, error) {
	var (
		l          listing.Listing
		status     string
		historical int
		detail     int
		pending    int
		first      timestamp
		last       timestamp
	)
	dest := []any{&l.ID, &l.LicitorID}
	dest = append(dest, attributeRefs(&l.Attributes)...)
	dest = append(dest, &status, &historical, &l.TribunalID, &first, &last, &detail, &pending)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	st, err := listing.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("listing %d: %w", l.LicitorID, err)
	}
	l.Status = st
	l.IsHistorical = historical != 0
	l.DetailScraped = detail != 0
	l.MatchPending = pending != 0
	l.FirstScrapedAt = first.Time
	l.LastScrapedAt = last.Time
	return &l, nil
}

// GetByLicitorID retrieves a listing by its external identifier.
func (r *ListingRepository) GetByLicitorID(ctx context.Context, licitorID int64) (*listing.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, listingSelect+" WHERE licitor_id = ?", licitorID))
	if err == sql.ErrNoRows {
		return nil, notFound("listing", licitorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// Create inserts a new listing.
func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) (int64, error) {
	cols := append([]string{"licitor_id"}, attributeColumns...)
	cols = append(cols, bookkeepingColumns...)

	args := []any{l.LicitorID}
	args = append(args, attributeArgs(&l.Attributes)...)
	args = append(args, bookkeepingArgs(l)...)

	query := fmt.Sprintf("INSERT INTO listings (%s) VALUES (%s)",
		strings.Join(cols, ", "), placeholders(len(cols)))

	res, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("listing %d: %w", l.LicitorID, secondary.ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create listing: %w", err)
	}
	return res.LastInsertId()
}

// Update writes every column of an existing listing.
func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) error {
	cols := append(append([]string{}, attributeColumns...), bookkeepingColumns...)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}

	args := attributeArgs(&l.Attributes)
	args = append(args, bookkeepingArgs(l)...)
	args = append(args, l.ID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE listings SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return expectOne(res, "listing", l.ID)
}

// ClearMatchPending marks a listing as evaluated against the active alerts.
func (r *ListingRepository) ClearMatchPending(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE listings SET match_pending = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to clear match_pending: %w", err)
	}
	return expectOne(res, "listing", id)
}

// UpdateStatus writes the lifecycle columns only.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id int64, status listing.Status, historical bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE listings SET status = ?, is_historical = ? WHERE id = ?",
		string(status), boolToInt(historical), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	return expectOne(res, "listing", id)
}

// List retrieves listings matching the filters.
func (r *ListingRepository) List(ctx context.Context, filters secondary.ListingFilters) ([]*listing.Listing, error) {
	query := listingSelect + " WHERE 1=1"
	var args []any

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filters.Status))
	}
	if filters.ExcludeHistory {
		query += " AND is_historical = 0"
	}
	query += " ORDER BY id"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var out []*listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LinkTribunal resolves deferred tribunal references.
func (r *ListingRepository) LinkTribunal(ctx context.Context, slug string, tribunalID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE listings SET tribunal_id = ? WHERE tribunal_slug = ? AND tribunal_id IS NULL",
		tribunalID, slug,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to link tribunal: %w", err)
	}
	return res.RowsAffected()
}

var candidateQueries = map[secondary.CandidateKind]string{
	secondary.CandidateDetail: `SELECT licitor_id, url_path FROM listings
		WHERE detail_scraped = 0 AND url_path IS NOT NULL
		ORDER BY auction_date IS NULL, auction_date, licitor_id`,
	secondary.CandidateMap: `SELECT licitor_id, url_path FROM listings
		WHERE result_status IS NOT NULL AND (mise_a_prix IS NULL OR mise_a_prix = 0) AND url_path IS NOT NULL
		ORDER BY auction_date DESC, licitor_id`,
	secondary.CandidateSurface: `SELECT licitor_id, url_path FROM listings
		WHERE result_status IS NOT NULL AND (surface_m2 IS NULL OR surface_m2 = 0) AND url_path IS NOT NULL
		ORDER BY auction_date DESC, licitor_id`,
}

// Candidates lists listings the external fetcher should revisit.
func (r *ListingRepository) Candidates(ctx context.Context, kind secondary.CandidateKind, limit int) ([]*secondary.Candidate, error) {
	query, ok := candidateQueries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown candidate kind %q", kind)
	}
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var out []*secondary.Candidate
	for rows.Next() {
		c := &secondary.Candidate{}
		if err := rows.Scan(&c.LicitorID, &c.URLPath); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ping implements secondary.StoreHealth.
func (r *ListingRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func expectOne(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

// Ensure ListingRepository implements the interfaces
var (
	_ secondary.ListingRepository = (*ListingRepository)(nil)
	_ secondary.StoreHealth       = (*ListingRepository)(nil)
)
