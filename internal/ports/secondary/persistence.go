// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/core/scraperun"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert collides with a unique key.
	ErrConflict = errors.New("unique constraint conflict")
)

// StoreHealth reports whether the persistence layer is reachable.
type StoreHealth interface {
	Ping(ctx context.Context) error
}

// TribunalRepository defines the secondary port for tribunal persistence.
type TribunalRepository interface {
	// Upsert inserts a tribunal, or corrects the region of the existing
	// tribunal with the same slug. Names are never changed.
	Upsert(ctx context.Context, tribunal *TribunalRecord) (id int64, created bool, err error)

	// GetBySlug retrieves a tribunal by slug.
	GetBySlug(ctx context.Context, slug string) (*TribunalRecord, error)

	// GetByID retrieves a tribunal by ID.
	GetByID(ctx context.Context, id int64) (*TribunalRecord, error)

	// List retrieves all tribunals ordered by name.
	List(ctx context.Context) ([]*TribunalRecord, error)
}

// TribunalRecord represents a tribunal as stored in persistence.
type TribunalRecord struct {
	ID        int64
	Name      string
	Slug      string
	Region    *string
	CreatedAt time.Time
}

// ListingRepository defines the secondary port for listing persistence.
type ListingRepository interface {
	// GetByLicitorID retrieves a listing by its external identifier.
	GetByLicitorID(ctx context.Context, licitorID int64) (*listing.Listing, error)

	// Create inserts a new listing and returns its ID. Returns ErrConflict
	// when the licitor_id already exists.
	Create(ctx context.Context, l *listing.Listing) (int64, error)

	// Update writes every column of an existing listing.
	Update(ctx context.Context, l *listing.Listing) error

	// ClearMatchPending resets the match_pending flag of a listing.
	ClearMatchPending(ctx context.Context, id int64) error

	// UpdateStatus writes the lifecycle columns only.
	UpdateStatus(ctx context.Context, id int64, status listing.Status, historical bool) error

	// List retrieves listings matching the filters, ordered by ID.
	List(ctx context.Context, filters ListingFilters) ([]*listing.Listing, error)

	// LinkTribunal sets tribunal_id on every listing scraped with the slug
	// whose tribunal is still unset. Returns the number of linked listings.
	LinkTribunal(ctx context.Context, slug string, tribunalID int64) (int64, error)

	// Candidates lists listings the external fetcher should revisit.
	Candidates(ctx context.Context, kind CandidateKind, limit int) ([]*Candidate, error)
}

// ListingFilters contains filter options for querying listings.
type ListingFilters struct {
	Status         listing.Status
	ExcludeHistory bool
	Limit          int
}

// CandidateKind selects a backfill query.
type CandidateKind string

const (
	CandidateDetail  CandidateKind = "detail"
	CandidateMap     CandidateKind = "map"
	CandidateSurface CandidateKind = "surface"
)

// Candidate is a listing the fetcher should scrape again.
type Candidate struct {
	LicitorID int64   `json:"licitor_id"`
	URLPath   *string `json:"url_path"`
}

// ListingChangeRepository defines the secondary port for the field change ledger.
type ListingChangeRepository interface {
	// Append stores changed fields of one merge.
	Append(ctx context.Context, records []*ListingChangeRecord) error

	// ListByListing returns the changes of a listing, newest first.
	ListByListing(ctx context.Context, listingID int64, limit int) ([]*ListingChangeRecord, error)
}

// ListingChangeRecord is one changed field in the ledger.
type ListingChangeRecord struct {
	ID          int64
	ListingID   int64
	ScrapeRunID *int64
	FieldName   string
	OldValue    *string
	NewValue    *string
	ChangedAt   time.Time
}

// PriceSource tags where an adjudication correction came from.
type PriceSource string

const (
	PriceSourceManual    PriceSource = "manual"
	PriceSourceExternal  PriceSource = "external"
	PriceSourceEstimated PriceSource = "estimated"
)

// AdjudicationRepository defines the secondary port for adjudication corrections.
type AdjudicationRepository interface {
	// Upsert stores the single correction of a listing, replacing any previous one.
	Upsert(ctx context.Context, rec *AdjudicationRecord) error

	// GetByListingID retrieves the correction for a listing.
	GetByListingID(ctx context.Context, listingID int64) (*AdjudicationRecord, error)
}

// AdjudicationRecord represents an adjudication result as stored in persistence.
type AdjudicationRecord struct {
	ID           int64
	ListingID    int64
	ResultStatus *listing.ResultStatus
	FinalPrice   int64
	ResultDate   *string
	PriceSource  PriceSource
	Notes        *string
	UpdatedAt    time.Time
}

// AlertRepository defines the secondary port for alert persistence.
type AlertRepository interface {
	// Create persists a new alert and returns its ID.
	Create(ctx context.Context, a *alert.Alert) (int64, error)

	// GetByID retrieves an alert by ID.
	GetByID(ctx context.Context, id int64) (*alert.Alert, error)

	// List retrieves alerts ordered by ID.
	List(ctx context.Context, activeOnly bool) ([]*alert.Alert, error)

	// SetActive enables or disables an alert.
	SetActive(ctx context.Context, id int64, active bool) error
}

// AlertMatchRepository defines the secondary port for the match ledger.
type AlertMatchRepository interface {
	// Insert records a match unless the pair already exists. Reports
	// whether a row was created.
	Insert(ctx context.Context, alertID, listingID int64, at time.Time) (bool, error)

	// List retrieves matches joined with their alert and listing, newest first.
	List(ctx context.Context, filters MatchFilters) ([]*MatchView, error)

	// MarkSeen flags matches as surfaced. Returns the number of rows changed.
	MarkSeen(ctx context.Context, ids []int64) (int64, error)
}

// MatchFilters contains filter options for querying matches.
type MatchFilters struct {
	AlertID     int64 // 0 means every alert
	IncludeSeen bool
	Limit       int
}

// MatchView is a match with the summary a notifier needs.
type MatchView struct {
	ID             int64
	AlertID        int64
	AlertName      string
	ListingID      int64
	LicitorID      int64
	URLPath        *string
	City           *string
	DepartmentCode *string
	PropertyType   *string
	MiseAPrix      *int64
	AuctionDate    *string
	MatchedAt      time.Time
	IsSeen         bool
}

// ScrapeRunRepository defines the secondary port for the scrape log.
type ScrapeRunRepository interface {
	// Create opens a run with zeroed counters.
	Create(ctx context.Context, typ scraperun.Type, notes string, startedAt time.Time) (*scraperun.Run, error)

	// GetByID retrieves a run.
	GetByID(ctx context.Context, id int64) (*scraperun.Run, error)

	// Increment adds one to the counter of an outcome. Returns
	// scraperun.ErrRunFinished when the run is already finished.
	Increment(ctx context.Context, id int64, outcome scraperun.Outcome) error

	// AddPages adds to the pages_scraped counter of an open run.
	AddPages(ctx context.Context, id int64, n int) error

	// Finish sets finished_at and the final notes. Returns
	// scraperun.ErrRunFinished on a second call.
	Finish(ctx context.Context, id int64, finishedAt time.Time, notes string) error

	// List retrieves the most recent runs first.
	List(ctx context.Context, limit int) ([]*scraperun.Run, error)

	// ListOpen retrieves runs without finished_at, oldest first.
	ListOpen(ctx context.Context) ([]*scraperun.Run, error)
}
