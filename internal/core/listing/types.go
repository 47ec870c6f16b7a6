// Package listing contains the pure business logic for auction listings:
// the entity, its enumerations, boundary validation and the snapshot merge.
// This is part of the Functional Core - no I/O, only pure functions.
package listing

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusPast      Status = "past"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status coming from outside the core.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusUpcoming, StatusPast, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, s)
}

// ResultStatus is the adjudication outcome recorded for a listing.
type ResultStatus string

const (
	ResultSold       ResultStatus = "sold"
	ResultCarence    ResultStatus = "carence"
	ResultNonRequise ResultStatus = "non_requise"
)

// ParseResultStatus validates a result status coming from outside the core.
func ParseResultStatus(s string) (ResultStatus, error) {
	switch rs := ResultStatus(s); rs {
	case ResultSold, ResultCarence, ResultNonRequise:
		return rs, nil
	}
	return "", fmt.Errorf("%w: unknown result status %q", ErrInvalidRecord, s)
}

// Page tells which kind of source page produced a snapshot.
type Page string

const (
	PageIndex  Page = "index"
	PageDetail Page = "detail"
)

// ParsePage validates a page kind.
func ParsePage(s string) (Page, error) {
	switch p := Page(s); p {
	case PageIndex, PageDetail:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown page kind %q", ErrInvalidRecord, s)
}

// Attributes holds every scraped value of a listing. A nil pointer means
// the value is unknown (stored) or absent (incoming).
type Attributes struct {
	URLPath      *string
	TribunalSlug *string

	// Property
	PropertyType    *string
	Description     *string
	SurfaceM2       *float64
	EnergyRating    *string
	OccupancyStatus *string

	// Location
	DepartmentCode *string
	City           *string
	FullAddress    *string
	Latitude       *float64
	Longitude      *float64
	CadastralRef   *string

	// Auction
	AuctionDate       *string // YYYY-MM-DD
	AuctionTime       *string // HH:MM
	MiseAPrix         *int64
	CaseReference     *string
	HasPriceReduction *string

	// Representative
	LawyerName  *string
	LawyerPhone *string

	VisitDate *string

	// Regional price context
	PricePerM2Min *float64
	PricePerM2Avg *float64
	PricePerM2Max *float64

	// Engagement
	ViewCount       *int64
	FavoritesCount  *int64
	PublicationDate *string

	// Result
	ResultStatus *ResultStatus
	FinalPrice   *int64
	ResultDate   *string // YYYY-MM-DD
}

// Listing is the durable record of one auction, keyed by LicitorID.
type Listing struct {
	ID        int64
	LicitorID int64
	Attributes

	Status       Status
	IsHistorical bool
	TribunalID   *int64

	FirstScrapedAt time.Time
	LastScrapedAt  time.Time
	DetailScraped  bool

	// MatchPending is set with every semantic change and cleared once the
	// listing has been evaluated against the active alerts.
	MatchPending bool
}

// HasResult reports whether an adjudication outcome was scraped.
func (l *Listing) HasResult() bool {
	return l.ResultStatus != nil
}

// Snapshot is one scraped observation of a listing.
type Snapshot struct {
	LicitorID int64
	Page      Page
	Attributes

	TribunalName *string
	// Cancelled is the explicit cancellation marker found by the scraper.
	Cancelled bool
}

// FieldChange describes one semantically changed field. Empty Old means the
// field was NULL before the merge.
type FieldChange struct {
	Field string
	Old   string
	New   string
}
