package primary

import (
	"context"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/secondary"
)

// ListingService defines the primary port for reading and maintaining listings.
type ListingService interface {
	// GetListing retrieves a listing with its tribunal and effective result.
	GetListing(ctx context.Context, licitorID int64) (*ListingDetail, error)

	// AdvanceLifecycle runs the lifecycle rules over every upcoming listing.
	AdvanceLifecycle(ctx context.Context) (*AdvanceResponse, error)

	// Candidates lists listings the fetcher should revisit.
	Candidates(ctx context.Context, kind secondary.CandidateKind, limit int) ([]*secondary.Candidate, error)
}

// ListingDetail is a listing with its related records.
type ListingDetail struct {
	Listing      *listing.Listing
	Tribunal     *secondary.TribunalRecord
	Adjudication *secondary.AdjudicationRecord
	// Effective is the adjudication correction when present, else the
	// scraped result.
	Effective EffectiveResult
}

// EffectiveResult is the result shown to readers.
type EffectiveResult struct {
	Status     *listing.ResultStatus
	FinalPrice *int64
	Date       *string
	Source     string // "scraped" or the adjudication price source
}

// AdvanceResponse counts lifecycle transitions by target status.
type AdvanceResponse struct {
	Evaluated   int
	Transitions map[listing.Status]int
}

// AdjudicationService defines the primary port for result corrections.
type AdjudicationService interface {
	// SetAdjudication stores the correction for a listing.
	SetAdjudication(ctx context.Context, req SetAdjudicationRequest) (*secondary.AdjudicationRecord, error)
}

// SetAdjudicationRequest contains parameters for a result correction.
type SetAdjudicationRequest struct {
	LicitorID    int64
	FinalPrice   int64
	PriceSource  string
	ResultStatus string
	ResultDate   string
	Notes        string
}
