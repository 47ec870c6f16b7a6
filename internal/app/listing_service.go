package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/encheres/internal/core/lifecycle"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// ListingServiceImpl implements the ListingService interface.
type ListingServiceImpl struct {
	listingRepo      secondary.ListingRepository
	adjudicationRepo secondary.AdjudicationRepository
	changeLog        secondary.ChangeLog
	tribunals        *TribunalResolver
	observer         secondary.RunObserver
	now              func() time.Time
	location         *time.Location
}

// NewListingService creates a new ListingService with injected dependencies.
func NewListingService(
	listingRepo secondary.ListingRepository,
	adjudicationRepo secondary.AdjudicationRepository,
	changeLog secondary.ChangeLog,
	tribunals *TribunalResolver,
	observer secondary.RunObserver,
	now func() time.Time,
	location *time.Location,
) *ListingServiceImpl {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ListingServiceImpl{
		listingRepo:      listingRepo,
		adjudicationRepo: adjudicationRepo,
		changeLog:        changeLog,
		tribunals:        tribunals,
		observer:         observer,
		now:              now,
		location:         location,
	}
}

// GetListing retrieves a listing with its tribunal and effective result.
func (s *ListingServiceImpl) GetListing(ctx context.Context, licitorID int64) (*primary.ListingDetail, error) {
	l, err := s.listingRepo.GetByLicitorID(ctx, licitorID)
	if err != nil {
		return nil, err
	}

	detail := &primary.ListingDetail{Listing: l}
	if l.TribunalID != nil {
		detail.Tribunal, err = s.tribunals.ByID(ctx, *l.TribunalID)
		if err != nil {
			return nil, err
		}
	}

	adj, err := s.adjudicationRepo.GetByListingID(ctx, l.ID)
	switch {
	case errors.Is(err, secondary.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		detail.Adjudication = adj
	}

	detail.Effective = effectiveResult(l, detail.Adjudication)
	return detail, nil
}

// effectiveResult prefers the correction over the scraped result. A
// correction without status or date keeps the scraped ones.
func effectiveResult(l *listing.Listing, adj *secondary.AdjudicationRecord) primary.EffectiveResult {
	eff := primary.EffectiveResult{
		Status:     l.ResultStatus,
		FinalPrice: l.FinalPrice,
		Date:       l.ResultDate,
		Source:     "scraped",
	}
	if adj == nil {
		return eff
	}
	price := adj.FinalPrice
	eff.FinalPrice = &price
	eff.Source = string(adj.PriceSource)
	if adj.ResultStatus != nil {
		eff.Status = adj.ResultStatus
	}
	if adj.ResultDate != nil {
		eff.Date = adj.ResultDate
	}
	return eff
}

// AdvanceLifecycle moves upcoming listings whose auction date has passed
// to past. It is the daily sweep for listings the scraper no longer visits.
func (s *ListingServiceImpl) AdvanceLifecycle(ctx context.Context) (*primary.AdvanceResponse, error) {
	upcoming, err := s.listingRepo.List(ctx, secondary.ListingFilters{Status: listing.StatusUpcoming})
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming listings: %w", err)
	}

	now := s.now()
	today := now.In(s.location)
	resp := &primary.AdvanceResponse{
		Evaluated:   len(upcoming),
		Transitions: make(map[listing.Status]int),
	}
	for _, l := range upcoming {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		t := lifecycle.Evaluate(lifecycle.InputOf(l, false), today)
		if !t.Changed {
			continue
		}
		if err := s.listingRepo.UpdateStatus(ctx, l.ID, t.Status, t.IsHistorical); err != nil {
			return resp, fmt.Errorf("failed to advance listing %d: %w", l.LicitorID, err)
		}
		if t.Status != t.From {
			change := listing.FieldChange{Field: "status", Old: string(t.From), New: string(t.Status)}
			if err := s.changeLog.LogChanges(ctx, l.ID, []listing.FieldChange{change}, now); err != nil {
				return resp, err
			}
			resp.Transitions[t.Status]++
			if s.observer != nil {
				s.observer.LifecycleTransition(t.Status)
			}
		}
	}
	return resp, nil
}

// Candidates lists listings the fetcher should revisit.
func (s *ListingServiceImpl) Candidates(ctx context.Context, kind secondary.CandidateKind, limit int) ([]*secondary.Candidate, error) {
	switch kind {
	case secondary.CandidateDetail, secondary.CandidateMap, secondary.CandidateSurface:
	default:
		return nil, fmt.Errorf("unknown candidate kind %q (want detail, map or surface)", kind)
	}
	return s.listingRepo.Candidates(ctx, kind, limit)
}

// Ensure ListingServiceImpl implements the interface
var _ primary.ListingService = (*ListingServiceImpl)(nil)
