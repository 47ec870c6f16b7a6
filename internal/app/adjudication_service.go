package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// AdjudicationServiceImpl implements the AdjudicationService interface.
type AdjudicationServiceImpl struct {
	listingRepo      secondary.ListingRepository
	adjudicationRepo secondary.AdjudicationRepository
}

// NewAdjudicationService creates a new AdjudicationService with injected dependencies.
func NewAdjudicationService(listingRepo secondary.ListingRepository, adjudicationRepo secondary.AdjudicationRepository) *AdjudicationServiceImpl {
	return &AdjudicationServiceImpl{
		listingRepo:      listingRepo,
		adjudicationRepo: adjudicationRepo,
	}
}

// SetAdjudication stores the correction for a listing, replacing any
// previous one. The scraped result columns are left untouched.
func (s *AdjudicationServiceImpl) SetAdjudication(ctx context.Context, req primary.SetAdjudicationRequest) (*secondary.AdjudicationRecord, error) {
	if req.FinalPrice < 0 {
		return nil, fmt.Errorf("%w: final price cannot be negative", listing.ErrInvalidRecord)
	}
	source, err := parsePriceSource(req.PriceSource)
	if err != nil {
		return nil, err
	}

	rec := &secondary.AdjudicationRecord{
		FinalPrice:  req.FinalPrice,
		PriceSource: source,
	}
	if req.ResultStatus != "" {
		rs, err := listing.ParseResultStatus(req.ResultStatus)
		if err != nil {
			return nil, err
		}
		rec.ResultStatus = &rs
	}
	if req.ResultDate != "" {
		if _, err := listing.ParseDate(req.ResultDate); err != nil {
			return nil, err
		}
		d := req.ResultDate
		rec.ResultDate = &d
	}
	if n := strings.TrimSpace(req.Notes); n != "" {
		rec.Notes = &n
	}

	l, err := s.listingRepo.GetByLicitorID(ctx, req.LicitorID)
	if err != nil {
		return nil, err
	}
	rec.ListingID = l.ID

	if err := s.adjudicationRepo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return s.adjudicationRepo.GetByListingID(ctx, l.ID)
}

func parsePriceSource(s string) (secondary.PriceSource, error) {
	if s == "" {
		return secondary.PriceSourceManual, nil
	}
	switch ps := secondary.PriceSource(s); ps {
	case secondary.PriceSourceManual, secondary.PriceSourceExternal, secondary.PriceSourceEstimated:
		return ps, nil
	}
	return "", fmt.Errorf("%w: unknown price source %q", listing.ErrInvalidRecord, s)
}

// Ensure AdjudicationServiceImpl implements the interface
var _ primary.AdjudicationService = (*AdjudicationServiceImpl)(nil)
