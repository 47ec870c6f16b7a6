package app

import (
	"context"
	"fmt"

	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// HistoryServiceImpl implements the HistoryService interface.
type HistoryServiceImpl struct {
	listingRepo secondary.ListingRepository
	changeRepo  secondary.ListingChangeRepository
}

// NewHistoryService creates a new HistoryService with injected dependencies.
func NewHistoryService(listingRepo secondary.ListingRepository, changeRepo secondary.ListingChangeRepository) *HistoryServiceImpl {
	return &HistoryServiceImpl{
		listingRepo: listingRepo,
		changeRepo:  changeRepo,
	}
}

// ListChanges retrieves the recorded changes of a listing, newest first.
func (s *HistoryServiceImpl) ListChanges(ctx context.Context, licitorID int64, limit int) ([]*secondary.ListingChangeRecord, error) {
	l, err := s.listingRepo.GetByLicitorID(ctx, licitorID)
	if err != nil {
		return nil, err
	}
	records, err := s.changeRepo.ListByListing(ctx, l.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	return records, nil
}

// Ensure HistoryServiceImpl implements the interface
var _ primary.HistoryService = (*HistoryServiceImpl)(nil)
