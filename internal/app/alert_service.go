package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// AlertServiceImpl implements the AlertService interface.
type AlertServiceImpl struct {
	alertRepo   secondary.AlertRepository
	listingRepo secondary.ListingRepository
	matcher     *AlertMatcher
	now         func() time.Time
}

// NewAlertService creates a new AlertService with injected dependencies.
func NewAlertService(alertRepo secondary.AlertRepository, listingRepo secondary.ListingRepository, matcher *AlertMatcher, now func() time.Time) *AlertServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &AlertServiceImpl{
		alertRepo:   alertRepo,
		listingRepo: listingRepo,
		matcher:     matcher,
		now:         now,
	}
}

// CreateAlert validates and stores a new active alert. Existing listings
// are not evaluated; call Rematch for that.
func (s *AlertServiceImpl) CreateAlert(ctx context.Context, req primary.CreateAlertRequest) (*alert.Alert, error) {
	a := &alert.Alert{
		Name:      strings.TrimSpace(req.Name),
		Criteria:  req.Criteria,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	id, err := s.alertRepo.Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	a.ID = id
	return a, nil
}

// GetAlert retrieves an alert.
func (s *AlertServiceImpl) GetAlert(ctx context.Context, id int64) (*alert.Alert, error) {
	return s.alertRepo.GetByID(ctx, id)
}

// ListAlerts retrieves alerts.
func (s *AlertServiceImpl) ListAlerts(ctx context.Context, activeOnly bool) ([]*alert.Alert, error) {
	return s.alertRepo.List(ctx, activeOnly)
}

// SetAlertActive enables or disables an alert.
func (s *AlertServiceImpl) SetAlertActive(ctx context.Context, id int64, active bool) error {
	return s.alertRepo.SetActive(ctx, id, active)
}

// Rematch evaluates an active alert against every upcoming listing.
func (s *AlertServiceImpl) Rematch(ctx context.Context, id int64) (*primary.RematchResponse, error) {
	a, err := s.alertRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, fmt.Errorf("alert %d is disabled", id)
	}

	listings, err := s.listingRepo.List(ctx, secondary.ListingFilters{
		Status:         listing.StatusUpcoming,
		ExcludeHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	created, err := s.matcher.MatchAlert(ctx, a, listings)
	if err != nil {
		return nil, err
	}
	return &primary.RematchResponse{
		Evaluated:      len(listings),
		MatchesCreated: created,
	}, nil
}

// Ensure AlertServiceImpl implements the interface
var _ primary.AlertService = (*AlertServiceImpl)(nil)

// MatchServiceImpl implements the MatchService interface.
type MatchServiceImpl struct {
	matchRepo secondary.AlertMatchRepository
}

// NewMatchService creates a new MatchService with injected dependencies.
func NewMatchService(matchRepo secondary.AlertMatchRepository) *MatchServiceImpl {
	return &MatchServiceImpl{matchRepo: matchRepo}
}

// ListMatches retrieves matches, newest first.
func (s *MatchServiceImpl) ListMatches(ctx context.Context, filters secondary.MatchFilters) ([]*secondary.MatchView, error) {
	return s.matchRepo.List(ctx, filters)
}

// MarkSeen flags matches as surfaced and returns how many changed.
func (s *MatchServiceImpl) MarkSeen(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.matchRepo.MarkSeen(ctx, ids)
}

// Ensure MatchServiceImpl implements the interface
var _ primary.MatchService = (*MatchServiceImpl)(nil)
