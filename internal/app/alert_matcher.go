package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/secondary"
)

// AlertMatcher evaluates alerts against listings and records new matches.
// Matches are append-only: a listing that stops satisfying an alert keeps
// its existing match.
type AlertMatcher struct {
	alertRepo secondary.AlertRepository
	matchRepo secondary.AlertMatchRepository
	tribunals *TribunalResolver
	now       func() time.Time
}

// NewAlertMatcher creates a new AlertMatcher with injected dependencies.
func NewAlertMatcher(alertRepo secondary.AlertRepository, matchRepo secondary.AlertMatchRepository, tribunals *TribunalResolver, now func() time.Time) *AlertMatcher {
	if now == nil {
		now = time.Now
	}
	return &AlertMatcher{
		alertRepo: alertRepo,
		matchRepo: matchRepo,
		tribunals: tribunals,
		now:       now,
	}
}

// MatchListing evaluates every active alert against a persisted listing and
// returns the IDs of the alerts that produced a new match. The active alert
// list is read for each call, so an alert edited mid-run is seen whole.
func (m *AlertMatcher) MatchListing(ctx context.Context, l *listing.Listing) ([]int64, error) {
	records, err := m.alertRepo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load active alerts: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	subject, err := m.subject(ctx, l)
	if err != nil {
		return nil, err
	}

	alerts := make([]alert.Alert, len(records))
	for i, a := range records {
		alerts[i] = *a
	}
	return m.insert(ctx, alert.MatchingAlerts(alerts, subject), l.ID)
}

// MatchAlert evaluates one alert against the given listings and returns
// the number of new matches.
func (m *AlertMatcher) MatchAlert(ctx context.Context, a *alert.Alert, listings []*listing.Listing) (int, error) {
	created := 0
	for _, l := range listings {
		subject, err := m.subject(ctx, l)
		if err != nil {
			return created, err
		}
		if !a.Criteria.Matches(subject) {
			continue
		}
		ids, err := m.insert(ctx, []int64{a.ID}, l.ID)
		if err != nil {
			return created, err
		}
		created += len(ids)
	}
	return created, nil
}

func (m *AlertMatcher) subject(ctx context.Context, l *listing.Listing) (alert.Subject, error) {
	region, err := m.tribunals.Region(ctx, l.TribunalID)
	if err != nil {
		return alert.Subject{}, err
	}
	return alert.SubjectOf(l, region), nil
}

func (m *AlertMatcher) insert(ctx context.Context, alertIDs []int64, listingID int64) ([]int64, error) {
	var created []int64
	at := m.now()
	for _, id := range alertIDs {
		ok, err := m.matchRepo.Insert(ctx, id, listingID, at)
		if err != nil {
			return created, fmt.Errorf("failed to record match of alert %d: %w", id, err)
		}
		if ok {
			created = append(created, id)
		}
	}
	return created, nil
}
