package primary

import (
	"context"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/ports/secondary"
)

// AlertService defines the primary port for alert administration.
type AlertService interface {
	// CreateAlert validates and stores a new active alert.
	CreateAlert(ctx context.Context, req CreateAlertRequest) (*alert.Alert, error)

	// GetAlert retrieves an alert.
	GetAlert(ctx context.Context, id int64) (*alert.Alert, error)

	// ListAlerts retrieves alerts.
	ListAlerts(ctx context.Context, activeOnly bool) ([]*alert.Alert, error)

	// SetAlertActive enables or disables an alert. Alerts are never deleted.
	SetAlertActive(ctx context.Context, id int64, active bool) error

	// Rematch evaluates one alert against every live listing.
	Rematch(ctx context.Context, id int64) (*RematchResponse, error)
}

// CreateAlertRequest contains parameters for creating an alert.
type CreateAlertRequest struct {
	Name     string
	Criteria alert.Criteria
}

// RematchResponse contains the result of re-evaluating an alert.
type RematchResponse struct {
	Evaluated      int
	MatchesCreated int
}

// MatchService defines the primary port the notifier uses.
type MatchService interface {
	// ListMatches retrieves matches, unseen only unless asked otherwise.
	ListMatches(ctx context.Context, filters secondary.MatchFilters) ([]*secondary.MatchView, error)

	// MarkSeen flags matches as surfaced to the user.
	MarkSeen(ctx context.Context, ids []int64) (int64, error)
}
