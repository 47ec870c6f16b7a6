package primary

import (
	"context"

	"github.com/example/encheres/internal/ports/secondary"
)

// HistoryService defines the primary port for the field change ledger.
type HistoryService interface {
	// ListChanges retrieves the recorded changes of a listing, newest first.
	ListChanges(ctx context.Context, licitorID int64, limit int) ([]*secondary.ListingChangeRecord, error)
}
