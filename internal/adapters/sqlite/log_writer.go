// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"time"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ctxutil"
	"github.com/example/encheres/internal/ports/secondary"
)

// ChangeLogAdapter implements secondary.ChangeLog using ListingChangeRepository.
type ChangeLogAdapter struct {
	changeRepo secondary.ListingChangeRepository
}

// NewChangeLogAdapter creates a new ChangeLogAdapter.
func NewChangeLogAdapter(changeRepo secondary.ListingChangeRepository) *ChangeLogAdapter {
	return &ChangeLogAdapter{changeRepo: changeRepo}
}

// LogChanges records the changed fields of one merge, tagged with the scrape
// run found in ctx. Changes made outside a run are recorded without one.
func (w *ChangeLogAdapter) LogChanges(ctx context.Context, listingID int64, changes []listing.FieldChange, at time.Time) error {
	if len(changes) == 0 {
		return nil
	}

	var runID *int64
	if id, ok := ctxutil.RunIDFromContext(ctx); ok {
		runID = &id
	}

	records := make([]*secondary.ListingChangeRecord, len(changes))
	for i, c := range changes {
		records[i] = &secondary.ListingChangeRecord{
			ListingID:   listingID,
			ScrapeRunID: runID,
			FieldName:   c.Field,
			OldValue:    nullable(c.Old),
			NewValue:    nullable(c.New),
			ChangedAt:   at,
		}
	}
	return w.changeRepo.Append(ctx, records)
}

// nullable maps the empty string used for NULL in FieldChange back to nil.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure ChangeLogAdapter implements the interface
var _ secondary.ChangeLog = (*ChangeLogAdapter)(nil)
