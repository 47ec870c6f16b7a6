package secondary

import (
	"context"
	"time"

	"github.com/example/encheres/internal/core/listing"
)

// ChangeLog defines the interface for recording field provenance.
// Implementations extract the scrape run from context.
type ChangeLog interface {
	// LogChanges records the changed fields of one merge.
	LogChanges(ctx context.Context, listingID int64, changes []listing.FieldChange, at time.Time) error
}
