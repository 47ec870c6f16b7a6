package secondary

import (
	"time"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/core/scraperun"
)

// RunObserver receives pipeline events. Implementations must be safe for
// concurrent use.
type RunObserver interface {
	ListingProcessed(outcome scraperun.Outcome)
	MatchesCreated(n int)
	LifecycleTransition(to listing.Status)
	RunFinished(typ scraperun.Type, elapsed time.Duration)
}

// ProgressStatus is the state published in a progress snapshot.
type ProgressStatus string

const (
	ProgressRunning   ProgressStatus = "running"
	ProgressFinished  ProgressStatus = "finished"
	ProgressCancelled ProgressStatus = "cancelled"
	ProgressError     ProgressStatus = "error"
)

// Progress is a point-in-time view of a running batch.
type Progress struct {
	RunID     int64
	Type      scraperun.Type
	Status    ProgressStatus
	Total     int
	Counters  scraperun.Counters
	StartedAt time.Time
	Message   string
}

// ProgressReporter publishes progress for external monitors.
type ProgressReporter interface {
	Report(p Progress) error
}
