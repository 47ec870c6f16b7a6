package primary

import (
	"context"
	"time"

	"github.com/example/encheres/internal/core/scraperun"
)

// ScrapeRunService defines the primary port for the scrape log.
type ScrapeRunService interface {
	// Begin opens a run with zeroed counters.
	Begin(ctx context.Context, typ scraperun.Type, notes string) (*scraperun.Run, error)

	// Record persists one listing outcome against an open run.
	Record(ctx context.Context, runID int64, outcome scraperun.Outcome) error

	// AddPages adds to the pages counter of an open run.
	AddPages(ctx context.Context, runID int64, n int) error

	// Finish freezes a run. It succeeds exactly once per run.
	Finish(ctx context.Context, runID int64, notes string) (*scraperun.Run, error)

	// GetRun retrieves a run.
	GetRun(ctx context.Context, runID int64) (*scraperun.Run, error)

	// ListRuns retrieves the most recent runs.
	ListRuns(ctx context.Context, limit int) ([]*scraperun.Run, error)

	// ListOpenRuns retrieves unfinished runs, oldest first.
	ListOpenRuns(ctx context.Context) ([]*scraperun.Run, error)

	// StaleRuns lists open runs started longer than olderThan ago.
	StaleRuns(ctx context.Context, olderThan time.Duration) ([]*scraperun.Run, error)
}
