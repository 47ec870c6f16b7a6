package primary

import (
	"context"
	"time"

	"github.com/example/encheres/internal/core/lifecycle"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/core/scraperun"
)

// IngestService defines the primary port for folding scraped records into
// the listing store.
type IngestService interface {
	// Upsert merges one snapshot, advances its lifecycle and evaluates alerts.
	// A non-nil result with a non-nil error means the listing was written
	// but alert matching is still pending.
	Upsert(ctx context.Context, snap listing.Snapshot) (*UpsertResult, error)

	// ProcessBatch upserts every item of a batch on behalf of an open run.
	ProcessBatch(ctx context.Context, req ProcessBatchRequest) (*BatchResult, error)
}

// IngestItem is one record handed in by the scraper. ParseErr is set when
// the record could not be decoded.
type IngestItem struct {
	Line     int
	Snapshot *listing.Snapshot
	ParseErr error
}

// UpsertResult describes what one upsert did.
type UpsertResult struct {
	ListingID      int64
	LicitorID      int64
	Outcome        scraperun.Outcome
	Changes        []listing.FieldChange
	Transition     lifecycle.Transition
	MatchedAlerts  []int64
	TribunalLinked bool
}

// ProcessBatchRequest contains parameters for processing a batch.
type ProcessBatchRequest struct {
	RunID int64
	Items []IngestItem
	// Workers bounds the fan-out across licitor IDs. Values below 1 mean 1.
	Workers int
	// Progress, when set, is called with the running counters after each
	// record. It may be called from several goroutines.
	Progress func(scraperun.Counters)
}

// BatchResult summarizes a processed batch.
type BatchResult struct {
	scraperun.Counters
	MatchesCreated int
	// Cancelled is set when the batch stopped early on request.
	Cancelled bool
}

// RunIngestService defines the primary port that brackets a batch with a
// scrape run.
type RunIngestService interface {
	// RunIngest opens a run, processes the items and finishes the run.
	// A fatal storage failure leaves the run open.
	RunIngest(ctx context.Context, req RunIngestRequest) (*RunIngestResponse, error)
}

// RunIngestRequest contains parameters for an ingest run.
type RunIngestRequest struct {
	Type         scraperun.Type
	Items        []IngestItem
	PagesScraped int
	Notes        string
	Workers      int
}

// RunIngestResponse contains the outcome of an ingest run.
type RunIngestResponse struct {
	Run      *scraperun.Run
	Result   *BatchResult
	Duration time.Duration
}
