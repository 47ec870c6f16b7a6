package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/logging"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// RunIngestServiceImpl implements the RunIngestService interface.
type RunIngestServiceImpl struct {
	ingest   primary.IngestService
	runs     primary.ScrapeRunService
	progress secondary.ProgressReporter
	observer secondary.RunObserver
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunIngestService creates a new RunIngestService with injected
// dependencies. progress and observer may be nil.
func NewRunIngestService(
	ingest primary.IngestService,
	runs primary.ScrapeRunService,
	progress secondary.ProgressReporter,
	observer secondary.RunObserver,
	logger *slog.Logger,
	now func() time.Time,
) *RunIngestServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &RunIngestServiceImpl{
		ingest:   ingest,
		runs:     runs,
		progress: progress,
		observer: observer,
		logger:   logging.Module(logger, "run"),
		now:      now,
	}
}

// RunIngest opens a run, processes the batch and finishes the run.
//
// A cancelled context stops the batch between listings and the run is
// finished with a "cancelled" note. When the store is lost the run is
// left open for the stale-run report.
func (s *RunIngestServiceImpl) RunIngest(ctx context.Context, req primary.RunIngestRequest) (*primary.RunIngestResponse, error) {
	started := s.now()

	// Bookkeeping must not be skipped because the batch was cancelled.
	bctx := context.WithoutCancel(ctx)

	run, err := s.runs.Begin(bctx, req.Type, req.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to open scrape run: %w", err)
	}
	logger := s.logger.With("run_id", run.ID, "type", string(run.Type))
	logger.Info("scrape run started", "records", len(req.Items))

	if err := s.runs.AddPages(bctx, run.ID, req.PagesScraped); err != nil {
		return nil, fmt.Errorf("failed to record pages of run %d: %w", run.ID, err)
	}

	base := secondary.Progress{
		RunID:     run.ID,
		Type:      run.Type,
		Total:     len(req.Items),
		StartedAt: run.StartedAt,
	}
	base.Counters.PagesScraped = req.PagesScraped
	s.report(logger, base, secondary.ProgressRunning, scraperun.Counters{}, "")

	result, err := s.ingest.ProcessBatch(ctx, primary.ProcessBatchRequest{
		RunID:   run.ID,
		Items:   req.Items,
		Workers: req.Workers,
		Progress: func(c scraperun.Counters) {
			s.report(logger, base, secondary.ProgressRunning, c, "")
		},
	})
	if err != nil {
		var counters scraperun.Counters
		if result != nil {
			counters = result.Counters
		}
		s.report(logger, base, secondary.ProgressError, counters, err.Error())
		logger.Error("scrape run aborted", "error", err)
		if errors.Is(err, ErrStoreUnavailable) {
			return &primary.RunIngestResponse{Run: run, Result: result, Duration: s.now().Sub(started)}, err
		}
		// The store still answers: close the run so it is not reported stale.
		if _, ferr := s.runs.Finish(bctx, run.ID, "aborted: "+err.Error()); ferr != nil {
			logger.Error("failed to finish aborted run", "error", ferr)
		}
		return &primary.RunIngestResponse{Run: run, Result: result, Duration: s.now().Sub(started)}, err
	}

	var notes string
	status := secondary.ProgressFinished
	if result.Cancelled {
		notes = "cancelled"
		status = secondary.ProgressCancelled
	}

	finished, err := s.runs.Finish(bctx, run.ID, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to finish scrape run %d: %w", run.ID, err)
	}
	result.PagesScraped = finished.PagesScraped

	elapsed := s.now().Sub(started)
	if s.observer != nil {
		s.observer.RunFinished(run.Type, elapsed)
	}
	s.report(logger, base, status, result.Counters, finished.Notes)

	logger.Info("scrape run finished",
		"new", finished.ListingsNew,
		"updated", finished.ListingsUpdated,
		"unchanged", result.Unchanged,
		"errors", finished.Errors,
		"matches", result.MatchesCreated,
		"cancelled", result.Cancelled,
		"elapsed", elapsed,
	)

	return &primary.RunIngestResponse{
		Run:      finished,
		Result:   result,
		Duration: elapsed,
	}, nil
}

func (s *RunIngestServiceImpl) report(logger *slog.Logger, base secondary.Progress, status secondary.ProgressStatus, c scraperun.Counters, msg string) {
	if s.progress == nil {
		return
	}
	p := base
	p.Status = status
	pages := p.Counters.PagesScraped
	p.Counters = c
	p.Counters.PagesScraped = pages
	p.Message = msg
	if err := s.progress.Report(p); err != nil {
		logger.Warn("failed to publish progress", "error", err)
	}
}

// Ensure RunIngestServiceImpl implements the interface
var _ primary.RunIngestService = (*RunIngestServiceImpl)(nil)
