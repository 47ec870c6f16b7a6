package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// ScrapeRunServiceImpl implements the ScrapeRunService interface.
type ScrapeRunServiceImpl struct {
	runRepo secondary.ScrapeRunRepository
	now     func() time.Time

	mu        sync.Mutex
	unchanged map[int64]int
}

// NewScrapeRunService creates a new ScrapeRunService with injected dependencies.
func NewScrapeRunService(runRepo secondary.ScrapeRunRepository, now func() time.Time) *ScrapeRunServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &ScrapeRunServiceImpl{
		runRepo:   runRepo,
		now:       now,
		unchanged: make(map[int64]int),
	}
}

// Begin opens a run with zeroed counters.
func (s *ScrapeRunServiceImpl) Begin(ctx context.Context, typ scraperun.Type, notes string) (*scraperun.Run, error) {
	if _, err := scraperun.ParseType(string(typ)); err != nil {
		return nil, err
	}
	return s.runRepo.Create(ctx, typ, notes, s.now())
}

// Record persists one outcome. Unchanged outcomes have no column and are
// only reported in the notes written by Finish.
func (s *ScrapeRunServiceImpl) Record(ctx context.Context, runID int64, outcome scraperun.Outcome) error {
	if outcome == scraperun.OutcomeUnchanged {
		s.mu.Lock()
		s.unchanged[runID]++
		s.mu.Unlock()
		return nil
	}
	return s.runRepo.Increment(ctx, runID, outcome)
}

// AddPages adds to the pages counter of an open run.
func (s *ScrapeRunServiceImpl) AddPages(ctx context.Context, runID int64, n int) error {
	if n < 0 {
		return fmt.Errorf("pages scraped cannot be negative: %d", n)
	}
	return s.runRepo.AddPages(ctx, runID, n)
}

// Finish freezes a run. A second call fails with scraperun.ErrRunFinished.
func (s *ScrapeRunServiceImpl) Finish(ctx context.Context, runID int64, notes string) (*scraperun.Run, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := scraperun.CanFinish(run).Error(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	unchanged := s.unchanged[runID]
	s.mu.Unlock()

	if unchanged > 0 {
		notes = scraperun.JoinNotes(notes, fmt.Sprintf("unchanged=%d", unchanged))
	}
	notes = scraperun.JoinNotes(run.Notes, notes)

	if err := s.runRepo.Finish(ctx, runID, s.now(), notes); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.unchanged, runID)
	s.mu.Unlock()

	finished, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	finished.Unchanged = unchanged
	return finished, nil
}

// GetRun retrieves a run.
func (s *ScrapeRunServiceImpl) GetRun(ctx context.Context, runID int64) (*scraperun.Run, error) {
	return s.runRepo.GetByID(ctx, runID)
}

// ListRuns retrieves the most recent runs.
func (s *ScrapeRunServiceImpl) ListRuns(ctx context.Context, limit int) ([]*scraperun.Run, error) {
	return s.runRepo.List(ctx, limit)
}

// ListOpenRuns retrieves unfinished runs, oldest first.
func (s *ScrapeRunServiceImpl) ListOpenRuns(ctx context.Context) ([]*scraperun.Run, error) {
	return s.runRepo.ListOpen(ctx)
}

// StaleRuns lists open runs started longer than olderThan ago. These are
// left behind by crashed or aborted batches.
func (s *ScrapeRunServiceImpl) StaleRuns(ctx context.Context, olderThan time.Duration) ([]*scraperun.Run, error) {
	open, err := s.runRepo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var stale []*scraperun.Run
	for _, r := range open {
		if scraperun.IsStale(r, now, olderThan) {
			stale = append(stale, r)
		}
	}
	return stale, nil
}

// Ensure ScrapeRunServiceImpl implements the interface
var _ primary.ScrapeRunService = (*ScrapeRunServiceImpl)(nil)
