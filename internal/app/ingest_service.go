package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/encheres/internal/core/lifecycle"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ctxutil"
	"github.com/example/encheres/internal/logging"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

var (
	// ErrStoreUnavailable aborts a batch: the persistence layer itself is gone.
	ErrStoreUnavailable = errors.New("listing store unavailable")
	// ErrMatchDeferred is returned with a committed UpsertResult when alert
	// matching failed. The listing keeps match_pending and the next upsert
	// of the same licitor_id retries the matching.
	ErrMatchDeferred = errors.New("alert matching deferred")
)

// IngestServiceImpl implements the IngestService interface.
type IngestServiceImpl struct {
	listingRepo secondary.ListingRepository
	health      secondary.StoreHealth
	changeLog   secondary.ChangeLog
	runs        primary.ScrapeRunService
	tribunals   *TribunalResolver
	registry    primary.TribunalService
	matcher     *AlertMatcher
	observer    secondary.RunObserver
	logger      *slog.Logger

	now      func() time.Time
	location *time.Location
}

// IngestDeps groups the collaborators of the ingest service.
type IngestDeps struct {
	ListingRepo secondary.ListingRepository
	Health      secondary.StoreHealth
	ChangeLog   secondary.ChangeLog
	Runs        primary.ScrapeRunService
	Tribunals   *TribunalResolver
	Registry    primary.TribunalService
	Matcher     *AlertMatcher
	Observer    secondary.RunObserver
	Logger      *slog.Logger
	// Now and Location define the processing date. Location defaults to UTC.
	Now      func() time.Time
	Location *time.Location
}

// NewIngestService creates a new IngestService with injected dependencies.
func NewIngestService(d IngestDeps) *IngestServiceImpl {
	s := &IngestServiceImpl{
		listingRepo: d.ListingRepo,
		health:      d.Health,
		changeLog:   d.ChangeLog,
		runs:        d.Runs,
		tribunals:   d.Tribunals,
		registry:    d.Registry,
		matcher:     d.Matcher,
		observer:    d.Observer,
		logger:      logging.Module(d.Logger, "ingest"),
		now:         d.Now,
		location:    d.Location,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.location == nil {
		s.location = time.UTC
	}
	return s
}

// Upsert merges one snapshot into the store. Validation failures wrap
// listing.ErrInvalidRecord. When the listing was written but alert matching
// failed, the result is returned together with an error wrapping
// ErrMatchDeferred. Any other error comes from storage and nothing was
// written.
func (s *IngestServiceImpl) Upsert(ctx context.Context, snap listing.Snapshot) (*primary.UpsertResult, error) {
	snap = snap.Normalize()
	if err := listing.Validate(snap); err != nil {
		return nil, err
	}

	now := s.now()
	res, l, err := s.upsert(ctx, snap, now)
	if errors.Is(err, secondary.ErrConflict) {
		// Created concurrently between our read and insert: merge again
		// against the row that won.
		res, l, err = s.upsert(ctx, snap, now)
	}
	if err != nil {
		return nil, err
	}

	if !l.MatchPending {
		return res, nil
	}
	matched, err := s.matcher.MatchListing(ctx, l)
	if err != nil {
		return res, fmt.Errorf("%w: listing %d: %w", ErrMatchDeferred, l.LicitorID, err)
	}
	res.MatchedAlerts = matched
	if err := s.listingRepo.ClearMatchPending(ctx, l.ID); err != nil {
		// The matches stand; the retry finds them already recorded.
		return res, fmt.Errorf("%w: listing %d: %w", ErrMatchDeferred, l.LicitorID, err)
	}
	return res, nil
}

func (s *IngestServiceImpl) upsert(ctx context.Context, snap listing.Snapshot, now time.Time) (*primary.UpsertResult, *listing.Listing, error) {
	existing, err := s.listingRepo.GetByLicitorID(ctx, snap.LicitorID)
	if errors.Is(err, secondary.ErrNotFound) {
		existing = nil
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to load listing %d: %w", snap.LicitorID, err)
	}

	merged := listing.Merge(existing, snap, now)
	l := &merged.Listing

	linked, err := s.linkTribunal(ctx, l, snap, merged.Changes)
	if err != nil {
		return nil, nil, err
	}

	transition := lifecycle.Apply(l, snap.Cancelled, now.In(s.location))

	result := &primary.UpsertResult{
		LicitorID:      l.LicitorID,
		Changes:        merged.Changes,
		Transition:     transition,
		TribunalLinked: linked,
	}

	ledger := merged.Changes
	if !merged.Created && transition.Status != transition.From {
		ledger = append(ledger, listing.FieldChange{Field: "status", Old: string(transition.From), New: string(transition.Status)})
	}
	// Cleared by Upsert once the alerts have been evaluated.
	l.MatchPending = l.MatchPending || merged.Created || len(ledger) > 0

	if merged.Created {
		id, err := s.listingRepo.Create(ctx, l)
		if err != nil {
			return nil, nil, err
		}
		l.ID = id
		result.ListingID = id
		result.Outcome = scraperun.OutcomeCreated
		s.observeTransition(transition)
		return result, l, nil
	}

	if err := s.listingRepo.Update(ctx, l); err != nil {
		return nil, nil, fmt.Errorf("failed to update listing %d: %w", l.LicitorID, err)
	}
	result.ListingID = l.ID

	if err := s.changeLog.LogChanges(ctx, l.ID, ledger, now); err != nil {
		return nil, nil, fmt.Errorf("failed to record changes of listing %d: %w", l.LicitorID, err)
	}

	result.Outcome = scraperun.OutcomeUnchanged
	if len(ledger) > 0 {
		result.Outcome = scraperun.OutcomeUpdated
	}
	s.observeTransition(transition)
	return result, l, nil
}

// linkTribunal sets the tribunal reference from the scraped slug. Unknown
// slugs are registered when the record carries the tribunal name, and
// otherwise left pending until the tribunal is registered.
func (s *IngestServiceImpl) linkTribunal(ctx context.Context, l *listing.Listing, snap listing.Snapshot, changes []listing.FieldChange) (bool, error) {
	for _, c := range changes {
		if c.Field == "tribunal_slug" {
			l.TribunalID = nil
		}
	}
	if l.TribunalID != nil || l.TribunalSlug == nil {
		return false, nil
	}

	t, err := s.tribunals.BySlug(ctx, *l.TribunalSlug)
	if err != nil {
		return false, err
	}
	if t == nil && snap.TribunalName != nil && s.registry != nil {
		resp, err := s.registry.RegisterTribunal(ctx, primary.RegisterTribunalRequest{
			Name: *snap.TribunalName,
			Slug: *l.TribunalSlug,
		})
		if err != nil {
			return false, err
		}
		id := resp.TribunalID
		l.TribunalID = &id
		return true, nil
	}
	if t == nil {
		return false, nil
	}
	id := t.ID
	l.TribunalID = &id
	return true, nil
}

func (s *IngestServiceImpl) observeTransition(t lifecycle.Transition) {
	if s.observer != nil && t.Status != t.From && t.From != "" {
		s.observer.LifecycleTransition(t.Status)
	}
}

// ProcessBatch upserts the items of a batch. Items are partitioned by
// licitor_id: one worker owns every record of an ID and applies them in
// batch order, so the later record wins. Per-record failures are counted
// and the batch goes on; losing the store aborts with ErrStoreUnavailable.
// Cancelling ctx stops the batch between listings.
func (s *IngestServiceImpl) ProcessBatch(ctx context.Context, req primary.ProcessBatchRequest) (*primary.BatchResult, error) {
	workers := req.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		result primary.BatchResult
	)
	tally := func(o scraperun.Outcome, matches int) {
		mu.Lock()
		result.Apply(o)
		result.MatchesCreated += matches
		snapshot := result.Counters
		mu.Unlock()
		if req.Progress != nil {
			req.Progress(snapshot)
		}
	}

	g, gctx := errgroup.WithContext(ctxutil.WithRunID(ctx, req.RunID))
	g.SetLimit(workers)

	for _, group := range partition(req.Items) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for _, item := range group {
				if gctx.Err() != nil {
					return nil
				}
				// A started listing always completes, and its outcome is
				// always recorded.
				uctx := context.WithoutCancel(gctx)
				outcome, matches, err := s.processItem(uctx, item)
				if err != nil {
					return err
				}
				if err := s.runs.Record(uctx, req.RunID, outcome); err != nil {
					if fatal := s.classifyStorageError(uctx, err); fatal != nil {
						return fatal
					}
					return fmt.Errorf("failed to record outcome of line %d: %w", item.Line, err)
				}
				tally(outcome, matches)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &result, err
	}
	result.Cancelled = ctx.Err() != nil && result.Processed() < len(req.Items)
	return &result, nil
}

// processItem returns an error only when the batch must stop.
func (s *IngestServiceImpl) processItem(ctx context.Context, item primary.IngestItem) (scraperun.Outcome, int, error) {
	if item.ParseErr != nil || item.Snapshot == nil {
		s.logger.Warn("rejected record", "line", item.Line, "error", item.ParseErr)
		s.observe(scraperun.OutcomeError)
		return scraperun.OutcomeError, 0, nil
	}

	res, err := s.Upsert(ctx, *item.Snapshot)
	if res != nil {
		if err != nil {
			if fatal := s.classifyStorageError(ctx, err); fatal != nil {
				return "", 0, fatal
			}
			s.logger.Warn("alert matching deferred", "line", item.Line, "licitor_id", res.LicitorID, "error", err)
		}
		s.observe(res.Outcome)
		if s.observer != nil && len(res.MatchedAlerts) > 0 {
			s.observer.MatchesCreated(len(res.MatchedAlerts))
		}
		return res.Outcome, len(res.MatchedAlerts), nil
	}

	if !errors.Is(err, listing.ErrInvalidRecord) {
		if fatal := s.classifyStorageError(ctx, err); fatal != nil {
			return "", 0, fatal
		}
	}
	s.logger.Warn("record failed", "line", item.Line, "licitor_id", item.Snapshot.LicitorID, "error", err)
	s.observe(scraperun.OutcomeError)
	return scraperun.OutcomeError, 0, nil
}

// classifyStorageError decides whether a storage error is fatal by checking
// that the store still answers.
func (s *IngestServiceImpl) classifyStorageError(ctx context.Context, err error) error {
	if s.health == nil {
		return nil
	}
	if perr := s.health.Ping(ctx); perr != nil {
		s.logger.Error("store unavailable", "error", err, "ping", perr)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *IngestServiceImpl) observe(o scraperun.Outcome) {
	if s.observer != nil {
		s.observer.ListingProcessed(o)
	}
}

// partition groups items by licitor_id in order of first appearance.
// Undecodable items form groups of their own.
func partition(items []primary.IngestItem) [][]primary.IngestItem {
	var groups [][]primary.IngestItem
	index := make(map[int64]int)
	for _, it := range items {
		if it.Snapshot == nil {
			groups = append(groups, []primary.IngestItem{it})
			continue
		}
		id := it.Snapshot.LicitorID
		if i, ok := index[id]; ok {
			groups[i] = append(groups[i], it)
			continue
		}
		index[id] = len(groups)
		groups = append(groups, []primary.IngestItem{it})
	}
	return groups
}

// Ensure IngestServiceImpl implements the interface.
var _ primary.IngestService = (*IngestServiceImpl)(nil)
