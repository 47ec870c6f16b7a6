package app

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/encheres/internal/adapters/sqlite"
	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/db"
	"github.com/example/encheres/internal/logging"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// fakeClock is a settable time source shared by every service of an env.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// recordingObserver implements secondary.RunObserver for assertions.
type recordingObserver struct {
	mu          sync.Mutex
	outcomes    map[scraperun.Outcome]int
	matches     int
	transitions map[listing.Status]int
	finished    []scraperun.Type
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		outcomes:    make(map[scraperun.Outcome]int),
		transitions: make(map[listing.Status]int),
	}
}

func (o *recordingObserver) ListingProcessed(outcome scraperun.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func (o *recordingObserver) MatchesCreated(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.matches += n
}

func (o *recordingObserver) LifecycleTransition(to listing.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions[to]++
}

func (o *recordingObserver) RunFinished(typ scraperun.Type, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, typ)
}

// recordingProgress implements secondary.ProgressReporter for assertions.
type recordingProgress struct {
	mu      sync.Mutex
	reports []secondary.Progress
}

func (p *recordingProgress) Report(pr secondary.Progress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, pr)
	return nil
}

func (p *recordingProgress) last() secondary.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reports[len(p.reports)-1]
}

// testEnv wires every service over one in-memory database.
type testEnv struct {
	db       *sql.DB
	clock    *fakeClock
	observer *recordingObserver
	progress *recordingProgress

	listingRepo *sqlite.ListingRepository
	ingest      *IngestServiceImpl
	runs        *ScrapeRunServiceImpl
	runIngest   *RunIngestServiceImpl
	alerts      *AlertServiceImpl
	matches     *MatchServiceImpl
	tribunals   *TribunalServiceImpl
	listings    *ListingServiceImpl
	adjudicate  *AdjudicationServiceImpl
	history     *HistoryServiceImpl
}

var testStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)
	if err := db.InitSchema(testDB); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })

	env := &testEnv{
		db:       testDB,
		clock:    &fakeClock{t: testStart},
		observer: newRecordingObserver(),
		progress: &recordingProgress{},
	}

	env.listingRepo = sqlite.NewListingRepository(testDB)
	tribunalRepo := sqlite.NewTribunalRepository(testDB)
	changeRepo := sqlite.NewListingChangeRepository(testDB)
	changeLog := sqlite.NewChangeLogAdapter(changeRepo)
	adjudicationRepo := sqlite.NewAdjudicationRepository(testDB)
	alertRepo := sqlite.NewAlertRepository(testDB)
	matchRepo := sqlite.NewAlertMatchRepository(testDB)
	runRepo := sqlite.NewScrapeRunRepository(testDB)

	resolver := NewTribunalResolver(tribunalRepo)
	matcher := NewAlertMatcher(alertRepo, matchRepo, resolver, env.clock.Now)
	logger := logging.Discard()

	env.runs = NewScrapeRunService(runRepo, env.clock.Now)
	env.tribunals = NewTribunalService(tribunalRepo, env.listingRepo, resolver)
	env.ingest = NewIngestService(IngestDeps{
		ListingRepo: env.listingRepo,
		Health:      env.listingRepo,
		ChangeLog:   changeLog,
		Runs:        env.runs,
		Tribunals:   resolver,
		Registry:    env.tribunals,
		Matcher:     matcher,
		Observer:    env.observer,
		Logger:      logger,
		Now:         env.clock.Now,
	})
	env.runIngest = NewRunIngestService(env.ingest, env.runs, env.progress, env.observer, logger, env.clock.Now)
	env.alerts = NewAlertService(alertRepo, env.listingRepo, matcher, env.clock.Now)
	env.matches = NewMatchService(matchRepo)
	env.listings = NewListingService(env.listingRepo, adjudicationRepo, changeLog, resolver, env.observer, env.clock.Now, time.UTC)
	env.adjudicate = NewAdjudicationService(env.listingRepo, adjudicationRepo)
	env.history = NewHistoryService(env.listingRepo, changeRepo)
	return env
}

func strp(s string) *string   { return &s }
func i64p(v int64) *int64     { return &v }
func f64p(v float64) *float64 { return &v }

// indexSnap builds an index-page snapshot with the usual index fields.
func indexSnap(id int64, dept string, price int64, date string) listing.Snapshot {
	s := listing.Snapshot{LicitorID: id, Page: listing.PageIndex}
	s.URLPath = strp("/annonce/" + dept + "/vente.html")
	s.DepartmentCode = strp(dept)
	s.City = strp("Paris")
	s.PropertyType = strp("Appartement")
	s.MiseAPrix = i64p(price)
	s.AuctionDate = strp(date)
	return s
}

func item(line int, s listing.Snapshot) primary.IngestItem {
	return primary.IngestItem{Line: line, Snapshot: &s}
}
