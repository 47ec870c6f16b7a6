// Package wire provides dependency injection for the encheres application.
// It creates singleton services with lazy initialization.
package wire

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cliadapter "github.com/example/encheres/internal/adapters/cli"
	"github.com/example/encheres/internal/adapters/filesystem"
	"github.com/example/encheres/internal/adapters/sqlite"
	"github.com/example/encheres/internal/app"
	"github.com/example/encheres/internal/config"
	"github.com/example/encheres/internal/db"
	"github.com/example/encheres/internal/logging"
	"github.com/example/encheres/internal/metrics"
	"github.com/example/encheres/internal/ports/primary"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	runIngestService    primary.RunIngestService
	scrapeRunService    primary.ScrapeRunService
	tribunalService     primary.TribunalService
	alertService        primary.AlertService
	matchService        primary.MatchService
	listingService      primary.ListingService
	adjudicationService primary.AdjudicationService
	historyService      primary.HistoryService

	pipelineMetrics *metrics.PipelineMetrics
	progress        *filesystem.ProgressAdapter

	once    sync.Once
	initErr error
)

// Configure sets the configuration and logger used by the services.
// It must be called before the first service accessor.
func Configure(c *config.Config, l *slog.Logger) {
	cfg = c
	logger = l
}

// Init builds every service and returns the first construction error.
func Init() error {
	once.Do(initServices)
	return initErr
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	if cfg == nil {
		initErr = fmt.Errorf("wire: Configure was not called")
		return
	}
	if logger == nil {
		logger = logging.Discard()
	}

	db.Configure(cfg.Database.Path, cfg.Database.BusyTimeoutMS)
	database, err := db.GetDB()
	if err != nil {
		initErr = fmt.Errorf("failed to initialize database: %w", err)
		return
	}

	pipelineMetrics, err = metrics.NewPipelineMetrics(prometheus.NewRegistry())
	if err != nil {
		initErr = err
		return
	}
	progress, err = filesystem.NewProgressAdapter(cfg.Progress.Dir, time.Now)
	if err != nil {
		initErr = err
		return
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	listingRepo := sqlite.NewListingRepository(database)
	tribunalRepo := sqlite.NewTribunalRepository(database)
	changeRepo := sqlite.NewListingChangeRepository(database)
	changeLog := sqlite.NewChangeLogAdapter(changeRepo)
	adjudicationRepo := sqlite.NewAdjudicationRepository(database)
	alertRepo := sqlite.NewAlertRepository(database)
	matchRepo := sqlite.NewAlertMatchRepository(database)
	runRepo := sqlite.NewScrapeRunRepository(database)

	resolver := app.NewTribunalResolver(tribunalRepo)
	matcher := app.NewAlertMatcher(alertRepo, matchRepo, resolver, time.Now)
	location := cfg.Location()

	// Create services (primary ports implementation)
	scrapeRunService = app.NewScrapeRunService(runRepo, time.Now)
	tribunalService = app.NewTribunalService(tribunalRepo, listingRepo, resolver)
	ingestService := app.NewIngestService(app.IngestDeps{
		ListingRepo: listingRepo,
		Health:      listingRepo,
		ChangeLog:   changeLog,
		Runs:        scrapeRunService,
		Tribunals:   resolver,
		Registry:    tribunalService,
		Matcher:     matcher,
		Observer:    pipelineMetrics,
		Logger:      logger,
		Now:         time.Now,
		Location:    location,
	})
	runIngestService = app.NewRunIngestService(ingestService, scrapeRunService, progress, pipelineMetrics, logger, time.Now)
	alertService = app.NewAlertService(alertRepo, listingRepo, matcher, time.Now)
	matchService = app.NewMatchService(matchRepo)
	listingService = app.NewListingService(listingRepo, adjudicationRepo, changeLog, resolver, pipelineMetrics, time.Now, location)
	adjudicationService = app.NewAdjudicationService(listingRepo, adjudicationRepo)
	historyService = app.NewHistoryService(listingRepo, changeRepo)
}

// Metrics returns the pipeline metrics of this process.
func Metrics() *metrics.PipelineMetrics {
	once.Do(initServices)
	return pipelineMetrics
}

// Progress returns the progress file writer of this process.
func Progress() *filesystem.ProgressAdapter {
	once.Do(initServices)
	return progress
}

// CancelFlag returns the cancel flag in the configured run directory.
// It does not open the database.
func CancelFlag() *filesystem.CancelFlag {
	return filesystem.NewCancelFlag(cfg.Progress.Dir)
}

// RunAdapter returns a new RunAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func RunAdapter() *cliadapter.RunAdapter {
	return RunAdapterWithOutput(os.Stdout)
}

// RunAdapterWithOutput returns a new RunAdapter writing to the given output.
func RunAdapterWithOutput(out io.Writer) *cliadapter.RunAdapter {
	once.Do(initServices)
	return cliadapter.NewRunAdapter(runIngestService, scrapeRunService, out)
}

// AlertAdapter returns a new AlertAdapter writing to stdout.
func AlertAdapter() *cliadapter.AlertAdapter {
	return AlertAdapterWithOutput(os.Stdout)
}

// AlertAdapterWithOutput returns a new AlertAdapter writing to the given output.
func AlertAdapterWithOutput(out io.Writer) *cliadapter.AlertAdapter {
	once.Do(initServices)
	return cliadapter.NewAlertAdapter(alertService, matchService, out)
}

// TribunalAdapter returns a new TribunalAdapter writing to stdout.
func TribunalAdapter() *cliadapter.TribunalAdapter {
	return TribunalAdapterWithOutput(os.Stdout)
}

// TribunalAdapterWithOutput returns a new TribunalAdapter writing to the given output.
func TribunalAdapterWithOutput(out io.Writer) *cliadapter.TribunalAdapter {
	once.Do(initServices)
	return cliadapter.NewTribunalAdapter(tribunalService, out)
}

// ListingAdapter returns a new ListingAdapter writing to stdout.
func ListingAdapter() *cliadapter.ListingAdapter {
	return ListingAdapterWithOutput(os.Stdout)
}

// ListingAdapterWithOutput returns a new ListingAdapter writing to the given output.
func ListingAdapterWithOutput(out io.Writer) *cliadapter.ListingAdapter {
	once.Do(initServices)
	return cliadapter.NewListingAdapter(listingService, historyService, adjudicationService, out)
}
