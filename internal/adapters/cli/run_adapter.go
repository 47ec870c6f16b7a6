package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/primary"
)

// RunAdapter translates scrape run commands to service calls.
type RunAdapter struct {
	ingest primary.RunIngestService
	runs   primary.ScrapeRunService
	out    io.Writer
}

// NewRunAdapter creates a new RunAdapter.
func NewRunAdapter(ingest primary.RunIngestService, runs primary.ScrapeRunService, out io.Writer) *RunAdapter {
	return &RunAdapter{
		ingest: ingest,
		runs:   runs,
		out:    out,
	}
}

// Ingest runs one batch and prints its summary.
func (a *RunAdapter) Ingest(ctx context.Context, req primary.RunIngestRequest) (*primary.RunIngestResponse, error) {
	resp, err := a.ingest.RunIngest(ctx, req)
	if err != nil {
		if resp != nil && resp.Run != nil {
			fmt.Fprintf(a.out, "%s Run %d aborted after %d records\n", warnMark, resp.Run.ID, processed(resp))
		}
		return resp, err
	}

	run := resp.Run
	fmt.Fprintf(a.out, "%s Run %d (%s) finished in %s\n", okMark, run.ID, run.Type, resp.Duration.Round(time.Millisecond))
	fmt.Fprintf(a.out, "  new: %d  updated: %d  unchanged: %d  errors: %d  pages: %d\n",
		run.ListingsNew, run.ListingsUpdated, resp.Result.Unchanged, run.Errors, run.PagesScraped)
	if resp.Result.MatchesCreated > 0 {
		fmt.Fprintf(a.out, "  %s new alert matches\n", bold(resp.Result.MatchesCreated))
	}
	if resp.Result.Cancelled {
		fmt.Fprintf(a.out, "%s Cancelled before the end of the batch\n", warnMark)
	}
	return resp, nil
}

func processed(resp *primary.RunIngestResponse) int {
	if resp.Result == nil {
		return 0
	}
	return resp.Result.Processed()
}

// List prints the most recent runs.
func (a *RunAdapter) List(ctx context.Context, limit int) error {
	runs, err := a.runs.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No scrape runs found")
		return nil
	}
	a.printRuns(runs)
	return nil
}

// Stale prints open runs older than the threshold and returns how many
// there are.
func (a *RunAdapter) Stale(ctx context.Context, olderThan time.Duration) (int, error) {
	runs, err := a.runs.StaleRuns(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(a.out, "%s No run open for more than %s\n", okMark, olderThan)
		return 0, nil
	}
	a.printRuns(runs)
	return len(runs), nil
}

func (a *RunAdapter) printRuns(runs []*scraperun.Run) {
	now := time.Now()
	fmt.Fprintf(a.out, "\n%-6s %-16s %-17s %-10s %5s %5s %5s %5s  %s\n",
		"ID", "TYPE", "STARTED", "DURATION", "NEW", "UPD", "ERR", "PAGES", "NOTES")
	fmt.Fprintln(a.out, rule)
	for _, r := range runs {
		dur := r.Duration(now).Round(time.Second).String()
		if r.IsOpen() {
			dur = "open " + dur
		}
		fmt.Fprintf(a.out, "%-6d %-16s %-17s %-10s %5d %5d %5d %5d  %s\n",
			r.ID, r.Type, stamp(r.StartedAt), dur, r.ListingsNew, r.ListingsUpdated, r.Errors, r.PagesScraped, dim(r.Notes))
	}
	fmt.Fprintln(a.out)
}

// Open returns the unfinished runs.
func (a *RunAdapter) Open(ctx context.Context) ([]*scraperun.Run, error) {
	return a.runs.ListOpenRuns(ctx)
}
