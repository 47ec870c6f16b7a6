package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/encheres/internal/adapters/feed"
	"github.com/example/encheres/internal/adapters/filesystem"
	"github.com/example/encheres/internal/core/scraperun"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/telemetry"
	"github.com/example/encheres/internal/wire"
)

// cancelPollInterval is how often a running batch checks the cancel flag.
const cancelPollInterval = time.Second

// RunCmd returns the run command
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest scraped listings and inspect scrape runs",
	}

	cmd.AddCommand(runIngestCmd())
	cmd.AddCommand(runListCmd())
	cmd.AddCommand(runStaleCmd())
	cmd.AddCommand(runCancelCmd())
	cmd.AddCommand(runProgressCmd())
	return cmd
}

func runIngestCmd() *cobra.Command {
	var (
		scrapeType string
		file       string
		pages      int
		notes      string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a JSONL feed of scraped listings as one scrape run",
		Long: `Read one listing snapshot per line and process them as a scrape run.

The run can be stopped between listings with Ctrl-C or 'encheres run cancel'
from another terminal. Counters and notes are recorded either way.

Examples:
  encheres run ingest --type full_index --file index.jsonl --pages 42
  fetcher --detail | encheres run ingest --type detail_backfill`,
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := scraperun.ParseType(scrapeType)
			if err != nil {
				return err
			}
			items, err := readFeed(file)
			if err != nil {
				return err
			}
			if workers == 0 {
				workers = cfg.Pipeline.Workers
			}

			lock, err := filesystem.AcquireRunLock(cfg.Progress.Dir)
			if err != nil {
				return err
			}
			defer lock.Release()

			if err := services(); err != nil {
				return err
			}

			flag := wire.CancelFlag()
			if err := flag.Clear(); err != nil {
				return err
			}
			ctx, stop := flag.Watch(cmd.Context(), cancelPollInterval)
			defer stop()

			resp, err := wire.RunAdapter().Ingest(ctx, primary.RunIngestRequest{
				Type:         typ,
				Items:        items,
				PagesScraped: pages,
				Notes:        notes,
				Workers:      workers,
			})

			if werr := wire.Metrics().WriteToTextfile(cfg.Metrics.Textfile); werr != nil {
				logger.Warn("metrics textfile not written", "err", werr)
			}
			if err != nil {
				tags := map[string]string{"command": "run ingest", "scrape_type": string(typ)}
				if resp != nil && resp.Run != nil {
					tags["run_id"] = fmt.Sprintf("%d", resp.Run.ID)
				}
				telemetry.CaptureError(err, tags)
				telemetry.Flush(2 * time.Second)
				return err
			}
			if resp.Result.Cancelled {
				return flag.Clear()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&scrapeType, "type", "t", "", "Scrape type (full_index, incremental, history, detail_backfill, map_backfill, surface_backfill)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSONL feed to read, - for stdin")
	cmd.Flags().IntVar(&pages, "pages", 0, "Number of pages the fetcher scraped")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form run notes")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent workers (default: pipeline.workers)")
	cmd.MarkFlagRequired("type")
	return cmd
}

func readFeed(file string) ([]primary.IngestItem, error) {
	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open feed: %w", err)
		}
		defer f.Close()
		r = f
	}
	items, err := feed.DecodeJSONL(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	return items, nil
}

func runListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent scrape runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.RunAdapter().List(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	return cmd
}

func runStaleCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "stale",
		Short: "Report runs that were never finished",
		Long: `List open runs started longer ago than --older-than.

Exits non-zero when any is found, so it can drive a cron alert.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			n, err := wire.RunAdapter().Stale(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			if n > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d stale scrape runs", n)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 6*time.Hour, "Age after which an open run is stale")
	return cmd
}

func runCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Ask the running ingest to stop after the current listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			open, err := wire.RunAdapter().Open(cmd.Context())
			if err != nil {
				return err
			}
			if err := scraperun.CanCancel(open).Error(); err != nil {
				return err
			}
			if err := wire.CancelFlag().Request(); err != nil {
				return err
			}
			fmt.Printf("✓ Cancellation requested for %d open run(s)\n", len(open))
			return nil
		},
	}
}

func runProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Print the progress file of the current or last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := filesystem.ReadProgress(cfg.Progress.Dir)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Println("No run has reported progress")
				return nil
			}
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
