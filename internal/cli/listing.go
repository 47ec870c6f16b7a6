package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
	"github.com/example/encheres/internal/wire"
)

// ListingCmd returns the listing command
func ListingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listing",
		Short: "Inspect listings and maintain their lifecycle",
	}

	cmd.AddCommand(listingShowCmd())
	cmd.AddCommand(listingAdvanceCmd())
	cmd.AddCommand(listingCandidatesCmd())
	cmd.AddCommand(listingHistoryCmd())
	return cmd
}

func listingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [licitor-id]",
		Short: "Show a listing with its effective result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("licitor", args[0])
			if err != nil {
				return err
			}
			if err := services(); err != nil {
				return err
			}
			return wire.ListingAdapter().Show(cmd.Context(), id)
		},
	}
}

func listingAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move upcoming listings whose date has passed to past",
		Long: `Re-evaluate every upcoming listing against today's date in the
configured time zone. Safe to run from cron; a second run changes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.ListingAdapter().Advance(cmd.Context())
		},
	}
}

func listingCandidatesCmd() *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Print listings the fetcher should scrape again, as JSONL",
		Long: `Print one {"licitor_id", "url_path"} object per line.

Kinds:
  detail   listings never detail scraped, soonest auction first
  map      listings with a result but no mise à prix
  surface  listings with a result but no surface`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services(); err != nil {
				return err
			}
			return wire.ListingAdapter().Candidates(cmd.Context(), secondary.CandidateKind(kind), limit)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(secondary.CandidateDetail), "Candidate kind (detail, map, surface)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of candidates")
	return cmd
}

func listingHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [licitor-id]",
		Short: "Show the recorded field changes of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("licitor", args[0])
			if err != nil {
				return err
			}
			if err := services(); err != nil {
				return err
			}
			return wire.ListingAdapter().History(cmd.Context(), id, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of changes")
	return cmd
}

// AdjudicationCmd returns the adjudication command
func AdjudicationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjudication",
		Short: "Record auction results from outside the scraped pages",
	}

	cmd.AddCommand(adjudicationSetCmd())
	return cmd
}

func adjudicationSetCmd() *cobra.Command {
	var req primary.SetAdjudicationRequest

	cmd := &cobra.Command{
		Use:   "set [licitor-id]",
		Short: "Set the final price of a listing",
		Long: `Record a corrected result. It overrides the scraped result when the
listing is shown; the scraped values are kept.

Examples:
  encheres adjudication set 104233 --price 162000 --source external --status sold --date 2025-02-11`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("licitor", args[0])
			if err != nil {
				return err
			}
			req.LicitorID = id
			if err := services(); err != nil {
				return err
			}
			if err := wire.ListingAdapter().SetAdjudication(cmd.Context(), req); err != nil {
				return fmt.Errorf("failed to set adjudication: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Int64VarP(&req.FinalPrice, "price", "p", 0, "Final price in euros")
	cmd.Flags().StringVar(&req.PriceSource, "source", "", "Price source (manual, external, estimated)")
	cmd.Flags().StringVar(&req.ResultStatus, "status", "", "Result status (sold, carence, non_requise)")
	cmd.Flags().StringVar(&req.ResultDate, "date", "", "Result date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	cmd.MarkFlagRequired("price")
	return cmd
}
