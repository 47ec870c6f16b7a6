package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// ListingAdapter translates listing, history and adjudication commands to
// service calls.
type ListingAdapter struct {
	listings     primary.ListingService
	history      primary.HistoryService
	adjudication primary.AdjudicationService
	out          io.Writer
}

// NewListingAdapter creates a new ListingAdapter.
func NewListingAdapter(listings primary.ListingService, history primary.HistoryService, adjudication primary.AdjudicationService, out io.Writer) *ListingAdapter {
	return &ListingAdapter{
		listings:     listings,
		history:      history,
		adjudication: adjudication,
		out:          out,
	}
}

// Show displays a listing with its effective result.
func (a *ListingAdapter) Show(ctx context.Context, licitorID int64) error {
	d, err := a.listings.GetListing(ctx, licitorID)
	if err != nil {
		return fmt.Errorf("failed to get listing: %w", err)
	}
	l := d.Listing

	tribunal := orDash(l.TribunalSlug)
	if d.Tribunal != nil {
		tribunal = d.Tribunal.Name
		if d.Tribunal.Region != nil {
			tribunal += " (" + *d.Tribunal.Region + ")"
		}
	} else if l.TribunalSlug != nil {
		tribunal += dim(" (pending)")
	}

	fmt.Fprintf(a.out, "\nListing:   %s\n", bold(l.LicitorID))
	fmt.Fprintf(a.out, "Status:    %s", l.Status)
	if l.IsHistorical {
		fmt.Fprint(a.out, dim(" (historical)"))
	}
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "URL:       %s\n", orDash(l.URLPath))
	fmt.Fprintf(a.out, "Tribunal:  %s\n", tribunal)
	fmt.Fprintf(a.out, "Property:  %s, %s\n", orDash(l.PropertyType), surface(l.SurfaceM2))
	fmt.Fprintf(a.out, "Location:  %s (%s)\n", orDash(l.City), orDash(l.DepartmentCode))
	fmt.Fprintf(a.out, "Auction:   %s %s\n", orDash(l.AuctionDate), orDash(l.AuctionTime))
	fmt.Fprintf(a.out, "Mise à prix: %s\n", euros(l.MiseAPrix))

	eff := d.Effective
	if eff.Status != nil || eff.FinalPrice != nil {
		status := "-"
		if eff.Status != nil {
			status = string(*eff.Status)
		}
		fmt.Fprintf(a.out, "Result:    %s %s on %s [%s]\n", status, euros(eff.FinalPrice), orDash(eff.Date), eff.Source)
		if d.Adjudication != nil && l.FinalPrice != nil {
			fmt.Fprintf(a.out, "Scraped:   %s\n", dim(euros(l.FinalPrice)))
		}
	}
	fmt.Fprintf(a.out, "Scraped:   first %s, last %s, detail %t\n\n",
		stamp(l.FirstScrapedAt), stamp(l.LastScrapedAt), l.DetailScraped)
	return nil
}

// Advance runs the lifecycle sweep.
func (a *ListingAdapter) Advance(ctx context.Context) error {
	resp, err := a.listings.AdvanceLifecycle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Evaluated %d upcoming listings", okMark, resp.Evaluated)

	statuses := make([]string, 0, len(resp.Transitions))
	for st := range resp.Transitions {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(a.out, ", %d → %s", resp.Transitions[listing.Status(st)], st)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Candidates writes one JSON object per line for the external fetcher.
func (a *ListingAdapter) Candidates(ctx context.Context, kind secondary.CandidateKind, limit int) error {
	candidates, err := a.listings.Candidates(ctx, kind, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	for _, c := range candidates {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to write candidate: %w", err)
		}
	}
	return nil
}

// History prints the change ledger of a listing.
func (a *ListingAdapter) History(ctx context.Context, licitorID int64, limit int) error {
	changes, err := a.history.ListChanges(ctx, licitorID, limit)
	if err != nil {
		return fmt.Errorf("failed to list changes: %w", err)
	}
	if len(changes) == 0 {
		fmt.Fprintln(a.out, "No changes recorded")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-17s %-6s %-20s %-20s %s\n", "WHEN", "RUN", "FIELD", "OLD", "NEW")
	fmt.Fprintln(a.out, rule)
	for _, c := range changes {
		run := "-"
		if c.ScrapeRunID != nil {
			run = fmt.Sprintf("%d", *c.ScrapeRunID)
		}
		fmt.Fprintf(a.out, "%-17s %-6s %-20s %-20s %s\n",
			stamp(c.ChangedAt), run, c.FieldName, orDash(c.OldValue), orDash(c.NewValue))
	}
	fmt.Fprintln(a.out)
	return nil
}

// SetAdjudication records a result correction.
func (a *ListingAdapter) SetAdjudication(ctx context.Context, req primary.SetAdjudicationRequest) error {
	rec, err := a.adjudication.SetAdjudication(ctx, req)
	if err != nil {
		return err
	}
	price := rec.FinalPrice
	fmt.Fprintf(a.out, "%s Listing %d adjudicated at %s (%s)\n", okMark, req.LicitorID, euros(&price), rec.PriceSource)
	return nil
}
