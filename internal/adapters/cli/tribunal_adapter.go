package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// TribunalAdapter translates tribunal registry commands to service calls.
type TribunalAdapter struct {
	service primary.TribunalService
	out     io.Writer
}

// NewTribunalAdapter creates a new TribunalAdapter.
func NewTribunalAdapter(service primary.TribunalService, out io.Writer) *TribunalAdapter {
	return &TribunalAdapter{
		service: service,
		out:     out,
	}
}

// Add registers one tribunal.
func (a *TribunalAdapter) Add(ctx context.Context, req primary.RegisterTribunalRequest) error {
	resp, err := a.service.RegisterTribunal(ctx, req)
	if err != nil {
		return err
	}
	verb := "Updated"
	if resp.Created {
		verb = "Registered"
	}
	fmt.Fprintf(a.out, "%s %s tribunal %d (%s)", okMark, verb, resp.TribunalID, req.Slug)
	if resp.ListingsLinked > 0 {
		fmt.Fprintf(a.out, ", linked %d pending listings", resp.ListingsLinked)
	}
	fmt.Fprintln(a.out)
	return nil
}

// Import registers every entry of a registry file.
func (a *TribunalAdapter) Import(ctx context.Context, entries []primary.RegisterTribunalRequest) error {
	resp, err := a.service.ImportTribunals(ctx, entries)
	if err != nil {
		if resp != nil {
			fmt.Fprintf(a.out, "%s Stopped after %d created, %d updated\n", warnMark, resp.Created, resp.Updated)
		}
		return err
	}
	fmt.Fprintf(a.out, "%s Imported %d tribunals: %d created, %d updated, %d listings linked\n",
		okMark, len(entries), resp.Created, resp.Updated, resp.ListingsLinked)
	return nil
}

// List prints every tribunal.
func (a *TribunalAdapter) List(ctx context.Context) error {
	tribunals, err := a.service.ListTribunals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tribunals: %w", err)
	}
	a.print(tribunals)
	return nil
}

// Search prints the best fuzzy matches for a query.
func (a *TribunalAdapter) Search(ctx context.Context, query string, limit int) error {
	tribunals, err := a.service.SearchTribunals(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("failed to search tribunals: %w", err)
	}
	a.print(tribunals)
	return nil
}

func (a *TribunalAdapter) print(tribunals []*secondary.TribunalRecord) {
	if len(tribunals) == 0 {
		fmt.Fprintln(a.out, "No tribunals found")
		return
	}
	fmt.Fprintf(a.out, "\n%-5s %-24s %-28s %s\n", "ID", "SLUG", "REGION", "NAME")
	fmt.Fprintln(a.out, rule)
	for _, t := range tribunals {
		fmt.Fprintf(a.out, "%-5d %-24s %-28s %s\n", t.ID, t.Slug, orDash(t.Region), t.Name)
	}
	fmt.Fprintln(a.out)
}
