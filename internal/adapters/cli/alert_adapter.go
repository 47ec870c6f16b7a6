package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/example/encheres/internal/core/alert"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// AlertAdapter translates alert and match commands to service calls.
type AlertAdapter struct {
	alerts  primary.AlertService
	matches primary.MatchService
	out     io.Writer
}

// NewAlertAdapter creates a new AlertAdapter.
func NewAlertAdapter(alerts primary.AlertService, matches primary.MatchService, out io.Writer) *AlertAdapter {
	return &AlertAdapter{
		alerts:  alerts,
		matches: matches,
		out:     out,
	}
}

// Create creates an alert.
func (a *AlertAdapter) Create(ctx context.Context, name string, criteria alert.Criteria) error {
	created, err := a.alerts.CreateAlert(ctx, primary.CreateAlertRequest{Name: name, Criteria: criteria})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Created alert %d: %s\n", okMark, created.ID, created.Name)
	return nil
}

// List lists alerts.
func (a *AlertAdapter) List(ctx context.Context, activeOnly bool) error {
	alerts, err := a.alerts.ListAlerts(ctx, activeOnly)
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}
	if len(alerts) == 0 {
		fmt.Fprintln(a.out, "No alerts found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-5s %-8s %-24s %s\n", "ID", "STATE", "NAME", "CRITERIA")
	fmt.Fprintln(a.out, rule)
	for _, al := range alerts {
		state := "active"
		if !al.IsActive {
			state = "disabled"
		}
		fmt.Fprintf(a.out, "%-5d %-8s %-24s %s\n", al.ID, state, al.Name, describe(al.Criteria))
	}
	fmt.Fprintln(a.out)
	return nil
}

// Show displays one alert.
func (a *AlertAdapter) Show(ctx context.Context, id int64) error {
	al, err := a.alerts.GetAlert(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get alert: %w", err)
	}
	c := al.Criteria
	fmt.Fprintf(a.out, "\nAlert:       %d\n", al.ID)
	fmt.Fprintf(a.out, "Name:        %s\n", al.Name)
	fmt.Fprintf(a.out, "Active:      %t\n", al.IsActive)
	fmt.Fprintf(a.out, "Price:       %s .. %s\n", euros(c.MinPrice), euros(c.MaxPrice))
	fmt.Fprintf(a.out, "Surface:     %s .. %s\n", surface(c.MinSurface), surface(c.MaxSurface))
	fmt.Fprintf(a.out, "Departments: %s\n", setOrAny(c.DepartmentCodes))
	fmt.Fprintf(a.out, "Regions:     %s\n", setOrAny(c.Regions))
	fmt.Fprintf(a.out, "Types:       %s\n", setOrAny(c.PropertyTypes))
	fmt.Fprintf(a.out, "Tribunals:   %s\n", setOrAny(c.TribunalSlugs))
	fmt.Fprintf(a.out, "Created:     %s\n\n", stamp(al.CreatedAt))
	return nil
}

// SetActive enables or disables an alert.
func (a *AlertAdapter) SetActive(ctx context.Context, id int64, active bool) error {
	if err := a.alerts.SetAlertActive(ctx, id, active); err != nil {
		return err
	}
	verb := "enabled"
	if !active {
		verb = "disabled"
	}
	fmt.Fprintf(a.out, "%s Alert %d %s\n", okMark, id, verb)
	return nil
}

// Rematch evaluates an alert against live listings.
func (a *AlertAdapter) Rematch(ctx context.Context, id int64) error {
	resp, err := a.alerts.Rematch(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s Alert %d evaluated against %d listings, %d new matches\n",
		okMark, id, resp.Evaluated, resp.MatchesCreated)
	return nil
}

// Matches lists matches, unseen only unless includeSeen.
func (a *AlertAdapter) Matches(ctx context.Context, filters secondary.MatchFilters) error {
	matches, err := a.matches.ListMatches(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(a.out, "No matches found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-6s %-18s %-10s %-4s %-16s %-14s %-11s %s\n",
		"ID", "ALERT", "LICITOR", "DEPT", "CITY", "MISE A PRIX", "AUCTION", "URL")
	fmt.Fprintln(a.out, rule)
	for _, m := range matches {
		id := fmt.Sprintf("%d", m.ID)
		if !m.IsSeen {
			id = bold(id)
		}
		fmt.Fprintf(a.out, "%-6s %-18s %-10d %-4s %-16s %-14s %-11s %s\n",
			id, m.AlertName, m.LicitorID, orDash(m.DepartmentCode), orDash(m.City),
			euros(m.MiseAPrix), orDash(m.AuctionDate), orDash(m.URLPath))
	}
	fmt.Fprintln(a.out)
	return nil
}

// MarkSeen flags matches as seen.
func (a *AlertAdapter) MarkSeen(ctx context.Context, ids []int64) error {
	n, err := a.matches.MarkSeen(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to mark matches seen: %w", err)
	}
	fmt.Fprintf(a.out, "%s %d matches marked as seen\n", okMark, n)
	return nil
}

func setOrAny(s alert.Set) string {
	if s.IsEmpty() {
		return "any"
	}
	return s.String()
}

func describe(c alert.Criteria) string {
	var parts []string
	if c.MinPrice != nil || c.MaxPrice != nil {
		parts = append(parts, "price "+euros(c.MinPrice)+".."+euros(c.MaxPrice))
	}
	if c.MinSurface != nil || c.MaxSurface != nil {
		parts = append(parts, "surface "+surface(c.MinSurface)+".."+surface(c.MaxSurface))
	}
	for _, d := range []struct {
		label string
		set   alert.Set
	}{
		{"dept", c.DepartmentCodes},
		{"region", c.Regions},
		{"type", c.PropertyTypes},
		{"tribunal", c.TribunalSlugs},
	} {
		if !d.set.IsEmpty() {
			parts = append(parts, d.label+" "+d.set.String())
		}
	}
	if len(parts) == 0 {
		return "everything"
	}
	return strings.Join(parts, "; ")
}
