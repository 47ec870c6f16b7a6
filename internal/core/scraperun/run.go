// Package scraperun contains the pure business logic for scrape run records.
// Guards are pure functions that evaluate preconditions without side effects.
package scraperun

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRunFinished is returned when a finished run is written to.
var ErrRunFinished = errors.New("scrape run already finished")

// ErrInvalidType is returned for a scrape type outside the closed set.
var ErrInvalidType = errors.New("invalid scrape type")

// Type tags what kind of batch a run executes.
type Type string

const (
	TypeFullIndex       Type = "full_index"
	TypeIncremental     Type = "incremental"
	TypeHistory         Type = "history"
	TypeDetailBackfill  Type = "detail_backfill"
	TypeMapBackfill     Type = "map_backfill"
	TypeSurfaceBackfill Type = "surface_backfill"
)

// Types lists every valid scrape type.
func Types() []Type {
	return []Type{TypeFullIndex, TypeIncremental, TypeHistory, TypeDetailBackfill, TypeMapBackfill, TypeSurfaceBackfill}
}

// ParseType validates a scrape type.
func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if string(t) == s {
			return t, nil
		}
	}
	names := make([]string, 0, 6)
	for _, t := range Types() {
		names = append(names, string(t))
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrInvalidType, s, strings.Join(names, ", "))
}

// Outcome is the result of processing one record.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeError     Outcome = "error"
)

// Counters are the per-run tallies.
type Counters struct {
	PagesScraped    int
	ListingsNew     int
	ListingsUpdated int
	Errors          int
	// Unchanged has no column; it is reported in the notes.
	Unchanged int
}

// Apply tallies one outcome.
func (c *Counters) Apply(o Outcome) {
	switch o {
	case OutcomeCreated:
		c.ListingsNew++
	case OutcomeUpdated:
		c.ListingsUpdated++
	case OutcomeUnchanged:
		c.Unchanged++
	case OutcomeError:
		c.Errors++
	}
}

// Processed is the number of records handled so far.
func (c Counters) Processed() int {
	return c.ListingsNew + c.ListingsUpdated + c.Unchanged + c.Errors
}

// Run is one batch invocation.
type Run struct {
	ID         int64
	Type       Type
	StartedAt  time.Time
	FinishedAt *time.Time
	Counters
	Notes string
}

// IsOpen reports whether finish has not been called yet.
func (r *Run) IsOpen() bool {
	return r.FinishedAt == nil
}

// Duration is the run length; open runs are measured against now.
func (r *Run) Duration(now time.Time) time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// IsStale reports whether an open run has been running longer than maxAge.
func IsStale(r *Run, now time.Time, maxAge time.Duration) bool {
	return r.IsOpen() && now.Sub(r.StartedAt) > maxAge
}

// JoinNotes appends a note fragment, separated by "; ".
func JoinNotes(notes string, more ...string) string {
	parts := make([]string, 0, len(more)+1)
	if strings.TrimSpace(notes) != "" {
		parts = append(parts, strings.TrimSpace(notes))
	}
	for _, m := range more {
		if strings.TrimSpace(m) != "" {
			parts = append(parts, strings.TrimSpace(m))
		}
	}
	return strings.Join(parts, "; ")
}
