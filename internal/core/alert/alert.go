// Package alert contains the saved-search criteria and the match predicate.
// This is part of the Functional Core - no I/O, only pure functions.
package alert

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/encheres/internal/core/listing"
)

// ErrInvalidCriteria is returned for inconsistent alert definitions.
var ErrInvalidCriteria = errors.New("invalid alert criteria")

// Criteria are the filter dimensions of an alert. Nil bounds and empty sets
// impose no constraint.
type Criteria struct {
	MinPrice   *int64
	MaxPrice   *int64
	MinSurface *float64
	MaxSurface *float64

	DepartmentCodes Set
	Regions         Set
	PropertyTypes   Set
	TribunalSlugs   Set
}

// Validate rejects criteria that can never match.
func (c Criteria) Validate() error {
	if c.MinPrice != nil && *c.MinPrice < 0 {
		return fmt.Errorf("%w: min_price is negative", ErrInvalidCriteria)
	}
	if c.MinPrice != nil && c.MaxPrice != nil && *c.MinPrice > *c.MaxPrice {
		return fmt.Errorf("%w: min_price %d > max_price %d", ErrInvalidCriteria, *c.MinPrice, *c.MaxPrice)
	}
	if c.MinSurface != nil && *c.MinSurface < 0 {
		return fmt.Errorf("%w: min_surface is negative", ErrInvalidCriteria)
	}
	if c.MinSurface != nil && c.MaxSurface != nil && *c.MinSurface > *c.MaxSurface {
		return fmt.Errorf("%w: min_surface %g > max_surface %g", ErrInvalidCriteria, *c.MinSurface, *c.MaxSurface)
	}
	return nil
}

// Alert is a saved filter.
type Alert struct {
	ID        int64
	Name      string
	Criteria  Criteria
	IsActive  bool
	CreatedAt time.Time
}

// Validate checks an alert before it is persisted.
func (a Alert) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCriteria)
	}
	return a.Criteria.Validate()
}

// Subject is the projection of a listing the predicate looks at.
type Subject struct {
	MiseAPrix      *int64
	SurfaceM2      *float64
	DepartmentCode *string
	Region         *string
	PropertyType   *string
	TribunalSlug   *string
}

// SubjectOf projects a listing. The region comes from the listing's tribunal
// and is nil while the tribunal is unknown.
func SubjectOf(l *listing.Listing, region *string) Subject {
	return Subject{
		MiseAPrix:      l.MiseAPrix,
		SurfaceM2:      l.SurfaceM2,
		DepartmentCode: l.DepartmentCode,
		Region:         region,
		PropertyType:   l.PropertyType,
		TribunalSlug:   l.TribunalSlug,
	}
}

// Matches evaluates every dimension; all of them must pass. Set dimensions
// compare values after trimming, NFC normalization and Unicode case folding,
// so "ÎLE-DE-FRANCE" is a member of {"Île-de-France"}. Unknown values fail
// any dimension that constrains them.
func (c Criteria) Matches(s Subject) bool {
	return inRange(s.MiseAPrix, c.MinPrice, c.MaxPrice) &&
		inRange(s.SurfaceM2, c.MinSurface, c.MaxSurface) &&
		member(c.DepartmentCodes, s.DepartmentCode) &&
		member(c.Regions, s.Region) &&
		member(c.PropertyTypes, s.PropertyType) &&
		member(c.TribunalSlugs, s.TribunalSlug)
}

// MatchingAlerts returns the IDs of the active alerts matching the subject,
// in ascending order.
func MatchingAlerts(alerts []Alert, s Subject) []int64 {
	var ids []int64
	for _, a := range alerts {
		if a.IsActive && a.Criteria.Matches(s) {
			ids = append(ids, a.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func inRange[T int64 | float64](v, lo, hi *T) bool {
	if lo == nil && hi == nil {
		return true
	}
	if v == nil {
		return false
	}
	if lo != nil && *v < *lo {
		return false
	}
	if hi != nil && *v > *hi {
		return false
	}
	return true
}

func member(set Set, v *string) bool {
	if set.IsEmpty() {
		return true
	}
	return v != nil && set.Contains(*v)
}
