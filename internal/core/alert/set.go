package alert

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Set is an unordered set of criterion values. The zero value is an empty
// set, which imposes no constraint.
type Set struct {
	members map[string]string // folded key -> first spelling seen
}

// NewSet builds a set from raw values. Blank values are dropped.
func NewSet(values ...string) Set {
	s := Set{}
	for _, v := range values {
		s.add(v)
	}
	return s
}

// ParseList builds a set from a comma-separated list.
func ParseList(list string) Set {
	if strings.TrimSpace(list) == "" {
		return Set{}
	}
	return NewSet(strings.Split(list, ",")...)
}

func (s *Set) add(v string) {
	k := key(v)
	if k == "" {
		return
	}
	if s.members == nil {
		s.members = make(map[string]string)
	}
	if _, ok := s.members[k]; !ok {
		s.members[k] = strings.TrimSpace(norm.NFC.String(v))
	}
}

// Contains reports membership. Comparison ignores surrounding whitespace,
// Unicode composition and case.
func (s Set) Contains(v string) bool {
	_, ok := s.members[key(v)]
	return ok
}

// IsEmpty reports whether the set imposes no constraint.
func (s Set) IsEmpty() bool { return len(s.members) == 0 }

// Len returns the number of distinct members.
func (s Set) Len() int { return len(s.members) }

// Values returns the members in sorted order.
func (s Set) Values() []string {
	out := make([]string, 0, len(s.members))
	for _, v := range s.members {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// String renders the set as a comma-separated list.
func (s Set) String() string {
	return strings.Join(s.Values(), ",")
}

// key folds a value for comparison. A Caser is not safe for concurrent use,
// so each call gets its own.
func key(v string) string {
	return cases.Fold().String(strings.TrimSpace(norm.NFC.String(v)))
}
