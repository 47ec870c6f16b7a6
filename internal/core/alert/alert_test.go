package alert

import (
	"errors"
	"reflect"
	"testing"

	"github.com/example/encheres/internal/core/listing"
)

func strp(s string) *string   { return &s }
func i64p(v int64) *int64     { return &v }
func f64p(v float64) *float64 { return &v }

func TestCriteriaMatches(t *testing.T) {
	paris := Subject{
		MiseAPrix:      i64p(100000),
		SurfaceM2:      f64p(48),
		DepartmentCode: strp("75"),
		Region:         strp("Île-de-France"),
		PropertyType:   strp("Appartement"),
		TribunalSlug:   strp("tj-paris"),
	}

	tests := []struct {
		name     string
		criteria Criteria
		subject  Subject
		want     bool
	}{
		{"empty criteria match everything", Criteria{}, paris, true},
		{"empty criteria match empty listing", Criteria{}, Subject{}, true},
		{
			"price and department in range",
			Criteria{MinPrice: i64p(50000), MaxPrice: i64p(150000), DepartmentCodes: NewSet("75", "92")},
			paris, true,
		},
		{"price bounds are inclusive", Criteria{MinPrice: i64p(100000), MaxPrice: i64p(100000)}, paris, true},
		{"below min price", Criteria{MinPrice: i64p(100001)}, paris, false},
		{"above max price", Criteria{MaxPrice: i64p(99999)}, paris, false},
		{"null price fails bounded alert", Criteria{MaxPrice: i64p(1 << 40)}, Subject{}, false},
		{"surface in range", Criteria{MinSurface: f64p(40), MaxSurface: f64p(50)}, paris, true},
		{"surface too small", Criteria{MinSurface: f64p(50)}, paris, false},
		{"null surface fails bounded alert", Criteria{MinSurface: f64p(0)}, Subject{MiseAPrix: i64p(1)}, false},
		{"department not in set", Criteria{DepartmentCodes: NewSet("92", "93")}, paris, false},
		{"null department fails set", Criteria{DepartmentCodes: NewSet("75")}, Subject{}, false},
		{"region ignores case", Criteria{Regions: NewSet("île-de-france")}, paris, true},
		{"region decomposed accent", Criteria{Regions: NewSet("I\u0302le-de-France")}, paris, true},
		{"region mismatch", Criteria{Regions: NewSet("Bretagne")}, paris, false},
		{"null region fails set", Criteria{Regions: NewSet("Bretagne")}, Subject{DepartmentCode: strp("35")}, false},
		{"property type case-insensitive", Criteria{PropertyTypes: NewSet(" appartement ")}, paris, true},
		{"property type mismatch", Criteria{PropertyTypes: NewSet("Maison")}, paris, false},
		{"tribunal slug", Criteria{TribunalSlugs: NewSet("tj-paris", "tj-nanterre")}, paris, true},
		{
			"dimensions are ANDed",
			Criteria{DepartmentCodes: NewSet("75"), PropertyTypes: NewSet("Maison")},
			paris, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.Matches(tt.subject); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCriteriaValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Criteria
		wantErr bool
	}{
		{"empty", Criteria{}, false},
		{"min equals max", Criteria{MinPrice: i64p(10), MaxPrice: i64p(10)}, false},
		{"min above max price", Criteria{MinPrice: i64p(11), MaxPrice: i64p(10)}, true},
		{"negative price", Criteria{MinPrice: i64p(-1)}, true},
		{"min above max surface", Criteria{MinSurface: f64p(90), MaxSurface: f64p(30)}, true},
		{"negative surface", Criteria{MinSurface: f64p(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCriteria) {
				t.Errorf("error %v does not wrap ErrInvalidCriteria", err)
			}
		})
	}
}

func TestAlertValidate_RequiresName(t *testing.T) {
	if err := (Alert{Name: "  "}).Validate(); err == nil {
		t.Error("expected error for blank name")
	}
	if err := (Alert{Name: "Paris"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMatchingAlerts(t *testing.T) {
	alerts := []Alert{
		{ID: 3, IsActive: true, Criteria: Criteria{DepartmentCodes: NewSet("75")}},
		{ID: 1, IsActive: true},
		{ID: 2, IsActive: false},
		{ID: 4, IsActive: true, Criteria: Criteria{DepartmentCodes: NewSet("13")}},
	}

	got := MatchingAlerts(alerts, Subject{DepartmentCode: strp("75")})

	if want := []int64{1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("MatchingAlerts() = %v, want %v", got, want)
	}
}

func TestSubjectOf(t *testing.T) {
	l := &listing.Listing{LicitorID: 42}
	l.MiseAPrix = i64p(100000)
	l.DepartmentCode = strp("75")

	s := SubjectOf(l, strp("Île-de-France"))

	if *s.MiseAPrix != 100000 || *s.DepartmentCode != "75" || *s.Region != "Île-de-France" {
		t.Errorf("unexpected subject %+v", s)
	}
	if s.SurfaceM2 != nil || s.TribunalSlug != nil {
		t.Error("absent values should stay nil")
	}
}

func TestSet(t *testing.T) {
	s := ParseList("75, 92,,75 , ")

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if got := s.String(); got != "75,92" {
		t.Errorf("String() = %q", got)
	}
	if !ParseList("").IsEmpty() || !ParseList(" , ").IsEmpty() {
		t.Error("blank lists should give empty sets")
	}
	if (Set{}).Contains("") {
		t.Error("zero set contains nothing")
	}
}
