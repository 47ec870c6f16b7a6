package listing

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace and composes the text to NFC.
// Blank text yields nil: an empty value carries no information and is
// treated as absent.
func NormalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(norm.NFC.String(*s))
	if v == "" {
		return nil
	}
	return &v
}

// Normalize returns a copy of the snapshot with every text field normalized.
func (s Snapshot) Normalize() Snapshot {
	out := s
	a := &out.Attributes
	for _, f := range textFields {
		p := f(a)
		*p = NormalizeText(*p)
	}
	out.TribunalName = NormalizeText(s.TribunalName)
	return out
}

var textFields = []func(*Attributes) **string{
	func(a *Attributes) **string { return &a.URLPath },
	func(a *Attributes) **string { return &a.TribunalSlug },
	func(a *Attributes) **string { return &a.PropertyType },
	func(a *Attributes) **string { return &a.Description },
	func(a *Attributes) **string { return &a.EnergyRating },
	func(a *Attributes) **string { return &a.OccupancyStatus },
	func(a *Attributes) **string { return &a.DepartmentCode },
	func(a *Attributes) **string { return &a.City },
	func(a *Attributes) **string { return &a.FullAddress },
	func(a *Attributes) **string { return &a.CadastralRef },
	func(a *Attributes) **string { return &a.AuctionDate },
	func(a *Attributes) **string { return &a.AuctionTime },
	func(a *Attributes) **string { return &a.CaseReference },
	func(a *Attributes) **string { return &a.HasPriceReduction },
	func(a *Attributes) **string { return &a.LawyerName },
	func(a *Attributes) **string { return &a.LawyerPhone },
	func(a *Attributes) **string { return &a.VisitDate },
	func(a *Attributes) **string { return &a.PublicationDate },
	func(a *Attributes) **string { return &a.ResultDate },
}
