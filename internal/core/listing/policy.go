package listing

import (
	"strconv"
)

// Policy declares how a stored field reacts to an incoming value.
type Policy int

const (
	// OverwriteIfPresent replaces the stored value with any present incoming
	// value, whatever page produced it.
	OverwriteIfPresent Policy = iota
	// DetailOnly fields are owned by detail pages. Index pages may only fill
	// them while the listing has never been detail scraped.
	DetailOnly
	// KeepFirst fields are write-once: the first non-NULL value wins.
	KeepFirst
	// OverwriteAlways fields take the incoming value on every merge.
	OverwriteAlways
	// Latch fields are booleans that may go from false to true, never back.
	Latch
)

func (p Policy) String() string {
	switch p {
	case OverwriteIfPresent:
		return "overwrite-if-present"
	case DetailOnly:
		return "detail-only"
	case KeepFirst:
		return "keep-first"
	case OverwriteAlways:
		return "overwrite-always"
	case Latch:
		return "latch"
	}
	return "unknown"
}

// mergeContext carries the facts a policy decision depends on.
type mergeContext struct {
	page          Page
	creating      bool
	detailScraped bool // state before this merge
}

// allows reports whether an incoming present value may be written.
func (mc mergeContext) allows(p Policy, hasCurrent bool) bool {
	if mc.creating {
		return true
	}
	switch p {
	case OverwriteIfPresent, OverwriteAlways:
		return true
	case DetailOnly:
		return mc.page == PageDetail || (!hasCurrent && !mc.detailScraped)
	case KeepFirst:
		return !hasCurrent
	}
	return false
}

// field merges one attribute of a snapshot into a listing.
type field interface {
	Name() string
	Policy() Policy
	merge(dst, src *Attributes, mc mergeContext) (FieldChange, bool)
}

// scalar is a nullable attribute of comparable type T.
type scalar[T comparable] struct {
	name   string
	policy Policy
	ref    func(*Attributes) **T
	format func(T) string
}

func (f scalar[T]) Name() string   { return f.name }
func (f scalar[T]) Policy() Policy { return f.policy }

func (f scalar[T]) merge(dst, src *Attributes, mc mergeContext) (FieldChange, bool) {
	in := *f.ref(src)
	if in == nil {
		// Absence is never erasure.
		return FieldChange{}, false
	}
	cur := f.ref(dst)
	if !mc.allows(f.policy, *cur != nil) {
		return FieldChange{}, false
	}
	if *cur != nil && **cur == *in {
		return FieldChange{}, false
	}

	change := FieldChange{Field: f.name, New: f.format(*in)}
	if *cur != nil {
		change.Old = f.format(**cur)
	}
	v := *in
	*cur = &v
	return change, true
}

func text(name string, p Policy, ref func(*Attributes) **string) field {
	return scalar[string]{name: name, policy: p, ref: ref, format: func(v string) string { return v }}
}

func integer(name string, p Policy, ref func(*Attributes) **int64) field {
	return scalar[int64]{name: name, policy: p, ref: ref, format: func(v int64) string { return strconv.FormatInt(v, 10) }}
}

func decimal(name string, p Policy, ref func(*Attributes) **float64) field {
	return scalar[float64]{name: name, policy: p, ref: ref, format: func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }}
}

// fields is the merge table. Adding an attribute means declaring its policy here.
var fields = []field{
	text("url_path", OverwriteIfPresent, func(a *Attributes) **string { return &a.URLPath }),
	text("tribunal_slug", OverwriteIfPresent, func(a *Attributes) **string { return &a.TribunalSlug }),
	text("property_type", OverwriteIfPresent, func(a *Attributes) **string { return &a.PropertyType }),
	text("department_code", OverwriteIfPresent, func(a *Attributes) **string { return &a.DepartmentCode }),
	text("city", OverwriteIfPresent, func(a *Attributes) **string { return &a.City }),
	integer("mise_a_prix", OverwriteIfPresent, func(a *Attributes) **int64 { return &a.MiseAPrix }),
	text("auction_date", OverwriteIfPresent, func(a *Attributes) **string { return &a.AuctionDate }),

	text("description", DetailOnly, func(a *Attributes) **string { return &a.Description }),
	decimal("surface_m2", DetailOnly, func(a *Attributes) **float64 { return &a.SurfaceM2 }),
	text("energy_rating", DetailOnly, func(a *Attributes) **string { return &a.EnergyRating }),
	text("occupancy_status", DetailOnly, func(a *Attributes) **string { return &a.OccupancyStatus }),
	text("full_address", DetailOnly, func(a *Attributes) **string { return &a.FullAddress }),
	decimal("latitude", DetailOnly, func(a *Attributes) **float64 { return &a.Latitude }),
	decimal("longitude", DetailOnly, func(a *Attributes) **float64 { return &a.Longitude }),
	text("cadastral_ref", DetailOnly, func(a *Attributes) **string { return &a.CadastralRef }),
	text("auction_time", DetailOnly, func(a *Attributes) **string { return &a.AuctionTime }),
	text("case_reference", DetailOnly, func(a *Attributes) **string { return &a.CaseReference }),
	text("has_price_reduction", DetailOnly, func(a *Attributes) **string { return &a.HasPriceReduction }),
	text("lawyer_name", DetailOnly, func(a *Attributes) **string { return &a.LawyerName }),
	text("lawyer_phone", DetailOnly, func(a *Attributes) **string { return &a.LawyerPhone }),
	text("visit_date", DetailOnly, func(a *Attributes) **string { return &a.VisitDate }),
	decimal("price_per_m2_min", DetailOnly, func(a *Attributes) **float64 { return &a.PricePerM2Min }),
	decimal("price_per_m2_avg", DetailOnly, func(a *Attributes) **float64 { return &a.PricePerM2Avg }),
	decimal("price_per_m2_max", DetailOnly, func(a *Attributes) **float64 { return &a.PricePerM2Max }),
	integer("view_count", DetailOnly, func(a *Attributes) **int64 { return &a.ViewCount }),
	integer("favorites_count", DetailOnly, func(a *Attributes) **int64 { return &a.FavoritesCount }),
	text("publication_date", DetailOnly, func(a *Attributes) **string { return &a.PublicationDate }),

	scalar[ResultStatus]{
		name:   "result_status",
		policy: KeepFirst,
		ref:    func(a *Attributes) **ResultStatus { return &a.ResultStatus },
		format: func(v ResultStatus) string { return string(v) },
	},
	integer("final_price", KeepFirst, func(a *Attributes) **int64 { return &a.FinalPrice }),
	text("result_date", KeepFirst, func(a *Attributes) **string { return &a.ResultDate }),
}

// FieldPolicies lists the declared policy of every merged attribute,
// including the scrape bookkeeping fields.
func FieldPolicies() map[string]Policy {
	out := make(map[string]Policy, len(fields)+3)
	for _, f := range fields {
		out[f.Name()] = f.Policy()
	}
	out["first_scraped_at"] = KeepFirst
	out["last_scraped_at"] = OverwriteAlways
	out["detail_scraped"] = Latch
	return out
}
