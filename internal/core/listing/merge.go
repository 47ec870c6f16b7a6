package listing

import "time"

// MergeResult is the outcome of folding one snapshot into a listing.
type MergeResult struct {
	Listing Listing
	Created bool
	Changes []FieldChange
}

// Changed reports whether the merge produced a new listing or changed a
// semantic field.
func (r MergeResult) Changed() bool {
	return r.Created || len(r.Changes) > 0
}

// Merge folds a normalized snapshot into the existing listing (nil when the
// licitor_id has never been seen). The existing listing is not modified.
//
// The caller passes the current time so the merge stays deterministic.
func Merge(existing *Listing, snap Snapshot, now time.Time) MergeResult {
	mc := mergeContext{page: snap.Page}

	var out Listing
	if existing == nil {
		mc.creating = true
		out = Listing{LicitorID: snap.LicitorID, Status: StatusUpcoming}
	} else {
		// Shallow copy: merges swap pointers, they never write through them.
		out = *existing
		mc.detailScraped = existing.DetailScraped
	}

	var changes []FieldChange
	for _, f := range fields {
		if c, ok := f.merge(&out.Attributes, &snap.Attributes, mc); ok {
			changes = append(changes, c)
		}
	}

	if mc.allows(KeepFirst, !out.FirstScrapedAt.IsZero()) {
		out.FirstScrapedAt = now
	}
	if mc.allows(OverwriteAlways, true) {
		out.LastScrapedAt = now
	}
	out.DetailScraped = out.DetailScraped || snap.Page == PageDetail

	return MergeResult{
		Listing: out,
		Created: mc.creating,
		Changes: changes,
	}
}
