package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/patrickmn/go-cache"

	"github.com/example/encheres/internal/ports/secondary"
)

// TribunalResolver resolves tribunal slugs and IDs through an in-process
// cache. Only hits are cached: an unknown slug is looked up again next time
// so a tribunal registered mid-run is picked up immediately.
type TribunalResolver struct {
	repo  secondary.TribunalRepository
	cache *cache.Cache
}

// NewTribunalResolver creates a resolver. Entries never expire; the registry
// invalidates them on every write.
func NewTribunalResolver(repo secondary.TribunalRepository) *TribunalResolver {
	return &TribunalResolver{
		repo:  repo,
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func slugKey(slug string) string { return "slug:" + slug }
func idKey(id int64) string      { return "id:" + strconv.FormatInt(id, 10) }

// BySlug returns the tribunal with this slug, or nil when it is unknown.
func (r *TribunalResolver) BySlug(ctx context.Context, slug string) (*secondary.TribunalRecord, error) {
	if v, ok := r.cache.Get(slugKey(slug)); ok {
		return v.(*secondary.TribunalRecord), nil
	}
	t, err := r.repo.GetBySlug(ctx, slug)
	if errors.Is(err, secondary.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tribunal %q: %w", slug, err)
	}
	r.store(t)
	return t, nil
}

// ByID returns the tribunal with this ID, or nil when it is unknown.
func (r *TribunalResolver) ByID(ctx context.Context, id int64) (*secondary.TribunalRecord, error) {
	if v, ok := r.cache.Get(idKey(id)); ok {
		return v.(*secondary.TribunalRecord), nil
	}
	t, err := r.repo.GetByID(ctx, id)
	if errors.Is(err, secondary.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tribunal %d: %w", id, err)
	}
	r.store(t)
	return t, nil
}

// Region returns the region of a listing's tribunal. Unlinked listings and
// tribunals without a region yield nil.
func (r *TribunalResolver) Region(ctx context.Context, tribunalID *int64) (*string, error) {
	if tribunalID == nil {
		return nil, nil
	}
	t, err := r.ByID(ctx, *tribunalID)
	if err != nil || t == nil {
		return nil, err
	}
	return t.Region, nil
}

// Forget drops cached entries for a tribunal after it was written.
func (r *TribunalResolver) Forget(slug string, id int64) {
	r.cache.Delete(slugKey(slug))
	r.cache.Delete(idKey(id))
}

func (r *TribunalResolver) store(t *secondary.TribunalRecord) {
	r.cache.Set(slugKey(t.Slug), t, cache.NoExpiration)
	r.cache.Set(idKey(t.ID), t, cache.NoExpiration)
}
