package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/example/encheres/internal/core/listing"
	"github.com/example/encheres/internal/ports/primary"
	"github.com/example/encheres/internal/ports/secondary"
)

// ErrInvalidTribunal is returned for a registration without name or slug.
var ErrInvalidTribunal = errors.New("invalid tribunal")

// TribunalServiceImpl implements the TribunalService interface.
type TribunalServiceImpl struct {
	tribunalRepo secondary.TribunalRepository
	listingRepo  secondary.ListingRepository
	resolver     *TribunalResolver
}

// NewTribunalService creates a new TribunalService with injected dependencies.
func NewTribunalService(tribunalRepo secondary.TribunalRepository, listingRepo secondary.ListingRepository, resolver *TribunalResolver) *TribunalServiceImpl {
	return &TribunalServiceImpl{
		tribunalRepo: tribunalRepo,
		listingRepo:  listingRepo,
		resolver:     resolver,
	}
}

// RegisterTribunal inserts a tribunal, or corrects the region of a known
// slug, then links the listings that were scraped before it existed.
func (s *TribunalServiceImpl) RegisterTribunal(ctx context.Context, req primary.RegisterTribunalRequest) (*primary.RegisterTribunalResponse, error) {
	rec := &secondary.TribunalRecord{
		Name:   text(req.Name),
		Slug:   text(req.Slug),
		Region: listing.NormalizeText(req.Region),
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTribunal)
	}
	if rec.Slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidTribunal)
	}

	id, created, err := s.tribunalRepo.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.resolver.Forget(rec.Slug, id)

	linked, err := s.listingRepo.LinkTribunal(ctx, rec.Slug, id)
	if err != nil {
		return nil, fmt.Errorf("failed to link listings to tribunal %q: %w", rec.Slug, err)
	}

	return &primary.RegisterTribunalResponse{
		TribunalID:     id,
		Created:        created,
		ListingsLinked: linked,
	}, nil
}

func text(s string) string {
	if v := listing.NormalizeText(&s); v != nil {
		return *v
	}
	return ""
}

// ImportTribunals registers every entry in order and stops at the first
// failure.
func (s *TribunalServiceImpl) ImportTribunals(ctx context.Context, entries []primary.RegisterTribunalRequest) (*primary.ImportTribunalsResponse, error) {
	resp := &primary.ImportTribunalsResponse{}
	for i, e := range entries {
		r, err := s.RegisterTribunal(ctx, e)
		if err != nil {
			return resp, fmt.Errorf("entry %d (%s): %w", i+1, e.Slug, err)
		}
		if r.Created {
			resp.Created++
		} else {
			resp.Updated++
		}
		resp.ListingsLinked += r.ListingsLinked
	}
	return resp, nil
}

// ListTribunals retrieves all tribunals.
func (s *TribunalServiceImpl) ListTribunals(ctx context.Context) ([]*secondary.TribunalRecord, error) {
	return s.tribunalRepo.List(ctx)
}

// tribunalSource implements fuzzy.Source over names and slugs.
type tribunalSource []*secondary.TribunalRecord

func (t tribunalSource) String(i int) string { return t[i].Name + " " + t[i].Slug }
func (t tribunalSource) Len() int            { return len(t) }

// SearchTribunals fuzzy-matches a query against tribunal names and slugs,
// best match first.
func (s *TribunalServiceImpl) SearchTribunals(ctx context.Context, query string, limit int) ([]*secondary.TribunalRecord, error) {
	all, err := s.tribunalRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return all, nil
	}

	matches := fuzzy.FindFrom(query, tribunalSource(all))
	out := make([]*secondary.TribunalRecord, 0, len(matches))
	for _, m := range matches {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[m.Index])
	}
	return out, nil
}

// Ensure TribunalServiceImpl implements the interface
var _ primary.TribunalService = (*TribunalServiceImpl)(nil)
