package primary

import (
	"context"

	"github.com/example/encheres/internal/ports/secondary"
)

// TribunalService defines the primary port for the tribunal registry.
type TribunalService interface {
	// RegisterTribunal inserts a tribunal or corrects its region, then links
	// listings that were waiting for it.
	RegisterTribunal(ctx context.Context, req RegisterTribunalRequest) (*RegisterTribunalResponse, error)

	// ImportTribunals registers every entry in order.
	ImportTribunals(ctx context.Context, entries []RegisterTribunalRequest) (*ImportTribunalsResponse, error)

	// ListTribunals retrieves all tribunals.
	ListTribunals(ctx context.Context) ([]*secondary.TribunalRecord, error)

	// SearchTribunals fuzzy-matches a query against tribunal names and slugs.
	SearchTribunals(ctx context.Context, query string, limit int) ([]*secondary.TribunalRecord, error)
}

// RegisterTribunalRequest contains parameters for registering a tribunal.
type RegisterTribunalRequest struct {
	Name   string  `yaml:"name"`
	Slug   string  `yaml:"slug"`
	Region *string `yaml:"region"`
}

// RegisterTribunalResponse contains the result of registering a tribunal.
type RegisterTribunalResponse struct {
	TribunalID     int64
	Created        bool
	ListingsLinked int64
}

// ImportTribunalsResponse summarizes an import.
type ImportTribunalsResponse struct {
	Created        int
	Updated        int
	ListingsLinked int64
}
