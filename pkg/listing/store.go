// Package listing is the read-only view onto the host application's
// project/product/image data. The engine never writes to it.
package listing

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Type distinguishes the two listing kinds on mixed endpoints
type Type string

const (
	TypeProject Type = "project"
	TypeProduct Type = "product"
)

// Image is one listing image reference. AltText may be empty; the embedding
// provider falls back to a URL-derived vector in that case.
type Image struct {
	ImageID string `json:"image_id"`
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

// Store is the listing store contract consumed by scoring and queries
type Store interface {
	// ListProjectImages returns all images attached to a project
	ListProjectImages(ctx context.Context, projectID string) ([]Image, error)
	// ListProductImages returns all images attached to a product
	ListProductImages(ctx context.Context, productID string) ([]Image, error)
	// GetTaxonomyFields returns the classification of a listing; all-empty
	// fields mean the listing carries no classification
	GetTaxonomyFields(ctx context.Context, listingType Type, id string) (models.TaxonomyFields, error)
	// Exists reports, per id, whether the listing is still live (neither
	// soft- nor hard-deleted). Batched for existence filtering.
	Exists(ctx context.Context, listingType Type, ids []string) (map[string]bool, error)
	// HasManualLink reports whether a human-curated link exists between the
	// project and the product
	HasManualLink(ctx context.Context, projectID, productID string) (bool, error)
}
