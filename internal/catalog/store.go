package catalog

import (
	"context"

	"listing-catalog/internal/models"
)

// SelectRequest is one bounded read against the listings collection.
type SelectRequest struct {
	Filters Filters
	Status  models.ListingStatus
	Sort    SortOrder
	Offset  int
	Limit   int
}

// SelectResult carries the row window and the total match count.
type SelectResult struct {
	Rows       []models.Listing
	TotalCount int64
}

// Store is the storage read interface used by the query engine.
type Store interface {
	Select(ctx context.Context, req SelectRequest) (SelectResult, error)
}

// Finder loads a single listing. Implementations return ErrNotFound when the ID is unknown.
type Finder interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
}

// PoolLoader returns the candidate pool for related listings. Stores may
// narrow the pool (same bucket, nearby cells) as long as no candidate the
// ranker would keep is dropped.
type PoolLoader interface {
	CandidatePool(ctx context.Context, focal models.Listing) ([]models.Listing, error)
}
