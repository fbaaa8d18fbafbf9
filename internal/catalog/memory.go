package catalog

import (
	"context"
	"sort"

	"listing-catalog/internal/models"
	"listing-catalog/internal/related"
)

// MemoryStore serves queries from an in-process snapshot. It backs the static
// fallback bundle. The snapshot is never mutated after construction.
type MemoryStore struct {
	listings []models.Listing
}

func NewMemoryStore(listings []models.Listing) *MemoryStore {
	cp := make([]models.Listing, len(listings))
	copy(cp, listings)
	return &MemoryStore{listings: cp}
}

func (m *MemoryStore) Len() int {
	return len(m.listings)
}

func (m *MemoryStore) Select(ctx context.Context, req SelectRequest) (SelectResult, error) {
	if err := ctx.Err(); err != nil {
		return SelectResult{}, err
	}

	matched := make([]models.Listing, 0)
	for _, l := range m.listings {
		if req.Status != "" && l.Status != req.Status {
			continue
		}
		if !req.Filters.Matches(l) {
			continue
		}
		matched = append(matched, l)
	}

	order := req.Sort
	if order == "" {
		order = DefaultSort
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return Less(matched[i], matched[j], order)
	})

	total := int64(len(matched))
	start := req.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if req.Limit > 0 && start+req.Limit < end {
		end = start + req.Limit
	}

	return SelectResult{Rows: matched[start:end], TotalCount: total}, nil
}

func (m *MemoryStore) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	for i := range m.listings {
		if m.listings[i].ID == id {
			l := m.listings[i]
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

// CandidatePool returns available listings sharing the focal listing's bucket.
func (m *MemoryStore) CandidatePool(ctx context.Context, focal models.Listing) ([]models.Listing, error) {
	bucket := related.BucketOf(focal.SubCategory)
	pool := make([]models.Listing, 0)
	for _, l := range m.listings {
		if l.IsAvailable() && related.BucketOf(l.SubCategory) == bucket {
			pool = append(pool, l)
		}
	}
	return pool, nil
}

func (m *MemoryStore) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	out := make([]models.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		if l.IsAvailable() {
			out = append(out, l)
		}
	}
	return out, nil
}
