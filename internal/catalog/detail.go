package catalog

import (
	"context"
	"errors"
	"log/slog"

	"listing-catalog/internal/models"
	"listing-catalog/internal/related"
)

// Detail is a single listing with its related listings.
type Detail struct {
	Listing models.Listing   `json:"listing"`
	Related []models.Listing `json:"related"`
}

// DetailService loads a listing and ranks its related listings.
type DetailService struct {
	finder Finder
	pool   PoolLoader
	ranker related.Ranker
	logger *slog.Logger
}

func NewDetailService(finder Finder, pool PoolLoader, ranker related.Ranker, logger *slog.Logger) *DetailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailService{
		finder: finder,
		pool:   pool,
		ranker: ranker,
		logger: logger.With("component", "detail"),
	}
}

// Get returns ErrNotFound for unknown or unavailable listings. A failing
// candidate pool is logged and yields an empty related list.
func (s *DetailService) Get(ctx context.Context, id string) (*Detail, error) {
	l, err := s.finder.GetListing(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	if !l.IsAvailable() {
		return nil, ErrNotFound
	}

	detail := &Detail{Listing: *l, Related: []models.Listing{}}

	pool, err := s.pool.CandidatePool(ctx, *l)
	if err != nil {
		s.logger.Warn("candidate pool unavailable", "listing_id", id, "error", err)
		return detail, nil
	}
	detail.Related = s.ranker.RelatedTo(*l, pool)
	return detail, nil
}
