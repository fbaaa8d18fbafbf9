package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

const (
	defaultIndex = "listings"
	batchSize    = 500
)

// FacetFields are the attributes counted by Facets.
var FacetFields = []string{"sub_category", "listing_type", "region", "province", "municipality"}

type SearchClient struct {
	client *meilisearch.Client
	index  string
	logger *slog.Logger
}

func NewSearchClient(host, apiKey string, logger *slog.Logger) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchClient{
		client: client,
		index:  defaultIndex,
		logger: logger.With("component", "search"),
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return err
	}

	index := s.client.Index(s.index)

	if _, err := index.UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"location",
	}); err != nil {
		return err
	}

	filterable := append([]string{"status", "price", "bedrooms", "bathrooms"}, FacetFields...)
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		return err
	}

	if _, err := index.UpdateSortableAttributes(&[]string{
		"price",
		"size",
		"created_at",
	}); err != nil {
		return err
	}

	return nil
}

// Document is the indexed shape of a listing.
type Document struct {
	ID           string   `json:"id"`
	ListingType  string   `json:"listing_type"`
	SubCategory  string   `json:"sub_category"`
	Price        float64  `json:"price"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	Size         *float64 `json:"size,omitempty"`
	Region       string   `json:"region,omitempty"`
	Province     string   `json:"province,omitempty"`
	Municipality string   `json:"municipality,omitempty"`
	Location     string   `json:"location,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status"`
	CreatedAt    int64    `json:"created_at"`
}

func NewDocument(l models.Listing) Document {
	return Document{
		ID:           l.ID,
		ListingType:  string(l.ListingType),
		SubCategory:  string(l.SubCategory),
		Price:        l.Price,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		Size:         l.Size,
		Region:       l.Region,
		Province:     l.Province,
		Municipality: l.Municipality,
		Location:     l.Location,
		Title:        l.Title,
		Description:  l.Description,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt.Unix(),
	}
}

// IndexListings indexes listings in batches
func (s *SearchClient) IndexListings(listings []models.Listing) error {
	for start := 0; start < len(listings); start += batchSize {
		end := start + batchSize
		if end > len(listings) {
			end = len(listings)
		}

		docs := make([]Document, 0, end-start)
		for _, l := range listings[start:end] {
			docs = append(docs, NewDocument(l))
		}
		if _, err := s.client.Index(s.index).AddDocuments(docs, "id"); err != nil {
			return fmt.Errorf("failed to index batch at %d: %w", start, err)
		}
	}
	return nil
}

// ListingSource supplies the listings to index.
type ListingSource interface {
	ListAvailable(ctx context.Context) ([]models.Listing, error)
}

// Reindex replaces the index content with the current available listings.
func (s *SearchClient) Reindex(ctx context.Context, src ListingSource) (int, error) {
	listings, err := src.ListAvailable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load listings: %w", err)
	}

	if _, err := s.client.Index(s.index).DeleteAllDocuments(); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}
	if err := s.IndexListings(listings); err != nil {
		return 0, err
	}

	s.logger.Info("reindex queued", "documents", len(listings))
	return len(listings), nil
}

// Facets maps a facet field to value counts.
type Facets map[string]map[string]int64

// Facets counts FacetFields over the listings matching f.
func (s *SearchClient) Facets(f catalog.Filters) (Facets, error) {
	searchRes, err := s.client.Index(s.index).Search(f.SearchTerm(), &meilisearch.SearchRequest{
		Limit:  0,
		Filter: FilterExpression(f),
		Facets: FacetFields,
	})
	if err != nil {
		return nil, err
	}
	return convertFacets(searchRes.FacetDistribution), nil
}

// convertFacets turns the decoded JSON facet distribution into typed counts.
func convertFacets(raw interface{}) Facets {
	facets := make(Facets, len(FacetFields))
	for _, field := range FacetFields {
		facets[field] = map[string]int64{}
	}

	distribution, ok := raw.(map[string]interface{})
	if !ok {
		return facets
	}
	for field, values := range distribution {
		counts, ok := values.(map[string]interface{})
		if !ok {
			continue
		}
		target := facets[field]
		if target == nil {
			target = map[string]int64{}
			facets[field] = target
		}
		for value, n := range counts {
			if f, ok := n.(float64); ok {
				target[value] = int64(f)
			}
		}
	}
	return facets
}
