package search

import (
	"testing"
	"time"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/models"
)

func TestFilterExpression(t *testing.T) {
	minPrice, maxPrice := 100000.0, 250000.5
	beds := 3

	tests := []struct {
		name    string
		filters catalog.Filters
		want    string
	}{
		{"empty", catalog.Filters{}, `status = "available"`},
		{
			"combined",
			catalog.Filters{
				SubCategory:  models.SubCategoryPlot,
				MinPrice:     &minPrice,
				MaxPrice:     &maxPrice,
				MinBedrooms:  &beds,
				Municipality: "Jávea",
				Search:       "ignored here",
			},
			`status = "available" AND sub_category = "plot" AND price >= 100000 AND price <= 250000.5 ` +
				`AND bedrooms >= 3 AND municipality = "Jávea"`,
		},
		{
			"quotes escaped",
			catalog.Filters{Region: `Comunitat "Valenciana"`},
			`status = "available" AND region = "Comunitat \"Valenciana\""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterExpression(tt.filters); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestConvertFacets(t *testing.T) {
	raw := map[string]interface{}{
		"sub_category": map[string]interface{}{"plot": float64(12), "house": float64(3)},
		"region":       "unexpected",
	}
	facets := convertFacets(raw)

	if facets["sub_category"]["plot"] != 12 || facets["sub_category"]["house"] != 3 {
		t.Errorf("sub_category = %v", facets["sub_category"])
	}
	for _, field := range FacetFields {
		if facets[field] == nil {
			t.Errorf("%s should be present and empty", field)
		}
	}

	if got := convertFacets(nil); len(got) != len(FacetFields) {
		t.Errorf("nil distribution: %v", got)
	}
}

func TestNewDocument(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := NewDocument(models.Listing{
		ID:          "a",
		SubCategory: models.SubCategoryHouse,
		Status:      models.ListingStatusAvailable,
		CreatedAt:   created,
	})
	if doc.SubCategory != "house" || doc.Status != "available" || doc.CreatedAt != created.Unix() {
		t.Errorf("doc = %+v", doc)
	}
}
