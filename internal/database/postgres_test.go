package database

import (
	"strings"
	"testing"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/models"
)

func TestBuildSelectPlaceholders(t *testing.T) {
	minPrice, maxPrice := 100000.0, 500000.0
	beds := 2
	req := catalog.SelectRequest{
		Filters: catalog.Filters{
			SubCategory: models.SubCategoryHouse,
			MinPrice:    &minPrice,
			MaxPrice:    &maxPrice,
			MinBedrooms: &beds,
			Search:      "sea",
		},
		Status: models.ListingStatusAvailable,
		Sort:   catalog.SortSizeDesc,
		Offset: 48,
		Limit:  24,
	}

	countQuery, pageQuery, countArgs, pageArgs := buildSelect(req)

	wantWhere := "WHERE status = $1 AND sub_category = $2 AND price >= $3 AND price <= $4 AND bedrooms >= $5 " +
		"AND (title ILIKE $6 OR description ILIKE $6 OR location ILIKE $6)"
	if !strings.Contains(countQuery, wantWhere) {
		t.Errorf("count query:\n%s\nwant %s", countQuery, wantWhere)
	}
	if !strings.Contains(pageQuery, wantWhere) {
		t.Errorf("page query missing where:\n%s", pageQuery)
	}
	if !strings.HasSuffix(pageQuery, "ORDER BY size DESC NULLS LAST, id ASC LIMIT $7 OFFSET $8") {
		t.Errorf("page query tail:\n%s", pageQuery)
	}

	if len(countArgs) != 6 || len(pageArgs) != 8 {
		t.Fatalf("args: count=%d page=%d", len(countArgs), len(pageArgs))
	}
	if countArgs[5] != "%sea%" {
		t.Errorf("search arg = %v", countArgs[5])
	}
	if pageArgs[6] != 24 || pageArgs[7] != 48 {
		t.Errorf("limit/offset args = %v, %v", pageArgs[6], pageArgs[7])
	}
}

func TestBuildSelectNoFilters(t *testing.T) {
	countQuery, pageQuery, countArgs, _ := buildSelect(catalog.SelectRequest{})
	if strings.Contains(countQuery, "WHERE") || len(countArgs) != 0 {
		t.Errorf("unexpected where: %s %v", countQuery, countArgs)
	}
	if !strings.Contains(pageQuery, "ORDER BY created_at DESC, id ASC") {
		t.Errorf("default order missing: %s", pageQuery)
	}
}

func TestBuildPoolQuery(t *testing.T) {
	lat, lng := 38.79, 0.177
	house := models.Listing{ID: "F", SubCategory: models.SubCategoryHouse, Latitude: &lat, Longitude: &lng}

	query, args := buildPoolQuery(house, 10)
	if !strings.Contains(query, "sub_category = ANY($2)") || !strings.Contains(query, "id <> $3") {
		t.Errorf("query: %s", query)
	}
	if !strings.Contains(query, "geohash LIKE ANY($4)") || len(args) != 4 {
		t.Errorf("residential pool should be narrowed: %s %d", query, len(args))
	}

	commerce := models.Listing{ID: "C", SubCategory: models.SubCategoryCommerce, Latitude: &lat, Longitude: &lng}
	query, args = buildPoolQuery(commerce, 10)
	if strings.Contains(query, "geohash LIKE") || len(args) != 3 {
		t.Errorf("commerce pool should not be narrowed: %s", query)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`100%_a\b`); got != `100\%\_a\\b` {
		t.Errorf("got %q", got)
	}
}
