package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"listing-catalog/internal/models"
	"listing-catalog/internal/related"
)

func ptr[T any](v T) *T { return &v }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func plots(n int) []models.Listing {
	out := make([]models.Listing, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Listing{
			ID:          fmt.Sprintf("plot-%02d", i),
			ListingType: models.ListingTypeSale,
			SubCategory: models.SubCategoryPlot,
			Price:       float64(100000 + i*10000),
			Status:      models.ListingStatusAvailable,
			CreatedAt:   epoch.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestQueryPlotSecondPage(t *testing.T) {
	// shuffle insertion order to make sure the store sorts
	data := plots(50)
	data[0], data[49] = data[49], data[0]
	data[10], data[30] = data[30], data[10]

	e := NewEngine(NewMemoryStore(data), nil)
	page, err := e.Query(context.Background(), Filters{
		SubCategory: models.SubCategoryPlot,
		MinPrice:    ptr(100000.0),
	}, SortPriceAsc, 2, 24)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if len(page.Items) != 24 {
		t.Fatalf("items = %d, want 24", len(page.Items))
	}
	if page.Items[0].ID != "plot-24" || page.Items[23].ID != "plot-47" {
		t.Errorf("window = %s..%s, want plot-24..plot-47", page.Items[0].ID, page.Items[23].ID)
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i-1].Price > page.Items[i].Price {
			t.Fatalf("not sorted by price at %d", i)
		}
	}

	p := page.Pagination
	if p.TotalCount != 50 || p.TotalPages != 3 || !p.HasNextPage || !p.HasPreviousPage {
		t.Errorf("pagination = %+v", p)
	}
}

func TestQueryBeyondLastPage(t *testing.T) {
	e := NewEngine(NewMemoryStore(plots(5)), nil)
	page, err := e.Query(context.Background(), Filters{}, DefaultSort, 9, 24)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("items = %v, want empty", page.Items)
	}
	if page.Pagination.TotalCount != 5 || page.Pagination.TotalPages != 1 || page.Pagination.HasNextPage {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestPaginationArithmetic(t *testing.T) {
	tests := []struct {
		page, size int
		total      int64
		pages      int
		next, prev bool
	}{
		{1, 24, 0, 0, false, false},
		{1, 24, 24, 1, false, false},
		{1, 24, 25, 2, true, false},
		{2, 24, 25, 2, false, true},
		{3, 1, 3, 3, false, true},
		{5, 10, 7, 1, false, true},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.size, tt.total)
		if p.TotalPages != tt.pages || p.HasNextPage != tt.next || p.HasPreviousPage != tt.prev {
			t.Errorf("NewPagination(%d, %d, %d) = %+v", tt.page, tt.size, tt.total, p)
		}
	}
}

func TestQueryOnlyAvailable(t *testing.T) {
	data := plots(3)
	data[1].Status = models.ListingStatusSold
	data[2].Status = models.ListingStatusReserved

	page, err := NewEngine(NewMemoryStore(data), nil).Query(context.Background(), Filters{}, "", 1, 24)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "plot-00" {
		t.Errorf("got %v", page.Items)
	}
}

func TestQueryFilters(t *testing.T) {
	data := []models.Listing{
		{ID: "a", ListingType: models.ListingTypeSale, SubCategory: models.SubCategoryHouse, Price: 500000,
			Bedrooms: ptr(4), Bathrooms: ptr(3), Region: "Valencia", Province: "Alicante", Municipality: "Jávea",
			Title: "Villa Montgó", Location: "Montgó, Jávea", Status: models.ListingStatusAvailable},
		{ID: "b", ListingType: models.ListingTypeRent, SubCategory: models.SubCategoryApartment, Price: 1200,
			Bedrooms: ptr(2), Bathrooms: ptr(1), Region: "Valencia", Province: "Alicante", Municipality: "Dénia",
			Title: "Flat", Description: "Sea VIEWS from the terrace", Status: models.ListingStatusAvailable},
		{ID: "c", ListingType: models.ListingTypeSale, SubCategory: models.SubCategoryPlot, Price: 150000,
			Region: "Valencia", Province: "Alicante", Municipality: "Jávea", Title: "Plot",
			Location: "Arenal", Status: models.ListingStatusAvailable},
	}
	e := NewEngine(NewMemoryStore(data), nil)

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"none", Filters{}, []string{"a", "b", "c"}},
		{"listing type", Filters{ListingType: models.ListingTypeSale}, []string{"a", "c"}},
		{"sub category", Filters{SubCategory: models.SubCategoryApartment}, []string{"b"}},
		{"price range", Filters{MinPrice: ptr(1000.0), MaxPrice: ptr(200000.0)}, []string{"b", "c"}},
		{"min bedrooms excludes missing", Filters{MinBedrooms: ptr(1)}, []string{"a", "b"}},
		{"min bathrooms", Filters{MinBathrooms: ptr(2)}, []string{"a"}},
		{"municipality exact", Filters{Municipality: "Jávea"}, []string{"a", "c"}},
		{"municipality is not folded", Filters{Municipality: "javea"}, nil},
		{"search description case-insensitive", Filters{Search: "sea views"}, []string{"b"}},
		{"search location", Filters{Search: "ARENAL"}, []string{"c"}},
		{"search title", Filters{Search: "montgó"}, []string{"a"}},
		{"and-combined", Filters{Municipality: "Jávea", SubCategory: models.SubCategoryPlot}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := e.Query(context.Background(), tt.filters, SortPriceDesc, 1, 24)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			got := map[string]bool{}
			for _, l := range page.Items {
				got[l.ID] = true
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("missing %s in %v", id, got)
				}
			}
		})
	}
}

func TestSortOrders(t *testing.T) {
	data := []models.Listing{
		{ID: "b", Price: 200, Size: ptr(80.0), CreatedAt: epoch.Add(2 * time.Hour), Status: models.ListingStatusAvailable},
		{ID: "a", Price: 200, CreatedAt: epoch.Add(2 * time.Hour), Status: models.ListingStatusAvailable},
		{ID: "c", Price: 100, Size: ptr(120.0), CreatedAt: epoch, Status: models.ListingStatusAvailable},
		{ID: "d", Price: 300, Size: ptr(50.0), CreatedAt: epoch.Add(time.Hour), Status: models.ListingStatusAvailable},
	}
	e := NewEngine(NewMemoryStore(data), nil)

	tests := map[SortOrder][]string{
		SortPriceAsc:  {"c", "a", "b", "d"},
		SortPriceDesc: {"d", "a", "b", "c"},
		SortDateAsc:   {"c", "d", "a", "b"},
		SortDateDesc:  {"a", "b", "d", "c"},
		SortSizeAsc:   {"d", "b", "c", "a"},
		SortSizeDesc:  {"c", "b", "d", "a"},
	}
	for order, want := range tests {
		page, err := e.Query(context.Background(), Filters{}, order, 1, 10)
		if err != nil {
			t.Fatalf("%s: %v", order, err)
		}
		for i, l := range page.Items {
			if l.ID != want[i] {
				t.Errorf("%s: position %d = %s, want %v", order, i, l.ID, want)
				break
			}
		}
	}
}

type failingStore struct{ calls int }

func (f *failingStore) Select(context.Context, SelectRequest) (SelectResult, error) {
	f.calls++
	return SelectResult{}, errors.New("connection refused")
}

func TestQueryValidationBeforeStorage(t *testing.T) {
	store := &failingStore{}
	e := NewEngine(store, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		filters  Filters
		sort     SortOrder
		page     int
		pageSize int
	}{
		{"negative min price", Filters{MinPrice: ptr(-1.0)}, DefaultSort, 1, 24},
		{"negative max price", Filters{MaxPrice: ptr(-5.0)}, DefaultSort, 1, 24},
		{"min above max", Filters{MinPrice: ptr(10.0), MaxPrice: ptr(5.0)}, DefaultSort, 1, 24},
		{"negative bedrooms", Filters{MinBedrooms: ptr(-1)}, DefaultSort, 1, 24},
		{"unknown sub category", Filters{SubCategory: "castle"}, DefaultSort, 1, 24},
		{"unknown listing type", Filters{ListingType: "auction"}, DefaultSort, 1, 24},
		{"unknown sort", Filters{}, "random", 1, 24},
		{"page zero", Filters{}, DefaultSort, 0, 24},
		{"page size zero", Filters{}, DefaultSort, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Query(ctx, tt.filters, tt.sort, tt.page, tt.pageSize)
			if !errors.Is(err, ErrInvalidFilterValue) {
				t.Fatalf("got %v, want ErrInvalidFilterValue", err)
			}
		})
	}
	if store.calls != 0 {
		t.Errorf("storage called %d times", store.calls)
	}
}

func TestQueryStorageUnavailable(t *testing.T) {
	store := &failingStore{}
	_, err := NewEngine(store, nil).Query(context.Background(), Filters{}, DefaultSort, 1, 24)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("got %v, want ErrStorageUnavailable", err)
	}
	if store.calls != 1 {
		t.Errorf("calls = %d, want exactly one attempt", store.calls)
	}
}

func TestParseSort(t *testing.T) {
	if s, err := ParseSort(""); err != nil || s != SortDateDesc {
		t.Errorf("empty: got %q, %v", s, err)
	}
	if s, err := ParseSort("size-asc"); err != nil || s != SortSizeAsc {
		t.Errorf("size-asc: got %q, %v", s, err)
	}
	if _, err := ParseSort("cheapest"); !errors.Is(err, ErrInvalidFilterValue) {
		t.Errorf("cheapest: got %v", err)
	}
}

type brokenPool struct{ *MemoryStore }

func (brokenPool) CandidatePool(context.Context, models.Listing) ([]models.Listing, error) {
	return nil, errors.New("timeout")
}

func TestDetailService(t *testing.T) {
	data := plots(6)
	data[5].Status = models.ListingStatusSold
	store := NewMemoryStore(data)
	ctx := context.Background()

	svc := NewDetailService(store, store, related.NewRanker(), nil)
	d, err := svc.Get(ctx, "plot-00")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// plots without coordinates are never related
	if d.Listing.ID != "plot-00" || d.Related == nil || len(d.Related) != 0 {
		t.Errorf("got %+v", d)
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v", err)
	}
	if _, err := svc.Get(ctx, "plot-05"); !errors.Is(err, ErrNotFound) {
		t.Errorf("sold: got %v", err)
	}

	broken := NewDetailService(store, brokenPool{store}, related.NewRanker(), nil)
	d, err = broken.Get(ctx, "plot-01")
	if err != nil || len(d.Related) != 0 {
		t.Errorf("broken pool: got %+v, %v", d, err)
	}
}

func TestDetailServiceRanksCommerce(t *testing.T) {
	data := []models.Listing{
		{ID: "focal", SubCategory: models.SubCategoryCommerce, Price: 100, Status: models.ListingStatusAvailable},
		{ID: "x", SubCategory: models.SubCategoryCommerce, Price: 400, Status: models.ListingStatusAvailable},
		{ID: "y", SubCategory: models.SubCategoryCommerce, Price: 120, Status: models.ListingStatusAvailable},
		{ID: "z", SubCategory: models.SubCategoryHouse, Price: 100, Status: models.ListingStatusAvailable},
	}
	store := NewMemoryStore(data)
	d, err := NewDetailService(store, store, related.NewRanker(), nil).Get(context.Background(), "focal")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(d.Related) != 2 || d.Related[0].ID != "y" || d.Related[1].ID != "x" {
		t.Errorf("related = %v", d.Related)
	}
}
