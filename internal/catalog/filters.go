package catalog

import (
	"strings"

	"listing-catalog/internal/models"
)

// Filters are AND-combined. Zero values mean "no constraint".
type Filters struct {
	ListingType  models.ListingType `json:"listing_type,omitempty"`
	SubCategory  models.SubCategory `json:"sub_category,omitempty"`
	MinPrice     *float64           `json:"min_price,omitempty"`
	MaxPrice     *float64           `json:"max_price,omitempty"`
	MinBedrooms  *int               `json:"min_bedrooms,omitempty"`
	MinBathrooms *int               `json:"min_bathrooms,omitempty"`
	Region       string             `json:"region,omitempty"`
	Province     string             `json:"province,omitempty"`
	Municipality string             `json:"municipality,omitempty"`
	Search       string             `json:"search,omitempty"`
}

// Validate checks bounds and enum values.
func (f Filters) Validate() error {
	if f.ListingType != "" && !f.ListingType.Valid() {
		return invalid("listing_type", "%q is not supported", f.ListingType)
	}
	if f.SubCategory != "" && !f.SubCategory.Valid() {
		return invalid("sub_category", "%q is not supported", f.SubCategory)
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return invalid("min_price", "must not be negative")
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return invalid("max_price", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return invalid("min_price", "must not exceed max_price")
	}
	if f.MinBedrooms != nil && *f.MinBedrooms < 0 {
		return invalid("min_bedrooms", "must not be negative")
	}
	if f.MinBathrooms != nil && *f.MinBathrooms < 0 {
		return invalid("min_bathrooms", "must not be negative")
	}
	return nil
}

// SearchTerm returns the trimmed free-text term.
func (f Filters) SearchTerm() string {
	return strings.TrimSpace(f.Search)
}

// Matches reports whether l satisfies every filter. Status is not checked here.
func (f Filters) Matches(l models.Listing) bool {
	if f.ListingType != "" && l.ListingType != f.ListingType {
		return false
	}
	if f.SubCategory != "" && l.SubCategory != f.SubCategory {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	// listings without a bedroom count never satisfy a minimum
	if f.MinBedrooms != nil && (l.Bedrooms == nil || *l.Bedrooms < *f.MinBedrooms) {
		return false
	}
	if f.MinBathrooms != nil && (l.Bathrooms == nil || *l.Bathrooms < *f.MinBathrooms) {
		return false
	}
	if f.Region != "" && l.Region != f.Region {
		return false
	}
	if f.Province != "" && l.Province != f.Province {
		return false
	}
	if f.Municipality != "" && l.Municipality != f.Municipality {
		return false
	}
	if term := strings.ToLower(f.SearchTerm()); term != "" {
		if !strings.Contains(strings.ToLower(l.Title), term) &&
			!strings.Contains(strings.ToLower(l.Description), term) &&
			!strings.Contains(strings.ToLower(l.Location), term) {
			return false
		}
	}
	return true
}

// SortOrder is one of the supported result orderings.
type SortOrder string

const (
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortDateAsc   SortOrder = "date-asc"
	SortDateDesc  SortOrder = "date-desc"
	SortSizeAsc   SortOrder = "size-asc"
	SortSizeDesc  SortOrder = "size-desc"

	DefaultSort = SortDateDesc
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortPriceAsc, SortPriceDesc, SortDateAsc, SortDateDesc, SortSizeAsc, SortSizeDesc:
		return true
	}
	return false
}

// ParseSort maps a request value to a SortOrder. The empty string selects DefaultSort.
func ParseSort(s string) (SortOrder, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort, nil
	}
	order := SortOrder(s)
	if !order.Valid() {
		return "", invalid("sort", "%q is not supported", s)
	}
	return order, nil
}

// Less orders two listings for s. Ties, and equal NULL sizes, fall back to ID
// ascending; missing sizes always sort last.
func Less(a, b models.Listing, s SortOrder) bool {
	switch s {
	case SortPriceAsc:
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case SortPriceDesc:
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	case SortDateAsc:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	case SortSizeAsc, SortSizeDesc:
		if (a.Size == nil) != (b.Size == nil) {
			return b.Size == nil
		}
		if a.Size != nil && *a.Size != *b.Size {
			if s == SortSizeAsc {
				return *a.Size < *b.Size
			}
			return *a.Size > *b.Size
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}
