package search

import (
	"fmt"
	"strconv"
	"strings"

	"listing-catalog/internal/catalog"
	"listing-catalog/internal/models"
)

// FilterExpression builds the Meilisearch filter for catalog filters. Only
// available listings are matched. The free-text term is passed as the query,
// not as a filter.
func FilterExpression(f catalog.Filters) string {
	filters := []string{fmt.Sprintf("status = %s", quote(string(models.ListingStatusAvailable)))}

	if f.ListingType != "" {
		filters = append(filters, fmt.Sprintf("listing_type = %s", quote(string(f.ListingType))))
	}
	if f.SubCategory != "" {
		filters = append(filters, fmt.Sprintf("sub_category = %s", quote(string(f.SubCategory))))
	}

	// Price range filter
	if f.MinPrice != nil {
		filters = append(filters, "price >= "+formatFloat(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		filters = append(filters, "price <= "+formatFloat(*f.MaxPrice))
	}

	if f.MinBedrooms != nil {
		filters = append(filters, fmt.Sprintf("bedrooms >= %d", *f.MinBedrooms))
	}
	if f.MinBathrooms != nil {
		filters = append(filters, fmt.Sprintf("bathrooms >= %d", *f.MinBathrooms))
	}

	if f.Region != "" {
		filters = append(filters, fmt.Sprintf("region = %s", quote(f.Region)))
	}
	if f.Province != "" {
		filters = append(filters, fmt.Sprintf("province = %s", quote(f.Province)))
	}
	if f.Municipality != "" {
		filters = append(filters, fmt.Sprintf("municipality = %s", quote(f.Municipality)))
	}

	return strings.Join(filters, " AND ")
}

// quote wraps a value in double quotes, escaping embedded quotes and backslashes.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
