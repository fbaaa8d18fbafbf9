package handlers

import (
	"listing-catalog/internal/badges"
	"listing-catalog/internal/localize"
	"listing-catalog/internal/models"
)

// ListingView is a listing with its display fields resolved for one language.
type ListingView struct {
	models.Listing
	DisplayTitle       string   `json:"display_title"`
	DisplayDescription string   `json:"display_description"`
	DisplayFeatures    []string `json:"display_features"`
	CategoryLabel      string   `json:"category_label"`
	Badge              string   `json:"badge,omitempty"`
}

type viewBuilder struct {
	resolver localize.Resolver
	lang     string
	tags     map[string]badges.Tag
}

func (b viewBuilder) view(l models.Listing) ListingView {
	return ListingView{
		Listing:            l,
		DisplayTitle:       b.resolver.DisplayTitle(&l, b.lang),
		DisplayDescription: b.resolver.Text(&l, "description", b.lang),
		DisplayFeatures:    b.resolver.List(&l, "features", b.lang),
		CategoryLabel:      localize.CategoryLabel(b.lang, l.Category()),
		Badge:              badges.TagOrStatic(b.tags, l),
	}
}

func (b viewBuilder) views(listings []models.Listing) []ListingView {
	out := make([]ListingView, 0, len(listings))
	for _, l := range listings {
		out = append(out, b.view(l))
	}
	return out
}
