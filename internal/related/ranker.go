package related

import (
	"math"
	"sort"
	"strings"

	"listing-catalog/internal/geo"
	"listing-catalog/internal/models"
)

// Bucket is the normalized category used for matching.
type Bucket string

const (
	BucketResidential Bucket = "residential"
	BucketCommerce    Bucket = "commerce"
	BucketPlot        Bucket = "plot"
)

const (
	DefaultLimit       = 4
	LegacyLimit        = 3 // single carousel layout
	DefaultRadiusKm    = 10.0
	DefaultPriceWeight = 50.0
)

// BucketOf maps a sub category to its matching bucket. Houses and apartments share one bucket.
func BucketOf(c models.SubCategory) Bucket {
	switch c {
	case models.SubCategoryHouse, models.SubCategoryApartment:
		return BucketResidential
	case models.SubCategoryCommerce:
		return BucketCommerce
	case models.SubCategoryPlot:
		return BucketPlot
	}
	return Bucket(c)
}

// SubCategories returns the sub categories that belong to a bucket.
func SubCategories(b Bucket) []models.SubCategory {
	switch b {
	case BucketResidential:
		return []models.SubCategory{models.SubCategoryApartment, models.SubCategoryHouse}
	case BucketCommerce:
		return []models.SubCategory{models.SubCategoryCommerce}
	case BucketPlot:
		return []models.SubCategory{models.SubCategoryPlot}
	}
	return nil
}

// Ranker selects listings related to a focal listing. It holds no state and
// is safe for concurrent use.
type Ranker struct {
	Limit       int
	RadiusKm    float64
	PriceWeight float64
}

// NewRanker returns a ranker with the default limit, radius and price weight.
func NewRanker() Ranker {
	return Ranker{Limit: DefaultLimit, RadiusKm: DefaultRadiusKm, PriceWeight: DefaultPriceWeight}
}

type scored struct {
	listing models.Listing
	score   float64
}

// RelatedTo returns at most r.Limit candidates from pool ordered by the
// policy of the focal listing's bucket. The result is never nil.
func (r Ranker) RelatedTo(focal models.Listing, pool []models.Listing) []models.Listing {
	bucket := BucketOf(focal.SubCategory)

	candidates := make([]models.Listing, 0, len(pool))
	for _, c := range pool {
		if c.ID == focal.ID || !c.IsAvailable() || BucketOf(c.SubCategory) != bucket {
			continue
		}
		candidates = append(candidates, c)
	}

	var ranked []scored
	switch bucket {
	case BucketResidential:
		ranked = r.rankResidential(focal, candidates)
	case BucketCommerce:
		ranked = rankByPrice(focal, candidates)
	case BucketPlot:
		ranked = r.rankPlot(focal, candidates)
	}

	return r.truncate(ranked)
}

// rankResidential keeps candidates within the radius sorted by distance when
// the focal listing is geolocated, otherwise ranks exact location matches first.
func (r Ranker) rankResidential(focal models.Listing, candidates []models.Listing) []scored {
	lat, lng, ok := focal.Coordinates()
	if !ok {
		return rankByLocationMatch(focal, candidates)
	}

	radius := r.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		cLat, cLng, ok := c.Coordinates()
		if !ok {
			continue
		}
		d := geo.DistanceKm(lat, lng, cLat, cLng)
		if d > radius {
			continue
		}
		ranked = append(ranked, scored{listing: c, score: d})
	}
	sortAscending(ranked)
	return ranked
}

func rankByLocationMatch(focal models.Listing, candidates []models.Listing) []scored {
	byMunicipality := focal.Municipality != ""
	key := locationKey(focal, byMunicipality)

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := 0.0
		if key != "" && locationKey(c, byMunicipality) == key {
			score = 1
		}
		ranked = append(ranked, scored{listing: c, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

// locationKey is compared exactly. Spelling variants are unified at import time.
func locationKey(l models.Listing, byMunicipality bool) string {
	if byMunicipality {
		return l.Municipality
	}
	return strings.ToLower(l.Location)
}

// rankByPrice ignores geography and orders by absolute price difference.
func rankByPrice(focal models.Listing, candidates []models.Listing) []scored {
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{listing: c, score: math.Abs(c.Price - focal.Price)})
	}
	sortAscending(ranked)
	return ranked
}

// rankPlot blends relative price difference with distance:
// |Δprice| / focal.price × weight + km.
func (r Ranker) rankPlot(focal models.Listing, candidates []models.Listing) []scored {
	weight := r.PriceWeight
	if weight <= 0 {
		weight = DefaultPriceWeight
	}
	lat, lng, focalGeo := focal.Coordinates()

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		cLat, cLng, ok := c.Coordinates()
		if !ok {
			continue
		}

		diff := math.Abs(c.Price - focal.Price)
		priceTerm := diff
		if focal.Price > 0 {
			priceTerm = diff / focal.Price * weight
		}

		distance := 0.0
		if focalGeo {
			distance = geo.DistanceKm(lat, lng, cLat, cLng)
		}

		ranked = append(ranked, scored{listing: c, score: priceTerm + distance})
	}
	sortAscending(ranked)
	return ranked
}

func sortAscending(ranked []scored) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})
}

func (r Ranker) truncate(ranked []scored) []models.Listing {
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := make([]models.Listing, len(ranked))
	for i, s := range ranked {
		result[i] = s.listing
	}
	return result
}
