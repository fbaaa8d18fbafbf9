package related

import (
	"testing"

	"listing-catalog/internal/models"
)

// kmNorth returns a latitude roughly km kilometres north of lat.
func kmNorth(lat, km float64) float64 {
	return lat + km/111.19
}

func listing(id string, cat models.SubCategory, price float64, coords ...float64) models.Listing {
	l := models.Listing{ID: id, SubCategory: cat, Price: price, Status: models.ListingStatusAvailable}
	if len(coords) == 2 {
		lat, lng := coords[0], coords[1]
		l.Latitude = &lat
		l.Longitude = &lng
	}
	return l
}

func ids(ls []models.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}

func equalIDs(t *testing.T, got []models.Listing, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

const baseLat, baseLng = 38.79, 0.17

func TestPlotBlendsPriceAndDistance(t *testing.T) {
	focal := listing("P", models.SubCategoryPlot, 300000, baseLat, baseLng)
	pool := []models.Listing{
		listing("B", models.SubCategoryPlot, 500000, kmNorth(baseLat, 0.5), baseLng),
		listing("A", models.SubCategoryPlot, 310000, kmNorth(baseLat, 2), baseLng),
	}

	got := NewRanker().RelatedTo(focal, pool)
	equalIDs(t, got, "A", "B")
}

func TestPlotZeroPriceFocalUsesAbsoluteDifference(t *testing.T) {
	focal := listing("P", models.SubCategoryPlot, 0, baseLat, baseLng)
	pool := []models.Listing{
		listing("far-cheap", models.SubCategoryPlot, 10, kmNorth(baseLat, 5), baseLng),
		listing("near-pricey", models.SubCategoryPlot, 1000, kmNorth(baseLat, 0.1), baseLng),
	}

	got := NewRanker().RelatedTo(focal, pool)
	equalIDs(t, got, "far-cheap", "near-pricey")
}

func TestPlotWithoutFocalCoordinatesRanksByPrice(t *testing.T) {
	focal := listing("P", models.SubCategoryPlot, 100000)
	pool := []models.Listing{
		listing("a", models.SubCategoryPlot, 150000, baseLat, baseLng),
		listing("b", models.SubCategoryPlot, 101000, kmNorth(baseLat, 50), baseLng),
		listing("no-coords", models.SubCategoryPlot, 100000),
	}

	got := NewRanker().RelatedTo(focal, pool)
	equalIDs(t, got, "b", "a")
}

func TestResidentialRadiusAndBucket(t *testing.T) {
	focal := listing("F", models.SubCategoryHouse, 400000, baseLat, baseLng)
	pool := []models.Listing{
		focal,
		listing("apt-3km", models.SubCategoryApartment, 200000, kmNorth(baseLat, 3), baseLng),
		listing("house-1km", models.SubCategoryHouse, 900000, kmNorth(baseLat, 1), baseLng),
		listing("house-20km", models.SubCategoryHouse, 400000, kmNorth(baseLat, 20), baseLng),
		listing("plot-0km", models.SubCategoryPlot, 400000, baseLat, baseLng),
		listing("commerce-0km", models.SubCategoryCommerce, 400000, baseLat, baseLng),
		listing("no-coords", models.SubCategoryHouse, 400000),
	}

	got := NewRanker().RelatedTo(focal, pool)
	equalIDs(t, got, "house-1km", "apt-3km")
}

func TestResidentialWithoutCoordinatesMatchesMunicipality(t *testing.T) {
	focal := listing("F", models.SubCategoryApartment, 200000)
	focal.Municipality = "Jávea"

	other := listing("other", models.SubCategoryApartment, 200000)
	other.Municipality = "Dénia"
	same := listing("same", models.SubCategoryHouse, 900000)
	same.Municipality = "Jávea"
	none := listing("none", models.SubCategoryHouse, 100000)

	got := NewRanker().RelatedTo(focal, []models.Listing{other, same, none})
	equalIDs(t, got, "same", "other", "none")
}

func TestResidentialMunicipalityMatchIsExact(t *testing.T) {
	focal := listing("F", models.SubCategoryHouse, 200000)
	focal.Municipality = "Jávea"

	denia := listing("denia", models.SubCategoryHouse, 1)
	denia.Municipality = "Dénia"
	upper := listing("upper", models.SubCategoryHouse, 1)
	upper.Municipality = "JAVEA"

	got := NewRanker().RelatedTo(focal, []models.Listing{denia, upper})
	equalIDs(t, got, "denia", "upper")
}

func TestResidentialWithoutCoordinatesFallsBackToLocation(t *testing.T) {
	focal := listing("F", models.SubCategoryApartment, 200000)
	focal.Location = "Xàbia, Arenal"

	a := listing("a", models.SubCategoryApartment, 1)
	a.Location = "Moraira"
	b := listing("b", models.SubCategoryApartment, 1)
	b.Location = "XÀBIA, ARENAL"
	c := listing("c", models.SubCategoryApartment, 1)
	c.Location = "Xabia, Arenal"

	got := NewRanker().RelatedTo(focal, []models.Listing{a, c, b})
	equalIDs(t, got, "b", "a", "c")
}

func TestCommerceOrdersByPriceDifferenceStable(t *testing.T) {
	focal := listing("F", models.SubCategoryCommerce, 100000)
	pool := []models.Listing{
		listing("far", models.SubCategoryCommerce, 300000),
		listing("first-tie", models.SubCategoryCommerce, 90000),
		listing("second-tie", models.SubCategoryCommerce, 110000),
		listing("house", models.SubCategoryHouse, 100000),
	}

	got := NewRanker().RelatedTo(focal, pool)
	equalIDs(t, got, "first-tie", "second-tie", "far")
}

func TestUnavailableCandidatesExcluded(t *testing.T) {
	focal := listing("F", models.SubCategoryCommerce, 100000)
	sold := listing("sold", models.SubCategoryCommerce, 100000)
	sold.Status = models.ListingStatusSold
	reserved := listing("reserved", models.SubCategoryCommerce, 100000)
	reserved.Status = models.ListingStatusReserved

	got := NewRanker().RelatedTo(focal, []models.Listing{sold, reserved})
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil", ids(got))
	}
}

func TestLimit(t *testing.T) {
	focal := listing("F", models.SubCategoryCommerce, 0)
	var pool []models.Listing
	for i := 0; i < 10; i++ {
		pool = append(pool, listing(string(rune('a'+i)), models.SubCategoryCommerce, float64(i)))
	}

	if got := (Ranker{}).RelatedTo(focal, pool); len(got) != DefaultLimit {
		t.Errorf("zero limit: got %d, want %d", len(got), DefaultLimit)
	}
	if got := (Ranker{Limit: LegacyLimit}).RelatedTo(focal, pool); len(got) != 3 {
		t.Errorf("legacy limit: got %d", len(got))
	}
	equalIDs(t, (Ranker{Limit: 2}).RelatedTo(focal, pool), "a", "b")
}

func TestEmptyPool(t *testing.T) {
	focal := listing("F", models.SubCategoryHouse, 1, baseLat, baseLng)
	got := NewRanker().RelatedTo(focal, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil", got)
	}
}

func TestBucketOf(t *testing.T) {
	tests := map[models.SubCategory]Bucket{
		models.SubCategoryHouse:     BucketResidential,
		models.SubCategoryApartment: BucketResidential,
		models.SubCategoryCommerce:  BucketCommerce,
		models.SubCategoryPlot:      BucketPlot,
	}
	for in, want := range tests {
		if got := BucketOf(in); got != want {
			t.Errorf("BucketOf(%s) = %s, want %s", in, got, want)
		}
	}
	if len(SubCategories(BucketResidential)) != 2 {
		t.Error("residential bucket should hold two sub categories")
	}
}
