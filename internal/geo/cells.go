package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

// maxNearbyPrecision bounds the search; longer hashes are smaller than any
// useful matching radius.
const maxNearbyPrecision uint = 8

// Encode returns the full-precision geohash stored alongside a listing.
func Encode(lat, lng float64) string {
	return geohash.Encode(lat, lng)
}

// CellSizeKm returns the width and height of a geohash cell of the given
// precision at latitude lat. Width shrinks with cos(lat).
func CellSizeKm(lat float64, precision uint) (width, height float64) {
	bits := 5 * precision
	lngBits := (bits + 1) / 2
	latBits := bits / 2

	kmPerDegree := EarthRadiusKm * math.Pi / 180
	widthDeg := 360 / math.Exp2(float64(lngBits))
	heightDeg := 180 / math.Exp2(float64(latBits))
	return widthDeg * kmPerDegree * math.Cos(toRadians(lat)), heightDeg * kmPerDegree
}

// NearbyPrecision returns the longest geohash whose cell plus its eight
// neighbours covers radiusKm around any point at latitude lat. That holds
// when the cell is at least radiusKm wide and high.
func NearbyPrecision(lat, radiusKm float64) uint {
	for p := maxNearbyPrecision; p > 1; p-- {
		w, h := CellSizeKm(lat, p)
		if w >= radiusKm && h >= radiusKm {
			return p
		}
	}
	return 1
}

// Cells returns the cell containing the point followed by its eight neighbours.
func Cells(lat, lng float64, precision uint) []string {
	center := geohash.EncodeWithPrecision(lat, lng, precision)
	return append([]string{center}, geohash.Neighbors(center)...)
}
