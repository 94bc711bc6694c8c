package discovery

import (
	"math"

	"github.com/sudo-init-do/carrypal/internal/listing"
)

const earthRadiusKm = 6371.0

// distanceKm is the great-circle distance between two coordinate pairs.
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// placeMatch reports whether got satisfies want and how close it is, in
// [0,1]. A city on want requires the same city. A radius with coordinates on
// want further requires got to lie within it; the score falls off linearly
// with distance. Each constraint only ever removes candidates.
func placeMatch(want *listing.Location, got listing.Location, radiusKm *float64) (bool, float64) {
	if want == nil {
		return true, 1
	}
	if want.City != "" && !got.SameCity(want.City) {
		return false, 0
	}
	if radiusKm == nil || !want.HasCoords() {
		return true, 1
	}
	if !got.HasCoords() {
		return false, 0
	}
	d, r := distanceKm(*want.Lat, *want.Lng, *got.Lat, *got.Lng), *radiusKm
	if d > r {
		return false, 0
	}
	return true, 1 - d/r
}
