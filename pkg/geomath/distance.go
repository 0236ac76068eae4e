// Package geomath provides great-circle calculations on a spherical Earth:
// distance, initial bearing, midpoint and destination point.
// Inputs are degrees, distances are kilometres. Nothing here validates its
// arguments; callers that need range checks use package locator.
package geomath

import (
	"math"

	"github.com/kass/go-gridlocator/pkg/models"
)

// EarthRadius is the mean spherical radius in km
const EarthRadius = 6371.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// DistanceFrom returns the haversine distance in km between two points.
func DistanceFrom(fromLat, fromLon, toLat, toLon float64) float64 {
	lat1 := toRadians(fromLat)
	lon1 := toRadians(fromLon)
	lat2 := toRadians(toLat)
	lon2 := toRadians(toLon)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}

// BearingTo returns the initial great-circle bearing from the first point
// to the second, in degrees clockwise from north, within [0, 360).
func BearingTo(fromLat, fromLon, toLat, toLon float64) float64 {
	lat1 := toRadians(fromLat)
	lon1 := toRadians(fromLon)
	lat2 := toRadians(toLat)
	lon2 := toRadians(toLon)

	dLon := lon2 - lon1

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	// atan2 is in [-180, 180], so the dividend is never negative
	return math.Mod(360.0+toDegrees(math.Atan2(y, x)), 360.0)
}

// MidpointOf returns the point halfway along the great circle between the
// two points. Longitudes are not normalised.
func MidpointOf(fromLat, fromLon, toLat, toLon float64) models.Location {
	// the arc is measured from the "to" end
	lat1 := toRadians(toLat)
	lon1 := toRadians(toLon)
	lat2 := toRadians(fromLat)
	lon2 := toRadians(fromLon)

	dLon := lon2 - lon1

	bx := math.Cos(lat2) * math.Cos(dLon)
	by := math.Cos(lat2) * math.Sin(dLon)

	y := math.Sin(lat1) + math.Sin(lat2)
	x := math.Sqrt((math.Cos(lat1)+bx)*(math.Cos(lat1)+bx) + by*by)

	midLat := math.Atan2(y, x)
	midLon := lon1 + math.Atan2(by, math.Cos(lat1)+bx)

	return models.Location{Lat: toDegrees(midLat), Lon: toDegrees(midLon)}
}

// TargetAtBearingDistance solves the direct problem: the point reached by
// travelling distanceKm from (lat, lon) along the initial bearing.
// Bearings outside [0, 360) are accepted. The returned longitude is
// normalised to [-180, 180).
func TargetAtBearingDistance(lat, lon, bearing, distanceKm float64) models.Location {
	brng := toRadians(math.Mod(bearing, 360.0))
	lat1 := toRadians(lat)
	lon1 := toRadians(lon)
	delta := distanceKm / EarthRadius

	targetLat := math.Asin(math.Sin(lat1)*math.Cos(delta) +
		math.Cos(lat1)*math.Sin(delta)*math.Cos(brng))

	y := math.Sin(brng) * math.Sin(delta) * math.Cos(lat1)
	x := math.Cos(delta) - math.Sin(lat1)*math.Sin(targetLat)
	targetLon := lon1 + math.Atan2(y, x)

	targetLon = normalizeLon(targetLon)

	return models.Location{Lat: toDegrees(targetLat), Lon: toDegrees(targetLon)}
}

// normalizeLon wraps a longitude in radians into [-π, π).
func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+3*math.Pi, 2*math.Pi)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	return lon - math.Pi
}

// AsinDistanceFrom is the arcsin form of the haversine distance. It agrees
// with DistanceFrom except close to antipodal points, where asin loses
// precision. Kept as a cross-check; use DistanceFrom.
func AsinDistanceFrom(fromLat, fromLon, toLat, toLon float64) float64 {
	lat1 := toRadians(toLat)
	lon1 := toRadians(toLon)
	lat2 := toRadians(fromLat)
	lon2 := toRadians(fromLon)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push a just above 1 for antipodes
	c := 2 * math.Asin(math.Min(1, math.Sqrt(a)))
	return EarthRadius * c
}
