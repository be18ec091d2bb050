// Package geo ranks deals by distance from a customer and by a composite
// relevance score.  All functions are pure over their inputs.
package geo

import (
	"fmt"
	"math"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

var directions = [8]string{"North", "Northeast", "East", "Southeast", "South", "Southwest", "West", "Northwest"}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceKm returns the great-circle distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// FormatDistance renders meters below 1 km, one decimal below 10 km and
// whole kilometres beyond.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	case km < 10:
		return fmt.Sprintf("%.1fkm", km)
	default:
		return fmt.Sprintf("%dkm", int(math.Round(km)))
	}
}

// Bearing returns the initial forward azimuth from point 1 to point 2 in
// degrees within [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := toRad(lat1), toRad(lat2)
	dLon := toRad(lon2 - lon1)
	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	b := math.Mod(toDeg(math.Atan2(y, x))+360, 360)
	if b >= 360 {
		b = 0
	}
	return b
}

// DirectionLabel maps a bearing to the nearest of eight compass sectors.
func DirectionLabel(bearing float64) string {
	idx := int(math.Round(bearing/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return directions[idx]
}

// areaOf returns the first comma-delimited segment of an address.
func areaOf(address string) string {
	first, _, _ := strings.Cut(address, ",")
	return strings.TrimSpace(first)
}

// LocationHint builds a short directional phrase for the deal's vendor.
func LocationHint(userLat, userLon, dealLat, dealLon float64, address string) string {
	d := DistanceKm(userLat, userLon, dealLat, dealLon)
	dir := DirectionLabel(Bearing(userLat, userLon, dealLat, dealLon))
	area := areaOf(address)

	switch {
	case d < 0.5:
		if area != "" {
			return "Very close to you near " + area
		}
		return "Very close to you"
	case d < 2:
		if area != "" {
			return dir + " of you in " + area
		}
		return dir + " of you"
	default:
		hint := FormatDistance(d) + " " + dir
		if area != "" {
			hint += " in " + area
		}
		return hint
	}
}
