package domain

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points, rounded to whole kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) int {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return int(math.Round(earthRadiusKm * c))
}

// RouteDistanceKm sums the leg distances between consecutive cities in itinerary order.
func RouteDistanceKm(cities []City) int {
	total := 0
	for i := 1; i < len(cities); i++ {
		prev, cur := cities[i-1], cities[i]
		total += HaversineKm(prev.Lat, prev.Lng, cur.Lat, cur.Lng)
	}
	return total
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
