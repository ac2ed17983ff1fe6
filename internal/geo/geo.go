package geo

import "math"

// Point describes geographic coordinates (WGS84).
type Point struct {
	Lat float64
	Lon float64
}

// DistanceTo returns the great-circle distance in meters using the
// haversine formula.
func (p Point) DistanceTo(other Point) float64 {
	const earthRadius = 6371000.0
	lat1 := toRadians(p.Lat)
	lat2 := toRadians(other.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(other.Lon - p.Lon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

func toRadians(v float64) float64 {
	return v * math.Pi / 180
}
