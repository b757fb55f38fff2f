package status

import "math"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Pickup is the store location every delivery ETA is measured against.
var Pickup = Coordinate{Lat: 43.6532, Lng: -79.3832}

const (
	SpeedKmh      = 30.0
	earthRadiusKm = 6371.0
)

// DistanceKm is the great-circle distance between a and b.
func DistanceKm(a, b Coordinate) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLng := (b.Lng - a.Lng) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// EstimateETA returns whole minutes, rounded up, to cover the straight-line
// distance from the pickup point at constant speed.
func EstimateETA(from Coordinate) int {
	return int(math.Ceil(DistanceKm(Pickup, from) / SpeedKmh * 60))
}
