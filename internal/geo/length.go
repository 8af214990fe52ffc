package geo

import (
	"github.com/paulmach/orb"
	"github.com/umahmood/haversine"
)

// LengthKm sums consecutive great-circle segment lengths of a linestring
// using the haversine strategy at earth radius 6371 km (spec §3).
func LengthKm(ls orb.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}
	var total float64
	for i := 0; i < len(ls)-1; i++ {
		a := haversine.Coord{Lat: ls[i][1], Lon: ls[i][0]}
		b := haversine.Coord{Lat: ls[i+1][1], Lon: ls[i+1][0]}
		_, km := haversine.Distance(a, b)
		total += km
	}
	return total
}

// RingLengthKm is the perimeter of a polygon ring.
func RingLengthKm(ring orb.Ring) float64 {
	return LengthKm(orb.LineString(ring))
}
