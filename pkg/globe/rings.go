package globe

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const ringSegments = 32

// RingRadii returns the radii in degrees of the rings alive at elapsed seconds. A ring
// is spawned every period seconds and grows at speed degrees per second until it
// reaches maxRadius.
func RingRadii(elapsed, period, speed, maxRadius float64) []float64 {
	if period <= 0 || speed <= 0 || maxRadius <= 0 || elapsed < 0 {
		return nil
	}
	lifetime := maxRadius / speed
	var radii []float64
	for age := math.Mod(elapsed, period); age < lifetime && age <= elapsed; age += period {
		radii = append(radii, age*speed)
	}
	return radii
}

// RingOutline returns points on the small circle of angular radius radiusDeg around
// (lat, lng), as lat/lng pairs.
func RingOutline(lat, lng, radiusDeg float64) [][2]float64 {
	center := orb.Point{lng, lat}
	dist := radiusDeg * math.Pi / 180 * orb.EarthRadius
	out := make([][2]float64, ringSegments+1)
	for i := 0; i <= ringSegments; i++ {
		p := geo.PointAtBearingAndDistance(center, float64(i)*360/ringSegments, dist)
		out[i] = [2]float64{p.Lat(), p.Lon()}
	}
	return out
}
