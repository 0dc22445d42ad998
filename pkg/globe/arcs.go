package globe

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	minArcSegments = 12
	maxArcSegments = 96
	// One segment per 250km keeps long arcs smooth without flooding short hops.
	metersPerSegment = 250_000
)

// ArcSegments picks how many straight pieces approximate the arc between two points.
func ArcSegments(startLat, startLng, endLat, endLng float64) int {
	d := geo.DistanceHaversine(orb.Point{startLng, startLat}, orb.Point{endLng, endLat})
	n := int(math.Ceil(d / metersPerSegment))
	if n < minArcSegments {
		return minArcSegments
	}
	if n > maxArcSegments {
		return maxArcSegments
	}
	return n
}

// ArcPath samples segments+1 positions along the great circle between two coordinates,
// lifted off the surface by alt*Radius*sin(πs) so the arc peaks at its midpoint.
func ArcPath(startLat, startLng, endLat, endLng, alt float64, segments int) []Vec3 {
	a := SurfaceVec(startLat, startLng, 0).Norm()
	b := SurfaceVec(endLat, endLng, 0).Norm()
	omega := math.Acos(clamp(a.Dot(b), -1, 1))

	// Antipodal endpoints have no unique great circle; route over a pole-ward midpoint.
	var mid Vec3
	antipodal := math.Pi-omega < 1e-9
	if antipodal {
		mid = Vec3{0, 1, 0}
		if math.Abs(a.Y) > 0.99 {
			mid = Vec3{1, 0, 0}
		}
		mid = mid.Sub(a.Scale(mid.Dot(a))).Norm()
	}

	out := make([]Vec3, segments+1)
	for i := 0; i <= segments; i++ {
		s := float64(i) / float64(segments)
		var dir Vec3
		switch {
		case omega < 1e-9:
			dir = a
		case antipodal:
			// Half turn from a through mid to b.
			ang := s * math.Pi
			dir = a.Scale(math.Cos(ang)).Add(mid.Scale(math.Sin(ang)))
		default:
			sinO := math.Sin(omega)
			dir = a.Scale(math.Sin((1-s)*omega) / sinO).Add(b.Scale(math.Sin(s*omega) / sinO))
		}
		h := alt * Radius * math.Sin(math.Pi*s)
		out[i] = dir.Norm().Scale(Radius + h)
	}
	return out
}

// DashVisible reports whether position s (0 at the start, 1 at the end) is inside a
// dash at the given animation phase. Phase is elapsed time over the animate time, so
// the dash head sits at s = phase - initialGap and moves one arc length per period.
func DashVisible(s, phase, length, gap, initialGap float64) bool {
	period := length + gap
	if period <= 0 {
		return true
	}
	u := math.Mod(phase-initialGap-s, period)
	if u < 0 {
		u += period
	}
	return u < length
}
