package globeworker

import "math"

type coordKey struct {
	lat, lng float64
}

// ResolvePoints expands every arc into its start and end points and keeps the first
// point seen for each (lat, lng) pair, in first-occurrence order.
func ResolvePoints(arcs []ArcRecord) []RenderPoint {
	points := make([]RenderPoint, 0, len(arcs)*2)
	seen := make(map[coordKey]struct{}, len(arcs)*2)

	add := func(lat, lng float64, order int, c *RGB) {
		// A NaN coordinate never matches any point, itself included, so it has no
		// first occurrence and is dropped.
		if math.IsNaN(lat) || math.IsNaN(lng) {
			return
		}
		key := coordKey{lat, lng}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		points = append(points, RenderPoint{Size: pointSize, Order: order, Color: c, Lat: lat, Lng: lng})
	}

	for _, arc := range arcs {
		var c *RGB
		if rgb, ok := ResolveColor(arc.Color); ok {
			c = &rgb
		}
		add(arc.StartLat, arc.StartLng, arc.Order, c)
		add(arc.EndLat, arc.EndLng, arc.Order, c)
	}
	return points
}
