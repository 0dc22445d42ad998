package globe

import (
	"image/color"
	"math"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// HexDot is one cell of the country overlay.
type HexDot struct {
	Lat, Lng float64
	Feature  int // index into the features the grid was built from
}

// HexSpacing is the lattice spacing in degrees for a resolution. Resolution 3 gives
// 1.5°, each step up halves it.
func HexSpacing(resolution int) float64 {
	return 1.5 * math.Pow(2, float64(3-resolution))
}

type featureShape struct {
	polys []orb.Polygon
	bound orb.Bound
}

// BuildHexGrid lays a staggered lattice over the sphere and keeps the cells whose
// centers fall inside one of the features' polygons. Rows alternate by half a step and
// longitude spacing widens toward the poles so cells stay roughly equal in area.
func BuildHexGrid(features []*geojson.Feature, resolution int) []HexDot {
	shapes := make([]featureShape, len(features))
	for i, f := range features {
		shapes[i] = toShape(f)
	}

	step := HexSpacing(resolution)
	var dots []HexDot
	row := 0
	for lat := -90 + step/2; lat < 90; lat += step {
		cosLat := math.Cos(lat * math.Pi / 180)
		lngStep := step / math.Max(cosLat, 0.05)
		offset := 0.0
		if row%2 == 1 {
			offset = lngStep / 2
		}
		row++
		for lng := -180 + offset; lng < 180; lng += lngStep {
			pt := orb.Point{lng, lat}
			for i, s := range shapes {
				if len(s.polys) == 0 || !s.bound.Contains(pt) {
					continue
				}
				if containsAny(s.polys, pt) {
					dots = append(dots, HexDot{Lat: lat, Lng: lng, Feature: i})
					break
				}
			}
		}
	}
	return dots
}

func containsAny(polys []orb.Polygon, pt orb.Point) bool {
	for _, p := range polys {
		if planar.PolygonContains(p, pt) {
			return true
		}
	}
	return false
}

func toShape(f *geojson.Feature) featureShape {
	var s featureShape
	if f == nil || f.Geometry == nil {
		return s
	}
	switch {
	case f.Geometry.IsPolygon():
		s.polys = append(s.polys, toPolygon(f.Geometry.Polygon))
	case f.Geometry.IsMultiPolygon():
		for _, p := range f.Geometry.MultiPolygon {
			s.polys = append(s.polys, toPolygon(p))
		}
	}
	for i, p := range s.polys {
		if i == 0 {
			s.bound = p.Bound()
		} else {
			s.bound = s.bound.Union(p.Bound())
		}
	}
	return s
}

func toPolygon(rings [][][]float64) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, c := range ring {
			if len(c) < 2 {
				continue
			}
			r = append(r, orb.Point{c[0], c[1]})
		}
		poly = append(poly, r)
	}
	return poly
}

// HexPolygonColorFunc picks a dot color from the feature it belongs to.
type HexPolygonColorFunc func(*geojson.Feature) color.Color
