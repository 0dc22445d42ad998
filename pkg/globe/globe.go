// Package globe is a small scene node for a rotating globe: a lit sphere with an
// atmosphere, a dotted country overlay, animated arcs, expanding rings and points.
// Layers are configured fluently with a data slice plus accessor functions and are
// turned into screen-space primitives once per frame.
package globe

import (
	"image/color"
	"math"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
)

type Fog struct {
	Color     color.NRGBA
	Near, Far float64
}

// RingColorFunc maps a ring's progress t (0 at spawn, 1 at max radius) to a color.
type RingColorFunc func(t float64) color.Color

type resolvedArc struct {
	startLat, startLng, endLat, endLng float64
	color                              color.NRGBA
	alt, stroke, initialGap, animateMS float64
	path                               []Vec3
}

type resolvedRing struct {
	lat, lng float64
	color    RingColorFunc
}

type resolvedPoint struct {
	lat, lng float64
	color    color.NRGBA
}

type Globe struct {
	cam        *Camera
	material   Material
	lights     []Light
	atmosphere Atmosphere
	exposure   float64
	fog        Fog
	now        func() time.Time

	hexFeatures   []*geojson.Feature
	hexResolution int
	hexMargin     float64
	hexColor      HexPolygonColorFunc
	hexDots       []HexDot
	hexDotColors  []color.NRGBA
	hexDirty      bool

	arcs             []globeworker.ArcRecord
	arcStartLat      func(globeworker.ArcRecord) float64
	arcStartLng      func(globeworker.ArcRecord) float64
	arcEndLat        func(globeworker.ArcRecord) float64
	arcEndLng        func(globeworker.ArcRecord) float64
	arcColor         func(globeworker.ArcRecord) color.Color
	arcAltitude      func(globeworker.ArcRecord) float64
	arcStroke        func(globeworker.ArcRecord) float64
	arcDashInitial   func(globeworker.ArcRecord) float64
	arcDashAnimateMS func(globeworker.ArcRecord) float64
	arcDashLength    float64
	arcDashGap       float64
	arcEpoch         time.Time
	resolvedArcs     []resolvedArc
	arcsDirty        bool

	rings         []globeworker.RenderPoint
	ringColor     func(globeworker.RenderPoint) RingColorFunc
	ringMaxRadius float64
	ringSpeed     float64
	ringRepeatMS  float64
	ringEpoch     time.Time
	resolvedRings []resolvedRing
	ringsDirty    bool

	points         []globeworker.RenderPoint
	pointColor     func(globeworker.RenderPoint) color.Color
	pointRadius    float64
	resolvedPoints []resolvedPoint
	pointsDirty    bool

	gpu gpuState
}

// New returns a globe viewed through cam with three-globe style defaults.
func New(cam *Camera) *Globe {
	g := &Globe{
		cam:      cam,
		exposure: 1,
		now:      time.Now,
		material: Material{
			Color:     color.NRGBA{0x33, 0x66, 0xcc, 255},
			Shininess: 30,
		},
		lights: []Light{
			{Kind: AmbientLight, Color: color.NRGBA{255, 255, 255, 255}, Intensity: 1},
			{Kind: DirectionalLight, Color: color.NRGBA{255, 255, 255, 255}, Intensity: 2, Position: Vec3{0, 0, 1}},
		},
		hexResolution: 3,
		hexMargin:     0.2,
		hexColor:      func(*geojson.Feature) color.Color { return color.White },

		arcStartLat:      func(a globeworker.ArcRecord) float64 { return a.StartLat },
		arcStartLng:      func(a globeworker.ArcRecord) float64 { return a.StartLng },
		arcEndLat:        func(a globeworker.ArcRecord) float64 { return a.EndLat },
		arcEndLng:        func(a globeworker.ArcRecord) float64 { return a.EndLng },
		arcColor:         func(globeworker.ArcRecord) color.Color { return color.White },
		arcAltitude:      func(a globeworker.ArcRecord) float64 { return a.ArcAlt },
		arcStroke:        func(globeworker.ArcRecord) float64 { return 0 },
		arcDashInitial:   func(globeworker.ArcRecord) float64 { return 0 },
		arcDashAnimateMS: func(globeworker.ArcRecord) float64 { return 0 },
		arcDashLength:    1,

		ringColor:     func(globeworker.RenderPoint) RingColorFunc { return func(float64) color.Color { return color.White } },
		ringMaxRadius: 2,
		ringSpeed:     1,
		ringRepeatMS:  700,

		pointColor:  func(globeworker.RenderPoint) color.Color { return color.White },
		pointRadius: 0.25,
	}
	g.arcEpoch, g.ringEpoch = g.now(), g.now()
	return g
}

// SetClock replaces time.Now, for tests and frame-exact captures.
func (g *Globe) SetClock(now func() time.Time) *Globe {
	g.now = now
	g.arcEpoch, g.ringEpoch = now(), now()
	return g
}

func (g *Globe) Camera() *Camera { return g.cam }

func (g *Globe) Resize(width, height int) {
	if width == g.cam.Width && height == g.cam.Height {
		return
	}
	g.cam.Resize(width, height)
	g.gpu.invalidateBase()
}

// Material, lights and atmosphere change the cached base image.

func (g *Globe) GlobeMaterial(m Material) *Globe { g.material = m; g.gpu.invalidateBase(); return g }
func (g *Globe) Lights(l ...Light) *Globe        { g.lights = l; g.gpu.invalidateBase(); return g }
func (g *Globe) Exposure(e float64) *Globe       { g.exposure = e; g.gpu.invalidateBase(); return g }
func (g *Globe) Fog(f Fog) *Globe                { g.fog = f; return g }

func (g *Globe) ShowAtmosphere(show bool) *Globe {
	g.atmosphere.Show = show
	g.gpu.invalidateBase()
	return g
}

func (g *Globe) AtmosphereColor(c color.NRGBA) *Globe {
	g.atmosphere.Color = c
	g.gpu.invalidateBase()
	return g
}

func (g *Globe) AtmosphereAltitude(alt float64) *Globe {
	g.atmosphere.Altitude = alt
	g.gpu.invalidateBase()
	return g
}

// Hex polygon layer.

// HexPolygonsData sets the overlay features. Passing the slice already shown is a no-op,
// so callers can push it again on every refresh without rebuilding the lattice.
func (g *Globe) HexPolygonsData(features []*geojson.Feature) *Globe {
	if sameFeatures(features, g.hexFeatures) {
		return g
	}
	g.hexFeatures = features
	g.hexDirty = true
	return g
}

func (g *Globe) HexPolygonResolution(res int) *Globe {
	if res != g.hexResolution {
		g.hexResolution = res
		g.hexDirty = true
	}
	return g
}

func (g *Globe) HexPolygonMargin(margin float64) *Globe { g.hexMargin = margin; return g }

func (g *Globe) HexPolygonColor(fn HexPolygonColorFunc) *Globe {
	g.hexColor = fn
	g.hexDotColors = nil
	return g
}

// Arc layer.

func (g *Globe) ArcsData(arcs []globeworker.ArcRecord) *Globe {
	g.arcs = arcs
	g.arcEpoch = g.now()
	g.arcsDirty = true
	return g
}

func (g *Globe) ArcStartLat(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcStartLat = fn
	g.arcsDirty = true
	return g
}

func (g *Globe) ArcStartLng(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcStartLng = fn
	g.arcsDirty = true
	return g
}

func (g *Globe) ArcEndLat(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcEndLat = fn
	g.arcsDirty = true
	return g
}

func (g *Globe) ArcEndLng(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcEndLng = fn
	g.arcsDirty = true
	return g
}

func (g *Globe) ArcColor(fn func(globeworker.ArcRecord) color.Color) *Globe {
	g.arcColor = fn
	g.arcsDirty = true
	return g
}

func (g *Globe) ArcAltitude(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcAltitude = fn
	g.arcsDirty = true
	return g
}

// ArcStroke sets the line width in scene units. The accessor runs once per arc each
// time the layer is rebuilt, not every frame.
func (g *Globe) ArcStroke(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcStroke = fn
	g.arcsDirty = true
	return g
}

func (g *Globe) ArcDashLength(l float64) *Globe { g.arcDashLength = l; return g }
func (g *Globe) ArcDashGap(gap float64) *Globe  { g.arcDashGap = gap; return g }

func (g *Globe) ArcDashInitialGap(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcDashInitial = fn
	g.arcsDirty = true
	return g
}

// ArcDashAnimateTime sets the milliseconds a dash takes to travel one arc length.
// Zero disables the animation.
func (g *Globe) ArcDashAnimateTime(fn func(globeworker.ArcRecord) float64) *Globe {
	g.arcDashAnimateMS = fn
	g.arcsDirty = true
	return g
}

// Ring layer.

func (g *Globe) RingsData(rings []globeworker.RenderPoint) *Globe {
	g.rings = rings
	g.ringEpoch = g.now()
	g.ringsDirty = true
	return g
}

func (g *Globe) RingColor(fn func(globeworker.RenderPoint) RingColorFunc) *Globe {
	g.ringColor = fn
	g.ringsDirty = true
	return g
}

func (g *Globe) RingMaxRadius(deg float64) *Globe            { g.ringMaxRadius = deg; return g }
func (g *Globe) RingPropagationSpeed(degPerS float64) *Globe { g.ringSpeed = degPerS; return g }
func (g *Globe) RingRepeatPeriod(ms float64) *Globe          { g.ringRepeatMS = ms; return g }

// Point layer.

func (g *Globe) PointsData(points []globeworker.RenderPoint) *Globe {
	g.points = points
	g.pointsDirty = true
	return g
}

func (g *Globe) PointColor(fn func(globeworker.RenderPoint) color.Color) *Globe {
	g.pointColor = fn
	g.pointsDirty = true
	return g
}

// PointRadius sets the point radius in degrees of arc.
func (g *Globe) PointRadius(deg float64) *Globe { g.pointRadius = deg; return g }

// Read-back of layer data, mostly for callers that need to inspect what is shown.

func (g *Globe) ArcsDataValue() []globeworker.ArcRecord     { return g.arcs }
func (g *Globe) RingsDataValue() []globeworker.RenderPoint  { return g.rings }
func (g *Globe) PointsDataValue() []globeworker.RenderPoint { return g.points }
func (g *Globe) HexPolygonsDataValue() []*geojson.Feature   { return g.hexFeatures }

// HexDots returns the overlay cells, rebuilding the lattice if the data changed.
func (g *Globe) HexDots() []HexDot {
	if g.hexDirty {
		g.hexDots = BuildHexGrid(g.hexFeatures, g.hexResolution)
		g.hexDotColors = nil
		g.hexDirty = false
	}
	if g.hexDotColors == nil && len(g.hexDots) > 0 {
		perFeature := make(map[int]color.NRGBA)
		g.hexDotColors = make([]color.NRGBA, len(g.hexDots))
		for i, d := range g.hexDots {
			c, ok := perFeature[d.Feature]
			if !ok {
				c = toNRGBA(g.hexColor(g.hexFeatures[d.Feature]))
				perFeature[d.Feature] = c
			}
			g.hexDotColors[i] = c
		}
	}
	return g.hexDots
}

// ArcStrokes returns the resolved stroke width of each arc, in data order.
func (g *Globe) ArcStrokes() []float64 {
	g.resolveArcs()
	out := make([]float64, len(g.resolvedArcs))
	for i, a := range g.resolvedArcs {
		out[i] = a.stroke
	}
	return out
}

func (g *Globe) resolveArcs() {
	if !g.arcsDirty {
		return
	}
	g.resolvedArcs = make([]resolvedArc, 0, len(g.arcs))
	for _, a := range g.arcs {
		ra := resolvedArc{
			startLat:   g.arcStartLat(a),
			startLng:   g.arcStartLng(a),
			endLat:     g.arcEndLat(a),
			endLng:     g.arcEndLng(a),
			color:      toNRGBA(g.arcColor(a)),
			alt:        g.arcAltitude(a),
			stroke:     g.arcStroke(a),
			initialGap: g.arcDashInitial(a),
			animateMS:  g.arcDashAnimateMS(a),
		}
		segments := ArcSegments(ra.startLat, ra.startLng, ra.endLat, ra.endLng)
		ra.path = ArcPath(ra.startLat, ra.startLng, ra.endLat, ra.endLng, ra.alt, segments)
		g.resolvedArcs = append(g.resolvedArcs, ra)
	}
	g.arcsDirty = false
}

func (g *Globe) resolveRings() {
	if !g.ringsDirty {
		return
	}
	g.resolvedRings = make([]resolvedRing, 0, len(g.rings))
	for _, p := range g.rings {
		g.resolvedRings = append(g.resolvedRings, resolvedRing{lat: p.Lat, lng: p.Lng, color: g.ringColor(p)})
	}
	g.ringsDirty = false
}

func (g *Globe) resolvePoints() {
	if !g.pointsDirty {
		return
	}
	g.resolvedPoints = make([]resolvedPoint, 0, len(g.points))
	for _, p := range g.points {
		g.resolvedPoints = append(g.resolvedPoints, resolvedPoint{lat: p.Lat, lng: p.Lng, color: toNRGBA(g.pointColor(p))})
	}
	g.pointsDirty = false
}

// Sprite is a tinted disc centered on (X, Y).
type Sprite struct {
	X, Y, Radius float64
	Color        color.NRGBA
}

type Line struct {
	X0, Y0, X1, Y1 float64
	Width          float64
	Color          color.NRGBA
}

// Frame is everything drawn on top of the base image, in screen pixels.
type Frame struct {
	HexDots []Sprite
	Points  []Sprite
	Arcs    []Line
	Rings   []Line
}

const (
	hexLift   = 0.1 // scene units, keeps overlay dots clear of the surface
	pointLift = 0.2
	ringLift  = 0.15
	minStroke = 1.0 // pixels
)

// BuildFrame projects every layer for the current time. It has no GPU dependency.
func (g *Globe) BuildFrame() Frame {
	now := g.now()
	cam := g.cam
	var f Frame

	dots := g.HexDots()
	if len(dots) > 0 {
		dotRadius := cam.Scale(HexSpacing(g.hexResolution)*math.Pi/180*Radius) * (1 - g.hexMargin) / 2
		for i, d := range dots {
			p := SurfaceVec(d.Lat, d.Lng, hexLift)
			x, y, ok := cam.Project(p)
			if !ok {
				continue
			}
			f.HexDots = append(f.HexDots, Sprite{X: x, Y: y, Radius: dotRadius, Color: g.fogged(g.hexDotColors[i], p)})
		}
	}

	g.resolvePoints()
	pointRadius := cam.Scale(g.pointRadius * math.Pi / 180 * Radius)
	for _, pt := range g.resolvedPoints {
		p := SurfaceVec(pt.lat, pt.lng, pointLift)
		if x, y, ok := cam.Project(p); ok {
			f.Points = append(f.Points, Sprite{X: x, Y: y, Radius: pointRadius, Color: g.fogged(pt.color, p)})
		}
	}

	g.resolveArcs()
	arcElapsedMS := float64(now.Sub(g.arcEpoch)) / float64(time.Millisecond)
	for _, a := range g.resolvedArcs {
		phase := 0.0
		animate := a.animateMS > 0
		if animate {
			phase = arcElapsedMS / a.animateMS
		}
		width := math.Max(cam.Scale(a.stroke), minStroke)
		n := len(a.path) - 1
		for i := 0; i < n; i++ {
			s := (float64(i) + 0.5) / float64(n)
			if animate && !DashVisible(s, phase, g.arcDashLength, g.arcDashGap, a.initialGap) {
				continue
			}
			x0, y0, ok0 := cam.Project(a.path[i])
			x1, y1, ok1 := cam.Project(a.path[i+1])
			if !ok0 || !ok1 {
				continue
			}
			f.Arcs = append(f.Arcs, Line{X0: x0, Y0: y0, X1: x1, Y1: y1, Width: width, Color: g.fogged(a.color, a.path[i])})
		}
	}

	g.resolveRings()
	ringElapsed := now.Sub(g.ringEpoch).Seconds()
	radii := RingRadii(ringElapsed, g.ringRepeatMS/1000, g.ringSpeed, g.ringMaxRadius)
	for _, r := range g.resolvedRings {
		for _, radius := range radii {
			c := toNRGBA(r.color(radius / g.ringMaxRadius))
			if c.A == 0 {
				continue
			}
			outline := RingOutline(r.lat, r.lng, radius)
			for i := 0; i+1 < len(outline); i++ {
				p0 := SurfaceVec(outline[i][0], outline[i][1], ringLift)
				p1 := SurfaceVec(outline[i+1][0], outline[i+1][1], ringLift)
				x0, y0, ok0 := cam.Project(p0)
				x1, y1, ok1 := cam.Project(p1)
				if !ok0 || !ok1 {
					continue
				}
				f.Rings = append(f.Rings, Line{X0: x0, Y0: y0, X1: x1, Y1: y1, Width: minStroke, Color: g.fogged(c, p0)})
			}
		}
	}
	return f
}

func (g *Globe) fogged(c color.NRGBA, p Vec3) color.NRGBA {
	k := FogFactor(g.cam.DistanceTo(p), g.fog.Near, g.fog.Far)
	if k == 0 {
		return c
	}
	mix := func(a, b uint8) uint8 { return uint8(float64(a)*(1-k) + float64(b)*k + 0.5) }
	return color.NRGBA{mix(c.R, g.fog.Color.R), mix(c.G, g.fog.Color.G), mix(c.B, g.fog.Color.B), c.A}
}

func sameFeatures(a, b []*geojson.Feature) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func toNRGBA(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
