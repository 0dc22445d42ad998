package globeengine

import (
	"image/color"
	"log"
	"math"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sudorandom/arc-globe/pkg/config"
	"github.com/sudorandom/arc-globe/pkg/globe"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
	"github.com/sudorandom/arc-globe/pkg/sources"
)

// pointRadiusPerSize converts the configured point size to degrees of arc.
const pointRadiusPerSize = 0.0625

// configureGlobe pushes the settings that never change with the data.
func (e *Engine) configureGlobe() {
	gc, lc := e.cfg.Globe, e.cfg.Lights
	e.globe.
		GlobeMaterial(globe.Material{
			Color:             config.MustColor(gc.GlobeColor),
			Emissive:          config.MustColor(gc.Emissive),
			EmissiveIntensity: gc.EmissiveIntensity,
			Shininess:         gc.Shininess,
		}).
		Lights(
			toLight(globe.AmbientLight, lc.Ambient),
			toLight(globe.DirectionalLight, lc.DirectionalLeft),
			toLight(globe.DirectionalLight, lc.DirectionalTop),
			toLight(globe.PointLight, lc.Point),
		).
		Exposure(e.cfg.Camera.Exposure).
		Fog(globe.Fog{
			Color: config.MustColor(e.cfg.Camera.FogColor),
			Near:  e.cfg.Camera.FogNear,
			Far:   e.cfg.Camera.FogFar,
		}).
		PointRadius(gc.PointSize * pointRadiusPerSize)
	e.pushOverlay()
}

func toLight(kind globe.LightKind, l config.Light) globe.Light {
	return globe.Light{
		Kind:      kind,
		Color:     config.MustColor(l.Color),
		Intensity: l.Intensity,
		Position:  globe.Vec3{X: l.Position.X, Y: l.Position.Y, Z: l.Position.Z},
	}
}

// pushOverlay sets the country overlay and atmosphere.
func (e *Engine) pushOverlay() {
	gc := e.cfg.Globe
	e.globe.
		HexPolygonsData(e.Polygons).
		HexPolygonResolution(gc.HexResolution).
		HexPolygonMargin(gc.HexMargin).
		ShowAtmosphere(gc.ShowAtmosphere).
		AtmosphereColor(config.MustColor(gc.AtmosphereColor)).
		AtmosphereAltitude(gc.AtmosphereAltitude).
		HexPolygonColor(e.hexColor)
}

// hexColor draws countries listed in Highlight in the highlight color.
func (e *Engine) hexColor(f *geojson.Feature) color.Color {
	if cc := sources.CountryCode(f); cc != "" && e.Highlight[cc] {
		return e.highlightColor
	}
	return e.polygonColor
}

// pollWorker applies every response that is ready without blocking.
func (e *Engine) pollWorker() {
	if e.worker == nil {
		return
	}
	for {
		select {
		case resp := <-e.worker.Responses():
			e.applyResponse(resp)
		default:
			return
		}
	}
}

func (e *Engine) applyResponse(resp globeworker.Response) {
	if e.isClosed() {
		return
	}
	if resp.Err != nil {
		log.Printf("[ENGINE] Ignoring failed %s response: %v", resp.Kind, resp.Err)
		return
	}
	switch resp.Kind {
	case globeworker.ResultPoints:
		e.points = resp.Points
		e.refresh()
	case globeworker.ResultRings:
		// Takes effect on the next points update.
		e.ringIndices = resp.Rings
	}
}

// pollFeed replaces the arcs with the newest feed batch, if any, and dispatches it.
func (e *Engine) pollFeed() {
	select {
	case arcs := <-e.batches:
		log.Printf("[FEED] Received batch of %d arcs", len(arcs))
		e.Arcs = arcs
		if err := e.dispatch(arcs); err != nil {
			log.Printf("[ENGINE] Failed to dispatch batch: %v", err)
		}
	default:
	}
}

// refresh rebuilds every data layer from the current arcs, points and ring selection.
func (e *Engine) refresh() {
	gc := e.cfg.Globe
	e.pushOverlay()

	strokes := gc.ArcStrokes
	e.globe.
		ArcsData(e.Arcs).
		ArcColor(e.arcColor).
		ArcAltitude(func(a globeworker.ArcRecord) float64 { return a.ArcAlt }).
		ArcStroke(func(globeworker.ArcRecord) float64 {
			return strokes[int(math.Round(e.rng.Float64()*float64(len(strokes)-1)))]
		}).
		ArcDashLength(gc.ArcLength).
		ArcDashInitialGap(func(a globeworker.ArcRecord) float64 { return float64(a.Order) }).
		ArcDashGap(gc.ArcDashGap).
		ArcDashAnimateTime(func(globeworker.ArcRecord) float64 { return gc.ArcTime })

	e.globe.
		RingsData(nil).
		RingColor(e.ringColor).
		RingMaxRadius(gc.MaxRings).
		RingPropagationSpeed(gc.RingSpeed).
		RingRepeatPeriod(gc.RingRepeatPeriod())
	e.globe.RingsData(e.selectedRings())

	e.globe.PointColor(e.pointColor).PointsData(e.points)
}

func (e *Engine) selectedRings() []globeworker.RenderPoint {
	selected := make(map[int]bool, len(e.ringIndices))
	for _, i := range e.ringIndices {
		selected[i] = true
	}
	var out []globeworker.RenderPoint
	for i, p := range e.points {
		if selected[i] {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) arcColor(a globeworker.ArcRecord) color.Color {
	c, err := config.ParseColor(a.Color)
	if err != nil {
		return e.defaultColor
	}
	return c
}

func (e *Engine) resolvedColor(p globeworker.RenderPoint) color.NRGBA {
	if p.Color == nil {
		return e.defaultColor
	}
	return color.NRGBA{R: p.Color.R, G: p.Color.G, B: p.Color.B, A: 255}
}

func (e *Engine) pointColor(p globeworker.RenderPoint) color.Color {
	return e.resolvedColor(p)
}

// ringColor fades the point's color out as the ring grows: rgba(r, g, b, 1-t).
func (e *Engine) ringColor(p globeworker.RenderPoint) globe.RingColorFunc {
	base := e.resolvedColor(p)
	return func(t float64) color.Color {
		a := math.Max(0, math.Min(1, 1-t))
		return color.NRGBA{R: base.R, G: base.G, B: base.B, A: uint8(a*255 + 0.5)}
	}
}
