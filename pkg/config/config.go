// Package config holds the globe's visual settings. Defaults reproduce the stock
// purple globe; any field can be overridden from a TOML file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mazznoer/csscolorparser"
)

type Position struct {
	Lat float64 `toml:"lat"`
	Lng float64 `toml:"lng"`
}

type Vec3 struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	Z float64 `toml:"z"`
}

type Light struct {
	Color     string  `toml:"color"`
	Intensity float64 `toml:"intensity"`
	Position  Vec3    `toml:"position"`
}

type Globe struct {
	PointSize          float64   `toml:"point_size"`
	GlobeColor         string    `toml:"globe_color"`
	ShowAtmosphere     bool      `toml:"show_atmosphere"`
	AtmosphereColor    string    `toml:"atmosphere_color"`
	AtmosphereAltitude float64   `toml:"atmosphere_altitude"`
	Emissive           string    `toml:"emissive"`
	EmissiveIntensity  float64   `toml:"emissive_intensity"`
	Shininess          float64   `toml:"shininess"`
	PolygonColor       string    `toml:"polygon_color"`
	HighlightColor     string    `toml:"highlight_color"`
	HexResolution      int       `toml:"hex_resolution"`
	HexMargin          float64   `toml:"hex_margin"`
	ArcTime            float64   `toml:"arc_time"`
	ArcLength          float64   `toml:"arc_length"`
	ArcDashGap         float64   `toml:"arc_dash_gap"`
	ArcStrokes         []float64 `toml:"arc_strokes"`
	Rings              int       `toml:"rings"`
	MaxRings           float64   `toml:"max_rings"`
	RingSpeed          float64   `toml:"ring_propagation_speed"`
	DefaultPointColor  string    `toml:"default_point_color"`
	InitialPosition    Position  `toml:"initial_position"`
	AutoRotate         bool      `toml:"auto_rotate"`
	AutoRotateSpeed    float64   `toml:"auto_rotate_speed"`
}

type Lights struct {
	Ambient         Light `toml:"ambient"`
	DirectionalLeft Light `toml:"directional_left"`
	DirectionalTop  Light `toml:"directional_top"`
	Point           Light `toml:"point"`
}

type Camera struct {
	FOV           float64 `toml:"fov"`
	Distance      float64 `toml:"distance"`
	Near          float64 `toml:"near"`
	Far           float64 `toml:"far"`
	MinPolarAngle float64 `toml:"min_polar_angle"`
	MaxPolarAngle float64 `toml:"max_polar_angle"`
	MaxPixelRatio float64 `toml:"max_pixel_ratio"`
	Exposure      float64 `toml:"exposure"`
	FogColor      string  `toml:"fog_color"`
	FogNear       float64 `toml:"fog_near"`
	FogFar        float64 `toml:"fog_far"`
	Background    string  `toml:"background"`
}

type Config struct {
	Seed   int64  `toml:"seed"`
	Globe  Globe  `toml:"globe"`
	Lights Lights `toml:"lights"`
	Camera Camera `toml:"camera"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Seed: 1,
		Globe: Globe{
			PointSize:          4,
			GlobeColor:         "#8C5CF5",
			ShowAtmosphere:     true,
			AtmosphereColor:    "#FFFFFF",
			AtmosphereAltitude: 0.05,
			Emissive:           "#062056",
			EmissiveIntensity:  0.05,
			Shininess:          0.5,
			PolygonColor:       "rgba(255,255,255,0.5)",
			HighlightColor:     "rgba(6,182,212,0.8)",
			HexResolution:      3,
			HexMargin:          0.7,
			ArcTime:            1000,
			ArcLength:          0.9,
			ArcDashGap:         15,
			ArcStrokes:         []float64{0.32, 0.28, 0.3},
			Rings:              1,
			MaxRings:           2,
			RingSpeed:          3,
			DefaultPointColor:  "#ffffff",
			InitialPosition:    Position{Lat: 22.3193, Lng: 114.1694},
			AutoRotate:         true,
			AutoRotateSpeed:    1,
		},
		Lights: Lights{
			Ambient:         Light{Color: "#38bdf8", Intensity: 0.6},
			DirectionalLeft: Light{Color: "#ffffff", Intensity: 1, Position: Vec3{X: -400, Y: 100, Z: 400}},
			DirectionalTop:  Light{Color: "#ffffff", Intensity: 1, Position: Vec3{X: -200, Y: 500, Z: 200}},
			Point:           Light{Color: "#ffffff", Intensity: 0.8, Position: Vec3{X: -200, Y: 500, Z: 200}},
		},
		Camera: Camera{
			FOV:           50,
			Distance:      300,
			Near:          180,
			Far:           1800,
			MinPolarAngle: 51.43, // π/3.5
			MaxPolarAngle: 120,   // π - π/3
			MaxPixelRatio: 1.5,
			Exposure:      1.1,
			FogColor:      "#ffffff",
			FogNear:       400,
			FogFar:        2000,
			Background:    "#000000",
		},
	}
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads a TOML file on top of Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	colors := map[string]string{
		"globe.globe_color":             c.Globe.GlobeColor,
		"globe.atmosphere_color":        c.Globe.AtmosphereColor,
		"globe.emissive":                c.Globe.Emissive,
		"globe.polygon_color":           c.Globe.PolygonColor,
		"globe.highlight_color":         c.Globe.HighlightColor,
		"globe.default_point_color":     c.Globe.DefaultPointColor,
		"lights.ambient.color":          c.Lights.Ambient.Color,
		"lights.directional_left.color": c.Lights.DirectionalLeft.Color,
		"lights.directional_top.color":  c.Lights.DirectionalTop.Color,
		"lights.point.color":            c.Lights.Point.Color,
		"camera.fog_color":              c.Camera.FogColor,
		"camera.background":             c.Camera.Background,
	}
	for field, v := range colors {
		if _, err := ParseColor(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
		}
	}

	switch {
	case c.Globe.Rings <= 0:
		return fmt.Errorf("%w: globe.rings must be positive", ErrInvalidConfig)
	case c.Globe.ArcTime <= 0:
		return fmt.Errorf("%w: globe.arc_time must be positive", ErrInvalidConfig)
	case len(c.Globe.ArcStrokes) == 0:
		return fmt.Errorf("%w: globe.arc_strokes is empty", ErrInvalidConfig)
	case c.Globe.HexResolution < 0 || c.Globe.HexResolution > 6:
		return fmt.Errorf("%w: globe.hex_resolution must be within 0..6", ErrInvalidConfig)
	case c.Camera.MinPolarAngle > c.Camera.MaxPolarAngle:
		return fmt.Errorf("%w: camera.min_polar_angle exceeds max_polar_angle", ErrInvalidConfig)
	case c.Camera.Distance <= 100:
		return fmt.Errorf("%w: camera.distance must be outside the globe", ErrInvalidConfig)
	}
	return nil
}

// RingRepeatPeriod is the interval between ring spawns in milliseconds.
func (g Globe) RingRepeatPeriod() float64 {
	return g.ArcTime * g.ArcLength / float64(g.Rings)
}

// ParseColor accepts any CSS color string ("#8C5CF5", "rgba(255,255,255,0.5)", "white").
func ParseColor(s string) (color.NRGBA, error) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b, a := c.RGBA255()
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// MustColor is ParseColor for values already checked by Validate.
func MustColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
