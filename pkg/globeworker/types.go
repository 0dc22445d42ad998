// Package globeworker prepares arc data for the globe off the render loop: it resolves
// endpoint colors, collapses shared endpoints and samples which points pulse.
package globeworker

// ArcRecord is one arc between two coordinates, as supplied by the presenter.
type ArcRecord struct {
	Order    int     `json:"order" toml:"order"`
	StartLat float64 `json:"startLat" toml:"start_lat"`
	StartLng float64 `json:"startLng" toml:"start_lng"`
	EndLat   float64 `json:"endLat" toml:"end_lat"`
	EndLng   float64 `json:"endLng" toml:"end_lng"`
	ArcAlt   float64 `json:"arcAlt" toml:"arc_alt"`
	Color    string  `json:"color" toml:"color"`
}

// RGB is a resolved 8-bit color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RenderPoint is a de-duplicated arc endpoint. Color is nil when the arc's hex color
// could not be resolved.
type RenderPoint struct {
	Size  float64 `json:"size"`
	Order int     `json:"order"`
	Color *RGB    `json:"color"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// RingRange describes a ring sampling job: Count distinct indices from [Min, Max).
type RingRange struct {
	Min   int `json:"min"`
	Max   int `json:"max"`
	Count int `json:"count"`
}

const pointSize = 1
