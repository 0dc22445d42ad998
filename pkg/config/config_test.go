package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := cfg.Globe.RingRepeatPeriod(); got != 900 {
		t.Errorf("RingRepeatPeriod() = %f; want 900", got)
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
seed = 99

[globe]
globe_color = "#123456"
arc_time = 2000
rings = 2

[globe.initial_position]
lat = 1.5
lng = -2.5

[camera]
fov = 60
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Seed != 99 || cfg.Globe.GlobeColor != "#123456" || cfg.Camera.FOV != 60 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Globe.InitialPosition != (Position{Lat: 1.5, Lng: -2.5}) {
		t.Errorf("InitialPosition = %+v", cfg.Globe.InitialPosition)
	}
	// Untouched fields keep their defaults.
	if cfg.Globe.AtmosphereColor != "#FFFFFF" || cfg.Camera.Distance != 300 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if got := cfg.Globe.RingRepeatPeriod(); got != 900 {
		t.Errorf("RingRepeatPeriod() = %f; want 900", got)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []string{
		`[globe]
globe_color = "not-a-color"`,
		`[globe]
highlight_color = "#12"`,
		`[globe]
rings = 0`,
		`[globe]
arc_strokes = []`,
		`[camera]
distance = 50`,
	}
	for _, data := range tests {
		if _, err := Parse([]byte(data)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Parse(%q) error = %v; want ErrInvalidConfig", data, err)
		}
	}

	if _, err := Parse([]byte("this is = = not toml")); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil || cfg.Seed != Default().Seed {
		t.Fatalf("Load(\"\") = %+v, %v", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "globe.toml")
	if err := os.WriteFile(path, []byte("seed = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 5 {
		t.Errorf("Seed = %d; want 5", cfg.Seed)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#8C5CF5", color.NRGBA{0x8c, 0x5c, 0xf5, 255}},
		{"#fff", color.NRGBA{255, 255, 255, 255}},
		{"rgba(255,255,255,0.5)", color.NRGBA{255, 255, 255, 128}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q) error: %v", tt.in, err)
			continue
		}
		// Alpha rounding differs by a unit between parsers; allow it.
		if got.R != tt.want.R || got.G != tt.want.G || got.B != tt.want.B || absDiff(got.A, tt.want.A) > 1 {
			t.Errorf("ParseColor(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
