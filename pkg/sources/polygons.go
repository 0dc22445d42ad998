package sources

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/sudorandom/arc-globe/pkg/utils"
)

// LoadCountryPolygons reads a GeoJSON feature collection from a local path or an
// http(s) URL. URLs are downloaded once into the cache directory.
func LoadCountryPolygons(ctx context.Context, source string) ([]*geojson.Feature, error) {
	var r io.ReadCloser
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		r, err = utils.GetCachedReader(ctx, source, true, "[POLYGONS]")
	} else {
		r, err = os.Open(source)
	}
	if err != nil {
		return nil, fmt.Errorf("opening country polygons: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("[POLYGONS] Error closing %s: %v", source, err)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading country polygons: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding country polygons: %w", err)
	}

	features := fc.Features[:0]
	for _, f := range fc.Features {
		if f.Geometry == nil || !(f.Geometry.IsPolygon() || f.Geometry.IsMultiPolygon()) {
			continue
		}
		features = append(features, f)
	}
	log.Printf("[POLYGONS] Loaded %d country shapes from %s", len(features), source)
	return features, nil
}

// CountryCode returns the ISO alpha-2 code Natural Earth stores on a feature, if any.
func CountryCode(f *geojson.Feature) string {
	for _, key := range []string{"ISO_A2", "iso_a2"} {
		if cc, err := f.PropertyString(key); err == nil && cc != "-99" {
			return cc
		}
	}
	return ""
}
