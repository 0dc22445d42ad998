// Package sources provides the data the globe shows: the sample route catalog and the
// country polygons for the overlay.
package sources

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/biter777/countries"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
)

// ArcColors is the palette sample arcs pick from.
var ArcColors = []string{"#06b6d4", "#3b82f6", "#6366f1"}

type City struct {
	Name     string
	CC       string
	Lat, Lng float64
}

type Route struct {
	From, To City
	Alt      float64
}

var (
	newYork      = City{"New York", "US", 40.7128, -74.006}
	paris        = City{"Paris", "FR", 48.8566, 2.3522}
	tokyo        = City{"Tokyo", "JP", 35.6895, 139.6917}
	sydney       = City{"Sydney", "AU", -33.8688, 151.2093}
	london       = City{"London", "GB", 51.5074, -0.1278}
	moscow       = City{"Moscow", "RU", 55.7558, 37.6173}
	saoPaulo     = City{"São Paulo", "BR", -23.5505, -46.6333}
	buenosAires  = City{"Buenos Aires", "AR", -34.6037, -58.3816}
	sanFrancisco = City{"San Francisco", "US", 37.7749, -122.4194}
	singapore    = City{"Singapore", "SG", 1.3521, 103.8198}
	newDelhi     = City{"New Delhi", "IN", 28.6139, 77.209}
	johannesburg = City{"Johannesburg", "ZA", -26.2041, 28.0473}
	mexicoCity   = City{"Mexico City", "MX", 19.4326, -99.1332}
	madrid       = City{"Madrid", "ES", 40.4168, -3.7038}
	copenhagen   = City{"Copenhagen", "DK", 55.6761, 12.5683}
	helsinki     = City{"Helsinki", "FI", 60.1695, 24.9355}
	beijing      = City{"Beijing", "CN", 39.9042, 116.4074}
	rio          = City{"Rio de Janeiro", "BR", -22.9068, -43.1729}
	berlin       = City{"Berlin", "DE", 52.52, 13.405}
	rome         = City{"Rome", "IT", 41.9028, 12.4964}
	capeTown     = City{"Cape Town", "ZA", -33.9249, 18.4241}
	losAngeles   = City{"Los Angeles", "US", 34.0522, -118.2437}
	auckland     = City{"Auckland", "NZ", -36.8485, 174.7633}
	toronto      = City{"Toronto", "CA", 43.6532, -79.3832}
	shanghai     = City{"Shanghai", "CN", 31.2304, 121.4737}
	seoul        = City{"Seoul", "KR", 37.5665, 126.978}
	cairo        = City{"Cairo", "EG", 30.0444, 31.2357}
	lagos        = City{"Lagos", "NG", 6.5244, 3.3792}
	nairobi      = City{"Nairobi", "KE", -1.2921, 36.8219}
	manila       = City{"Manila", "PH", 14.5995, 120.9842}
)

// SampleRoutes are shown when no feed is configured. Their position in the slice is
// the arc order.
var SampleRoutes = []Route{
	{newYork, paris, 0.2},
	{tokyo, sydney, 0.3},
	{london, moscow, 0.25},
	{saoPaulo, buenosAires, 0.2},
	{sanFrancisco, singapore, 0.3},
	{newDelhi, johannesburg, 0.35},
	{mexicoCity, madrid, 0.28},
	{copenhagen, helsinki, 0.22},
	{beijing, rio, 0.3},
	{berlin, rome, 0.25},
	{capeTown, losAngeles, 0.35},
	{auckland, toronto, 0.32},
	{shanghai, seoul, 0.25},
	{cairo, lagos, 0.2},
	{nairobi, manila, 0.3},
}

// Arcs turns routes into arc records, numbering them from 1 and picking each color
// from ArcColors with rng.
func Arcs(routes []Route, rng *rand.Rand) []globeworker.ArcRecord {
	arcs := make([]globeworker.ArcRecord, len(routes))
	for i, r := range routes {
		arcs[i] = globeworker.ArcRecord{
			Order:    i + 1,
			StartLat: r.From.Lat,
			StartLng: r.From.Lng,
			EndLat:   r.To.Lat,
			EndLng:   r.To.Lng,
			ArcAlt:   r.Alt,
			Color:    ArcColors[rng.Intn(len(ArcColors))],
		}
	}
	return arcs
}

// Label reads like "New York, United States → Paris, France".
func (r Route) Label() string {
	return fmt.Sprintf("%s, %s → %s, %s", r.From.Name, CountryName(r.From.CC), r.To.Name, CountryName(r.To.CC))
}

// CountryName returns a short display name for an ISO 3166-1 alpha-2 code, or the code
// itself when it is unknown.
func CountryName(cc string) string {
	name := countries.ByName(cc).String()
	if name == "Unknown" {
		return cc
	}
	if idx := strings.Index(name, " ("); idx != -1 {
		name = name[:idx]
	}
	return name
}

// RouteCountries returns the set of country codes the routes start or end in.
func RouteCountries(routes []Route) map[string]bool {
	set := make(map[string]bool, len(routes)*2)
	for _, r := range routes {
		set[r.From.CC] = true
		set[r.To.CC] = true
	}
	return set
}
