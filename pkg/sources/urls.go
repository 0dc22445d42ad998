package sources

const (
	// CountryPolygonsURL is the Natural Earth 1:110m admin-0 country set used for the
	// dotted overlay.
	CountryPolygonsURL = "https://raw.githubusercontent.com/vasturiano/globe.gl/master/example/datasets/ne_110m_admin_0_countries.geojson"
)
