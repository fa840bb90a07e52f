package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Area is one row of the NTA boundary file.
type Area struct {
	Name    string
	Borough string
	Code    string
	WKT     string
}

// FeatureCollection converts areas into GeoJSON keyed by NTA name. A single
// polygon becomes a Polygon feature, several become a MultiPolygon. Areas
// whose geometry does not parse are left out.
func FeatureCollection(areas []Area) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, a := range areas {
		mp, err := ParseMultiPolygon(a.WKT)
		if err != nil {
			continue
		}
		var g orb.Geometry = mp
		if len(mp) == 1 {
			g = mp[0]
		}
		f := geojson.NewFeature(g)
		f.ID = a.Name
		f.Properties = geojson.Properties{
			"NTAName":  a.Name,
			"BoroName": a.Borough,
			"NTA2020":  a.Code,
		}
		fc.Append(f)
	}
	return fc
}
