package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb"
)

const maxAreasPerBorough = 8

// Grid origin and cell size, in degrees, for the synthetic boundaries.
const (
	gridLon  = -74.05
	gridLat  = 40.55
	cellSize = 0.02
)

var boroughs = []string{"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island"}

var areaNames = map[string][]string{
	"Manhattan":     {"Chelsea-Hudson Yards", "East Village", "Harlem (South)", "Midtown-Times Square", "Upper West Side (Central)", "Financial District-Battery Park City", "Lower East Side", "Washington Heights (North)"},
	"Brooklyn":      {"Williamsburg", "Park Slope", "Bushwick (West)", "Greenpoint", "Crown Heights (North)", "Bedford-Stuyvesant (East)", "Sunset Park (Central)", "Fort Greene"},
	"Queens":        {"Astoria (Central)", "Long Island City-Hunters Point", "Jackson Heights", "Sunnyside", "Ridgewood", "Flushing-Willets Point", "Elmhurst", "Forest Hills"},
	"Bronx":         {"Mott Haven-Port Morris", "Highbridge", "Concourse-Concourse Village", "Fordham Heights", "Kingsbridge Heights-Van Cortlandt Village", "Pelham Bay-Country Club-City Island", "Riverdale-Spuyten Duyvil", "Longwood"},
	"Staten Island": {"St. George-New Brighton", "Tompkinsville-Stapleton-Clifton-Fox Hills", "Great Kills-Eltingville", "Mariner's Harbor-Arlington-Graniteville", "New Springville-Willowbrook-Bulls Head-Travis", "Annadale-Huguenot-Prince's Bay-Woodrow", "Rossville-Charleston-Tottenville", "Westerleigh-Castleton Corners"},
}

var boroughCodes = map[string]string{
	"Manhattan":     "MN",
	"Brooklyn":      "BK",
	"Queens":        "QN",
	"Bronx":         "BX",
	"Staten Island": "SI",
}

// Area is one generated neighbourhood.
type Area struct {
	Code    string
	Name    string
	Borough string
	Bound   orb.Bound
}

// Areas returns perBorough neighbourhoods for every borough, laid out on a
// grid with one row per borough.
func Areas(perBorough int) []Area {
	perBorough = min(max(perBorough, 0), maxAreasPerBorough)
	out := make([]Area, 0, perBorough*len(boroughs))
	for row, b := range boroughs {
		for col := range perBorough {
			minPt := orb.Point{gridLon + float64(col)*cellSize, gridLat + float64(row)*cellSize}
			out = append(out, Area{
				Code:    fmt.Sprintf("%s%02d%02d", boroughCodes[b], row+1, col+1),
				Name:    areaNames[b][col],
				Borough: b,
				Bound:   orb.Bound{Min: minPt, Max: orb.Point{minPt[0] + cellSize, minPt[1] + cellSize}},
			})
		}
	}
	return out
}

// WKT renders the area boundary as a single-polygon MULTIPOLYGON.
func (a Area) WKT() string {
	ring := a.Bound.ToRing()
	pts := make([]string, len(ring))
	for i, p := range ring {
		pts[i] = fmt.Sprintf("%.6f %.6f", p[0], p[1])
	}
	return "MULTIPOLYGON (((" + strings.Join(pts, ", ") + ")))"
}

// WriteAreas writes the boundary file: the_geom, NTA2020, NTAName, BoroName.
func WriteAreas(w io.Writer, areas []Area) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"the_geom", "NTA2020", "NTAName", "BoroName"}); err != nil {
		return err
	}
	for _, a := range areas {
		if err := cw.Write([]string{a.WKT(), a.Code, a.Name, a.Borough}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
