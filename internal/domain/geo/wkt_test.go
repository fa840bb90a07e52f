package geo

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseMultiPolygon(t *testing.T) {
	Convey("Given WKT multipolygon text", t, func() {
		Convey("When it holds a single polygon", func() {
			mp, err := ParseMultiPolygon("MULTIPOLYGON (((-73.9 40.7, -73.8 40.7, -73.8 40.8, -73.9 40.7)))")

			Convey("Then one polygon with one ring is returned", func() {
				So(err, ShouldBeNil)
				So(len(mp), ShouldEqual, 1)
				So(len(mp[0]), ShouldEqual, 1)
				So(len(mp[0][0]), ShouldEqual, 4)
				So(mp[0][0][0], ShouldResemble, orb.Point{-73.9, 40.7})
			})
		})

		Convey("When it holds several polygons and a hole", func() {
			mp, err := ParseMultiPolygon(`MULTIPOLYGON (((0 0, 4 0, 4 4, 0 0), (1 1, 2 1, 2 2, 1 1)), ((10 10, 11 10, 11 11, 10 10)))`)

			Convey("Then the structure is preserved", func() {
				So(err, ShouldBeNil)
				So(len(mp), ShouldEqual, 2)
				So(len(mp[0]), ShouldEqual, 2)
				So(len(mp[1]), ShouldEqual, 1)
			})
		})

		Convey("When some pairs are malformed", func() {
			mp, err := ParseMultiPolygon("MULTIPOLYGON (((0 0, x y, 1 0, 1 1, 0 0)))")

			Convey("Then the bad pairs are skipped", func() {
				So(err, ShouldBeNil)
				So(len(mp[0][0]), ShouldEqual, 4)
			})
		})

		Convey("When a ring has fewer than three points", func() {
			_, err := ParseMultiPolygon("MULTIPOLYGON (((0 0, 1 1)))")

			Convey("Then nothing usable remains", func() {
				So(err, ShouldEqual, ErrInvalidWKT)
			})
		})

		Convey("When the text is not a multipolygon", func() {
			_, err1 := ParseMultiPolygon("POLYGON ((0 0, 1 0, 1 1, 0 0))")
			_, err2 := ParseMultiPolygon("")
			_, err3 := ParseMultiPolygon("MULTIPOLYGON EMPTY")

			Convey("Then it is rejected", func() {
				So(err1, ShouldEqual, ErrInvalidWKT)
				So(err2, ShouldEqual, ErrInvalidWKT)
				So(err3, ShouldEqual, ErrInvalidWKT)
			})
		})
	})
}

func TestFeatureCollection(t *testing.T) {
	Convey("Given NTA areas", t, func() {
		areas := []Area{
			{Name: "Astoria", Borough: "Queens", Code: "QN0101", WKT: "MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)))"},
			{Name: "Islands", Borough: "Bronx", Code: "BX1001", WKT: "MULTIPOLYGON (((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 6, 5 5)))"},
			{Name: "Broken", Borough: "Bronx", Code: "BX9999", WKT: ""},
		}

		Convey("When building the feature collection", func() {
			fc := FeatureCollection(areas)

			Convey("Then unparseable areas are skipped", func() {
				So(len(fc.Features), ShouldEqual, 2)
			})

			Convey("And geometry types follow the polygon count", func() {
				So(fc.Features[0].Geometry.GeoJSONType(), ShouldEqual, "Polygon")
				So(fc.Features[1].Geometry.GeoJSONType(), ShouldEqual, "MultiPolygon")
			})

			Convey("And features are keyed by NTA name", func() {
				So(fc.Features[0].ID, ShouldEqual, "Astoria")
				So(fc.Features[0].Properties["BoroName"], ShouldEqual, "Queens")
				So(fc.Features[0].Properties["NTA2020"], ShouldEqual, "QN0101")
			})

			Convey("And it marshals as a FeatureCollection", func() {
				raw, err := json.Marshal(fc)
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"type":"FeatureCollection"`)
			})
		})
	})
}
