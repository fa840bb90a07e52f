// Package geo turns the NTA boundary file into GeoJSON.
package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ErrInvalidWKT marks geometry text that is not a usable MULTIPOLYGON.
var ErrInvalidWKT = errors.New("invalid wkt multipolygon")

const multiPolygonTag = "MULTIPOLYGON"

// minRingPoints is the smallest ring kept; shorter rings are dropped.
const minRingPoints = 3

// ParseMultiPolygon parses a WKT MULTIPOLYGON. Parsing is lenient the way
// the boundary exports need: coordinate pairs that are not numeric are
// skipped, rings left with fewer than three points are dropped and polygons
// left without rings are dropped. An error is returned only when nothing
// usable remains.
func ParseMultiPolygon(wkt string) (orb.MultiPolygon, error) {
	s := strings.TrimSpace(wkt)
	if !strings.HasPrefix(strings.ToUpper(s), multiPolygonTag) {
		return nil, ErrInvalidWKT
	}
	s = strings.TrimSpace(s[len(multiPolygonTag):])
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, ErrInvalidWKT
	}
	body := s[1 : len(s)-1]

	var out orb.MultiPolygon
	for _, polyText := range splitGroups(body) {
		var poly orb.Polygon
		for _, ringText := range splitGroups(polyText) {
			if ring := parseRing(ringText); len(ring) >= minRingPoints {
				poly = append(poly, ring)
			}
		}
		if len(poly) > 0 {
			out = append(out, poly)
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidWKT
	}
	return out, nil
}

// splitGroups returns the contents of each top-level parenthesised group in s.
func splitGroups(s string) []string {
	var (
		groups []string
		depth  int
		start  = -1
	)
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start >= 0 {
				groups = append(groups, s[start:i])
				start = -1
			}
			if depth < 0 {
				return groups
			}
		}
	}
	return groups
}

func parseRing(s string) orb.Ring {
	var ring orb.Ring
	for _, pair := range strings.Split(s, ",") {
		parts := strings.Fields(pair)
		if len(parts) < 2 {
			continue
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring
}
