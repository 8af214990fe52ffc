// Package geo collects the small geometry helpers the ingestion engine
// needs on top of github.com/paulmach/orb: WKT literal construction with
// spec-mandated precision, great-circle length, and the AOI area filter.
package geo

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// coordPrecision is the number of decimal digits the WKT builders in this
// package write for each coordinate, chosen so that every emitted value carries at least
// 12 significant digits (spec §4.2). We hand-roll WKT here rather than call
// orb/encoding/wkt.MarshalString because that encoder's formatting is not
// precision-configurable — see DESIGN.md.
const coordPrecision = 12

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', coordPrecision, 64)
}

func point(p orb.Point) string {
	return formatCoord(p[0]) + " " + formatCoord(p[1])
}

func pointList(pts []orb.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = point(p)
	}
	return strings.Join(parts, ", ")
}

// PointWKT renders "POINT(lon lat)".
func PointWKT(p orb.Point) string {
	return "POINT(" + point(p) + ")"
}

// LineStringWKT renders "LINESTRING(lon lat, ...)".
func LineStringWKT(ls orb.LineString) string {
	return "LINESTRING(" + pointList([]orb.Point(ls)) + ")"
}

// PolygonWKT renders "POLYGON((ring), (ring), ...)".
func PolygonWKT(poly orb.Polygon) string {
	rings := make([]string, len(poly))
	for i, ring := range poly {
		rings[i] = "(" + pointList([]orb.Point(ring)) + ")"
	}
	return "POLYGON(" + strings.Join(rings, ", ") + ")"
}

// MultiPolygonWKT renders "MULTIPOLYGON(((ring)), ...)".
func MultiPolygonWKT(mp orb.MultiPolygon) string {
	polys := make([]string, len(mp))
	for i, poly := range mp {
		rings := make([]string, len(poly))
		for j, ring := range poly {
			rings[j] = "(" + pointList([]orb.Point(ring)) + ")"
		}
		polys[i] = "(" + strings.Join(rings, ", ") + ")"
	}
	return "MULTIPOLYGON(" + strings.Join(polys, ", ") + ")"
}

// MultiLineStringWKT renders "MULTILINESTRING((line), ...)".
func MultiLineStringWKT(mls orb.MultiLineString) string {
	lines := make([]string, len(mls))
	for i, ls := range mls {
		lines[i] = "(" + pointList([]orb.Point(ls)) + ")"
	}
	return "MULTILINESTRING(" + strings.Join(lines, ", ") + ")"
}
