package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// LoadAOI reads the area-of-interest polygon configured for the engine
// (spec §4.6) from disk. An empty path is not an error: it means no AOI is
// configured, and every entity is in-priority. The file is sniffed by
// extension: ".wkt" is parsed as a POLYGON/MULTIPOLYGON literal, anything
// else is parsed as GeoJSON, accepting a bare Polygon/MultiPolygon geometry,
// a Feature, or a FeatureCollection (its first feature is used).
//
// Both parsers are hand-written rather than built on orb/encoding/wkt or
// orb/geojson — see DESIGN.md for the same reasoning already applied to
// this package's WKT writer and point-in-polygon test: neither of those
// packages' exact API surface can be confirmed without compiling against
// the module, and a wrong guess would silently break AOI loading.
func LoadAOI(path string) (orb.MultiPolygon, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AOI file %s: %w", path, err)
	}

	if strings.HasSuffix(strings.ToLower(path), ".wkt") {
		return parseAOIWKT(string(raw))
	}
	return parseAOIGeoJSON(raw)
}

// --- WKT ---

// parseAOIWKT accepts a single POLYGON or MULTIPOLYGON literal in the
// textual shape PolygonWKT/MultiPolygonWKT emit.
func parseAOIWKT(s string) (orb.MultiPolygon, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	switch {
	case strings.HasPrefix(upper, "MULTIPOLYGON"):
		body, err := wktParens(s, len("MULTIPOLYGON"))
		if err != nil {
			return nil, err
		}
		tree, err := parseWKTTree(body)
		if err != nil {
			return nil, err
		}
		return treeToMultiPolygon(tree)

	case strings.HasPrefix(upper, "POLYGON"):
		body, err := wktParens(s, len("POLYGON"))
		if err != nil {
			return nil, err
		}
		tree, err := parseWKTTree(body)
		if err != nil {
			return nil, err
		}
		poly, err := treeToPolygon(tree)
		if err != nil {
			return nil, err
		}
		return orb.MultiPolygon{poly}, nil

	default:
		return nil, fmt.Errorf("AOI WKT must be POLYGON or MULTIPOLYGON, got %q", s)
	}
}

// wktParens strips the geometry tag and returns the text strictly between
// its outermost matching parentheses.
func wktParens(s string, tagLen int) (string, error) {
	rest := strings.TrimSpace(s[tagLen:])
	if len(rest) < 2 || rest[0] != '(' || rest[len(rest)-1] != ')' {
		return "", fmt.Errorf("malformed WKT geometry: %q", s)
	}
	return rest[1 : len(rest)-1], nil
}

// wktNode is either a leaf orb.Point or a nested list of wktNodes — the
// generic shape a WKT coordinate list takes before it is known whether it
// represents a ring, a polygon, or a multipolygon.
type wktNode struct {
	point    orb.Point
	isPoint  bool
	children []wktNode
}

// parseWKTTree tokenizes a parenthesised, comma-separated coordinate list
// into a wktNode tree, recursing on nested parentheses.
func parseWKTTree(s string) ([]wktNode, error) {
	var nodes []wktNode
	i := 0
	n := len(s)

	for i < n {
		for i < n && (s[i] == ' ' || s[i] == ',' || s[i] == '\t' || s[i] == '\n') {
			i++
		}
		if i >= n {
			break
		}

		if s[i] == '(' {
			depth := 1
			j := i + 1
			for j < n && depth > 0 {
				switch s[j] {
				case '(':
					depth++
				case ')':
					depth--
				}
				j++
			}
			if depth != 0 {
				return nil, fmt.Errorf("unbalanced parentheses in WKT: %q", s)
			}
			inner := s[i+1 : j-1]
			children, err := parseWKTTree(inner)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, wktNode{children: children})
			i = j
			continue
		}

		j := i
		for j < n && s[j] != ',' {
			j++
		}
		p, err := parseWKTPoint(s[i:j])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, wktNode{point: p, isPoint: true})
		i = j
	}

	return nodes, nil
}

func parseWKTPoint(s string) (orb.Point, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 {
		return orb.Point{}, fmt.Errorf("malformed WKT coordinate pair: %q", s)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("malformed WKT longitude: %q", s)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("malformed WKT latitude: %q", s)
	}
	return orb.Point{lon, lat}, nil
}

// treeToPolygon interprets a parsed tree as a POLYGON body: a list of
// rings, each ring a list of points.
func treeToPolygon(tree []wktNode) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(tree))
	for _, ringNode := range tree {
		if ringNode.isPoint {
			return nil, fmt.Errorf("expected a ring (nested parentheses) in POLYGON body")
		}
		ring := make(orb.Ring, 0, len(ringNode.children))
		for _, p := range ringNode.children {
			if !p.isPoint {
				return nil, fmt.Errorf("expected a coordinate pair inside a ring")
			}
			ring = append(ring, p.point)
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// treeToMultiPolygon interprets a parsed tree as a MULTIPOLYGON body: a
// list of polygons, each a list of rings.
func treeToMultiPolygon(tree []wktNode) (orb.MultiPolygon, error) {
	mp := make(orb.MultiPolygon, 0, len(tree))
	for _, polyNode := range tree {
		if polyNode.isPoint {
			return nil, fmt.Errorf("expected a polygon (nested parentheses) in MULTIPOLYGON body")
		}
		poly, err := treeToPolygon(polyNode.children)
		if err != nil {
			return nil, err
		}
		mp = append(mp, poly)
	}
	return mp, nil
}

// --- GeoJSON ---

// geojsonGeometry is the minimal decode shape needed to walk a Polygon/
// MultiPolygon geometry, optionally wrapped in a Feature or
// FeatureCollection.
type geojsonGeometry struct {
	Type        string            `json:"type"`
	Coordinates json.RawMessage   `json:"coordinates"`
	Geometry    *geojsonGeometry  `json:"geometry"`
	Features    []geojsonGeometry `json:"features"`
}

func parseAOIGeoJSON(raw []byte) (orb.MultiPolygon, error) {
	var doc geojsonGeometry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse AOI GeoJSON: %w", err)
	}
	return geojsonToMultiPolygon(doc)
}

func geojsonToMultiPolygon(doc geojsonGeometry) (orb.MultiPolygon, error) {
	switch doc.Type {
	case "FeatureCollection":
		if len(doc.Features) == 0 {
			return nil, fmt.Errorf("AOI FeatureCollection has no features")
		}
		return geojsonToMultiPolygon(doc.Features[0])

	case "Feature":
		if doc.Geometry == nil {
			return nil, fmt.Errorf("AOI Feature has no geometry")
		}
		return geojsonToMultiPolygon(*doc.Geometry)

	case "Polygon":
		var coords [][][2]float64
		if err := json.Unmarshal(doc.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("malformed Polygon coordinates: %w", err)
		}
		return orb.MultiPolygon{coordsToPolygon(coords)}, nil

	case "MultiPolygon":
		var coords [][][][2]float64
		if err := json.Unmarshal(doc.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("malformed MultiPolygon coordinates: %w", err)
		}
		mp := make(orb.MultiPolygon, 0, len(coords))
		for _, polyCoords := range coords {
			mp = append(mp, coordsToPolygon(polyCoords))
		}
		return mp, nil

	default:
		return nil, fmt.Errorf("AOI geometry must be a Polygon or MultiPolygon, got %q", doc.Type)
	}
}

func coordsToPolygon(rings [][][2]float64) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, xy := range ring {
			r = append(r, orb.Point{xy[0], xy[1]})
		}
		poly = append(poly, r)
	}
	return poly
}
