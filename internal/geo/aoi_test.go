package geo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emi420/underpass-go/internal/geo"
)

func writeAOIFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path
}

func TestLoadAOIEmptyPath(t *testing.T) {
	aoi, err := geo.LoadAOI("")
	if err != nil {
		t.Fatalf("expected no error for empty path, got %v", err)
	}
	if aoi != nil {
		t.Fatalf("expected nil AOI for empty path, got %v", aoi)
	}
}

func TestLoadAOIWKTPolygon(t *testing.T) {
	path := writeAOIFile(t, "aoi.wkt", `POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))`)

	aoi, err := geo.LoadAOI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aoi) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(aoi))
	}
	if len(aoi[0]) != 1 {
		t.Fatalf("expected 1 ring, got %d", len(aoi[0]))
	}
	if len(aoi[0][0]) != 5 {
		t.Fatalf("expected 5 points in ring, got %d", len(aoi[0][0]))
	}
	if aoi[0][0][0][0] != 0 || aoi[0][0][0][1] != 0 {
		t.Fatalf("unexpected first point: %v", aoi[0][0][0])
	}
}

func TestLoadAOIWKTMultiPolygon(t *testing.T) {
	path := writeAOIFile(t, "aoi.wkt", `MULTIPOLYGON(((0 0, 1 0, 1 1, 0 1, 0 0)), ((5 5, 6 5, 6 6, 5 6, 5 5)))`)

	aoi, err := geo.LoadAOI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aoi) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(aoi))
	}
	for i, poly := range aoi {
		if len(poly) != 1 {
			t.Fatalf("polygon %d: expected 1 ring, got %d", i, len(poly))
		}
		if len(poly[0]) != 5 {
			t.Fatalf("polygon %d: expected 5 points, got %d", i, len(poly[0]))
		}
	}
}

func TestLoadAOIWKTMalformed(t *testing.T) {
	path := writeAOIFile(t, "aoi.wkt", `LINESTRING(0 0, 1 1)`)

	if _, err := geo.LoadAOI(path); err == nil {
		t.Fatalf("expected an error for a non-polygon WKT geometry")
	}
}

func TestLoadAOIWKTUnbalancedParens(t *testing.T) {
	path := writeAOIFile(t, "aoi.wkt", `POLYGON((0 0, 10 0, 10 10, 0 10, 0 0)`)

	if _, err := geo.LoadAOI(path); err == nil {
		t.Fatalf("expected an error for unbalanced parentheses")
	}
}

func TestLoadAOIGeoJSONBarePolygon(t *testing.T) {
	path := writeAOIFile(t, "aoi.geojson", `{
		"type": "Polygon",
		"coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]
	}`)

	aoi, err := geo.LoadAOI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aoi) != 1 || len(aoi[0]) != 1 || len(aoi[0][0]) != 5 {
		t.Fatalf("unexpected AOI shape: %v", aoi)
	}
}

func TestLoadAOIGeoJSONBareMultiPolygon(t *testing.T) {
	path := writeAOIFile(t, "aoi.geojson", `{
		"type": "MultiPolygon",
		"coordinates": [
			[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
			[[[5,5],[6,5],[6,6],[5,6],[5,5]]]
		]
	}`)

	aoi, err := geo.LoadAOI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aoi) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(aoi))
	}
}

func TestLoadAOIGeoJSONFeature(t *testing.T) {
	path := writeAOIFile(t, "aoi.geojson", `{
		"type": "Feature",
		"properties": {"name": "test area"},
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]
		}
	}`)

	aoi, err := geo.LoadAOI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aoi) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(aoi))
	}
}

func TestLoadAOIGeoJSONFeatureCollection(t *testing.T) {
	path := writeAOIFile(t, "aoi.geojson", `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]
				}
			}
		]
	}`)

	aoi, err := geo.LoadAOI(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aoi) != 1 {
		t.Fatalf("expected 1 polygon, got %d", len(aoi))
	}
}

func TestLoadAOIGeoJSONEmptyFeatureCollection(t *testing.T) {
	path := writeAOIFile(t, "aoi.geojson", `{"type": "FeatureCollection", "features": []}`)

	if _, err := geo.LoadAOI(path); err == nil {
		t.Fatalf("expected an error for an empty FeatureCollection")
	}
}

func TestLoadAOIGeoJSONUnsupportedType(t *testing.T) {
	path := writeAOIFile(t, "aoi.geojson", `{"type": "Point", "coordinates": [0,0]}`)

	if _, err := geo.LoadAOI(path); err == nil {
		t.Fatalf("expected an error for an unsupported geometry type")
	}
}

func TestLoadAOIUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.geojson")

	if _, err := geo.LoadAOI(path); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
