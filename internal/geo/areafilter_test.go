package geo_test

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/geo"
)

func square(minLon, minLat, maxLon, maxLat float64) orb.Polygon {
	return orb.Polygon{
		orb.Ring{
			{minLon, minLat},
			{maxLon, minLat},
			{maxLon, maxLat},
			{minLon, maxLat},
			{minLon, minLat},
		},
	}
}

func TestAreaFilterEmptyAOIIsAllPriority(t *testing.T) {
	f := geo.NewAreaFilter(nil)
	n := domain.NewNode(1)
	n.SetPoint(200, 200)
	if !f.NodeInPriority(n) {
		t.Fatalf("empty AOI must mark every node in-priority")
	}
}

func TestAreaFilterNodeInsideOutside(t *testing.T) {
	aoi := orb.MultiPolygon{square(91.085, 25.192, 91.089, 25.195)}
	f := geo.NewAreaFilter(aoi)

	inside := domain.NewNode(1)
	inside.SetPoint(91.087, 25.1935)
	if !f.NodeInPriority(inside) {
		t.Fatalf("expected point inside AOI to be in-priority")
	}

	outside := domain.NewNode(2)
	outside.SetPoint(0, 0)
	if f.NodeInPriority(outside) {
		t.Fatalf("expected point outside AOI to be out-of-priority")
	}
}

func TestAreaFilterWayUsesCentroid(t *testing.T) {
	aoi := orb.MultiPolygon{square(0, 0, 10, 10)}
	f := geo.NewAreaFilter(aoi)

	w := domain.NewWay(1)
	w.Refs = []int64{1, 2, 3, 4, 1}
	pts := map[int64]orb.Point{
		1: {1, 1}, 2: {9, 1}, 3: {9, 9}, 4: {1, 9},
	}
	w.BuildGeometry(func(id int64) (orb.Point, bool) {
		p, ok := pts[id]
		return p, ok
	})

	if !f.WayInPriority(w) {
		t.Fatalf("closed way centered inside AOI should be in-priority")
	}
}
