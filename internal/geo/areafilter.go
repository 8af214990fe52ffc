package geo

import (
	"github.com/paulmach/orb"

	"github.com/emi420/underpass-go/internal/domain"
)

// AreaFilter tests entities against a configured area of interest (spec §4.6,
// §4.8). An empty AOI makes every entity in-priority.
type AreaFilter struct {
	AOI orb.MultiPolygon
}

// NewAreaFilter builds a filter over the given multipolygon, which may be
// empty (meaning "no AOI configured").
func NewAreaFilter(aoi orb.MultiPolygon) *AreaFilter {
	return &AreaFilter{AOI: aoi}
}

func (f *AreaFilter) empty() bool { return len(f.AOI) == 0 }

// Contains reports whether a point lies within the AOI.
func (f *AreaFilter) Contains(p orb.Point) bool {
	if f.empty() {
		return true
	}
	for _, poly := range f.AOI {
		if polygonContains(poly, p) {
			return true
		}
	}
	return false
}

// NodeInPriority implements the Node leg of spec §4.6's area filter.
func (f *AreaFilter) NodeInPriority(n *domain.Node) bool {
	return f.Contains(n.Point)
}

// WayInPriority tests the way's centroid (exterior ring centroid for closed
// ways, linestring midpoint for open ones).
func (f *AreaFilter) WayInPriority(w *domain.Way) bool {
	if f.empty() {
		return true
	}
	c, ok := w.Centroid()
	if !ok {
		return false
	}
	return f.Contains(c)
}

// RelationInPriority tests the relation's representative centroid.
func (f *AreaFilter) RelationInPriority(r *domain.Relation) bool {
	if f.empty() {
		return true
	}
	c, ok := r.Centroid()
	if !ok {
		return false
	}
	return f.Contains(c)
}

// polygonContains is a standard ray-casting point-in-polygon test: the point
// is inside the exterior ring (poly[0]) and outside every hole (poly[1:]).
func polygonContains(poly orb.Polygon, p orb.Point) bool {
	if len(poly) == 0 || !ringContains(poly[0], p) {
		return false
	}
	for _, hole := range poly[1:] {
		if ringContains(hole, p) {
			return false
		}
	}
	return true
}

func ringContains(ring orb.Ring, p orb.Point) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > p[1]) != (yj > p[1]) {
			xIntersect := (xj-xi)*(p[1]-yi)/(yj-yi) + xi
			if p[0] < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}
