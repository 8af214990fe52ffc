package domain

import "github.com/paulmach/orb"

// Way is an ordered sequence of node references, optionally resolved into a
// linestring or (if closed) a polygon (spec §3).
type Way struct {
	Metadata
	Refs       []int64
	Linestring orb.LineString
	Polygon    orb.Polygon
}

func NewWay(id int64) *Way {
	return &Way{Metadata: Metadata{OSMID: id, Type: TypeWay}}
}

// Closed reports whether the way is a closed ring per spec §3: more than
// three refs, and the first equals the last.
func (w *Way) Closed() bool {
	return len(w.Refs) > 3 && w.Refs[0] == w.Refs[len(w.Refs)-1]
}

// Table returns the canonical storage table for the way's current closure
// state (spec §4.8 way-storage state machine).
func (w *Way) Table() string {
	if w.Closed() {
		return "ways_poly"
	}
	return "ways_line"
}

// BuildGeometry resolves refs into a linestring (and, if closed, a polygon
// whose exterior ring is that linestring) using a node coordinate lookup.
// Refs that cannot be resolved are skipped; the resulting geometry may be
// shorter than len(Refs) when nodes are missing.
func (w *Way) BuildGeometry(lookup func(nodeID int64) (orb.Point, bool)) {
	line := make(orb.LineString, 0, len(w.Refs))
	for _, ref := range w.Refs {
		if pt, ok := lookup(ref); ok {
			line = append(line, pt)
		}
	}
	w.Linestring = line
	if w.Closed() {
		w.Polygon = orb.Polygon{orb.Ring(line)}
	} else {
		w.Polygon = nil
	}
}

// Centroid returns a representative point for the way: the polygon ring
// centroid for closed ways, the midpoint of the linestring for open ones.
func (w *Way) Centroid() (orb.Point, bool) {
	if w.Closed() && len(w.Polygon) > 0 {
		return ringCentroid(w.Polygon[0])
	}
	return lineMidpoint(w.Linestring)
}

// ringCentroid computes the area-weighted centroid of a polygon ring via the
// standard shoelace formula. Degenerate rings (fewer than four points or zero
// area) fall back to lineMidpoint, the midpoint of their bounding extent.
func ringCentroid(ring orb.Ring) (orb.Point, bool) {
	n := len(ring)
	if n == 0 {
		return orb.Point{}, false
	}
	if n < 4 {
		return lineMidpoint(orb.LineString(ring))
	}

	var area, cx, cy float64
	for i := 0; i < n-1; i++ {
		x0, y0 := ring[i][0], ring[i][1]
		x1, y1 := ring[i+1][0], ring[i+1][1]
		cross := x0*y1 - x1*y0
		area += cross
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
	}
	area /= 2
	if area == 0 {
		return lineMidpoint(orb.LineString(ring))
	}
	cx /= (6 * area)
	cy /= (6 * area)
	return orb.Point{cx, cy}, true
}

// lineMidpoint returns the midpoint of the line's bounding extent, used as a
// representative point for open ways.
func lineMidpoint(line orb.LineString) (orb.Point, bool) {
	if len(line) == 0 {
		return orb.Point{}, false
	}
	minX, minY := line[0][0], line[0][1]
	maxX, maxY := minX, minY
	for _, pt := range line[1:] {
		if pt[0] < minX {
			minX = pt[0]
		}
		if pt[0] > maxX {
			maxX = pt[0]
		}
		if pt[1] < minY {
			minY = pt[1]
		}
		if pt[1] > maxY {
			maxY = pt[1]
		}
	}
	return orb.Point{(minX + maxX) / 2, (minY + maxY) / 2}, true
}
