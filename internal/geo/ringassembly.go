package geo

import (
	"github.com/paulmach/orb"

	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// ChainRing greedily links linestring segments end-to-end, reversing a
// segment when needed, until every segment is consumed and the result
// closes into a ring. Used by the PBF relation assembler (spec §4.3) and
// the osmChange geometry propagator (spec §4.6) to rebuild a multipolygon's
// outer ring from its member ways.
func ChainRing(segments []orb.LineString) (orb.Ring, error) {
	if len(segments) == 0 {
		return nil, pkgerrors.New(pkgerrors.GeometryError, "no segments to assemble")
	}

	remaining := make([]orb.LineString, len(segments))
	copy(remaining, segments)

	ring := orb.Ring(append(orb.LineString{}, remaining[0]...))
	remaining = remaining[1:]

	for len(remaining) > 0 {
		tail := ring[len(ring)-1]
		found := -1
		reverse := false

		for i, seg := range remaining {
			if seg[0] == tail {
				found = i
				break
			}
			if seg[len(seg)-1] == tail {
				found = i
				reverse = true
				break
			}
		}

		if found == -1 {
			return nil, pkgerrors.New(pkgerrors.GeometryError, "multipolygon ring does not close")
		}

		seg := remaining[found]
		if reverse {
			seg = reverseLine(seg)
		}
		ring = append(ring, seg[1:]...)
		remaining = append(remaining[:found], remaining[found+1:]...)
	}

	if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
		return nil, pkgerrors.New(pkgerrors.GeometryError, "multipolygon ring failed to close")
	}
	return ring, nil
}

func reverseLine(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}
