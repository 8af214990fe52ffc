package pbf

import (
	"github.com/paulmach/orb"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/geo"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// assembleOuterRing chains the "outer"-role way members of a multipolygon
// relation into a single closed ring (spec §4.3's "multipolygon assembler
// produces area geometries ... attach the outer-ring polygon"). Members
// with an empty role are treated as outer, matching common real-world data
// where small multipolygons omit the role on their only outer way.
func assembleOuterRing(members []domain.Member, ways *wayGeomCache) (orb.Ring, error) {
	var segments []orb.LineString
	for _, m := range members {
		if m.Type != domain.MemberWay {
			continue
		}
		if m.Role != "outer" && m.Role != "" {
			continue
		}
		ls, ok := ways.get(m.Ref)
		if !ok || len(ls) == 0 {
			return nil, pkgerrors.ErrRelationMemberUnresolved
		}
		segments = append(segments, ls)
	}

	if len(segments) == 0 {
		return nil, pkgerrors.ErrRelationMemberUnresolved
	}

	return geo.ChainRing(segments)
}
