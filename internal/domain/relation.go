package domain

import "github.com/paulmach/orb"

// MemberType is the kind of object a relation member refers to.
type MemberType string

const (
	MemberNode     MemberType = "node"
	MemberWay      MemberType = "way"
	MemberRelation MemberType = "relation"
)

// Member is one entry of a relation's ordered member list (spec §3).
type Member struct {
	Ref  int64
	Type MemberType
	Role string
}

// Relation carries an ordered member list and, for multipolygon/boundary
// relations, an assembled area geometry; relations with only line members
// carry a multilinestring instead (spec §3).
type Relation struct {
	Metadata
	Members         []Member
	Multipolygon    orb.MultiPolygon
	Multilinestring orb.MultiLineString
}

func NewRelation(id int64) *Relation {
	return &Relation{Metadata: Metadata{OSMID: id, Type: TypeRelation}}
}

// IsArea reports whether the relation's tags mark it as a multipolygon or
// administrative boundary, the two kinds the PBF relation assembler (spec
// §4.3) builds area geometry for.
func (r *Relation) IsArea() bool {
	t := r.Tags["type"]
	return t == "multipolygon" || t == "boundary"
}

// WayMembers returns the ref ids of members typed "way", in member order.
func (r *Relation) WayMembers() []int64 {
	ids := make([]int64, 0, len(r.Members))
	for _, m := range r.Members {
		if m.Type == MemberWay {
			ids = append(ids, m.Ref)
		}
	}
	return ids
}

// Centroid returns a representative point for the relation: the first
// outer ring's centroid for an area relation, or the midpoint of the first
// linestring's bounding extent otherwise. ok is false when no geometry is
// available.
func (r *Relation) Centroid() (orb.Point, bool) {
	if len(r.Multipolygon) > 0 && len(r.Multipolygon[0]) > 0 {
		return ringCentroid(r.Multipolygon[0][0])
	}
	if len(r.Multilinestring) > 0 {
		return lineMidpoint(r.Multilinestring[0])
	}
	return orb.Point{}, false
}
