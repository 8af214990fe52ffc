package pbf

import (
	"github.com/paulmach/orb"

	"github.com/emi420/underpass-go/internal/domain"
)

// nodeIndex is the location index of spec §4.3 pass 1: node id -> resolved
// coordinate, so way geometry can be assembled inline without a second
// lookup against storage.
type nodeIndex struct {
	points map[int64]orb.Point
}

func newNodeIndex() *nodeIndex {
	return &nodeIndex{points: make(map[int64]orb.Point)}
}

func (idx *nodeIndex) put(id int64, p orb.Point) {
	idx.points[id] = p
}

func (idx *nodeIndex) get(id int64) (orb.Point, bool) {
	p, ok := idx.points[id]
	return p, ok
}

// wayGeomCache retains every way's resolved linestring in memory through
// pass 3, so the multipolygon assembler can chain them without re-reading
// the file or the store.
type wayGeomCache struct {
	lines map[int64]orb.LineString
}

func newWayGeomCache() *wayGeomCache {
	return &wayGeomCache{lines: make(map[int64]orb.LineString)}
}

func (c *wayGeomCache) put(id int64, ls orb.LineString) {
	c.lines[id] = ls
}

func (c *wayGeomCache) get(id int64) (orb.LineString, bool) {
	ls, ok := c.lines[id]
	return ls, ok
}

// relationCache holds the multipolygon/boundary relations selected in pass
// 2, keyed by their original OSM id, for pass 3 to revisit.
type relationCache struct {
	relations map[int64]*domain.Relation
	order     []int64
}

func newRelationCache() *relationCache {
	return &relationCache{relations: make(map[int64]*domain.Relation)}
}

func (c *relationCache) put(id int64, rel *domain.Relation) {
	if _, exists := c.relations[id]; !exists {
		c.order = append(c.order, id)
	}
	c.relations[id] = rel
}

func (c *relationCache) all() []*domain.Relation {
	out := make([]*domain.Relation, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.relations[id])
	}
	return out
}
