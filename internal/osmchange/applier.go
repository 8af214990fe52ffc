package osmchange

import (
	"context"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/geo"
	"github.com/emi420/underpass-go/internal/rawwriter"
)

// Applier implements the §4.6 state machine: per-change bucketing, wave
// propagation through the reference tables, geometry rebuild from the node
// cache, and area-filter priority tagging.
type Applier struct {
	store  Store
	writer *rawwriter.Writer
	filter *geo.AreaFilter
	logger *zap.Logger
}

// NewApplier wires a Store, a rawwriter.Writer, and the configured AOI
// filter into an Applier.
func NewApplier(store Store, writer *rawwriter.Writer, filter *geo.AreaFilter, logger *zap.Logger) *Applier {
	return &Applier{store: store, writer: writer, filter: filter, logger: logger}
}

// Apply decodes body as an osmChange document and persists its direct and
// indirect effects (spec §4.6). It implements replication.Applier.
func (a *Applier) Apply(ctx context.Context, body []byte) error {
	change, err := Parse(body)
	if err != nil {
		return err
	}
	return a.apply(ctx, change)
}

func (a *Applier) apply(ctx context.Context, change *ParsedChange) error {
	removedWays := make(map[int64]bool)
	removedRelations := make(map[int64]bool)
	wayByID := make(map[int64]*domain.Way, len(change.Ways))
	relByID := make(map[int64]*domain.Relation, len(change.Relations))

	for _, w := range change.Ways {
		wayByID[w.OSMID] = w
		if w.Action == domain.ActionRemove {
			removedWays[w.OSMID] = true
		}
	}
	for _, r := range change.Relations {
		relByID[r.OSMID] = r
		if r.Action == domain.ActionRemove {
			removedRelations[r.OSMID] = true
		}
	}

	// Step 2: nodes moved inside the AOI drive wave 1.
	var movedNodeIDs []int64
	for _, n := range change.Nodes {
		if n.Action == domain.ActionModify && a.filter.NodeInPriority(n) {
			movedNodeIDs = append(movedNodeIDs, n.OSMID)
		}
	}

	if err := a.wave1(ctx, movedNodeIDs, removedWays, wayByID); err != nil {
		return err
	}
	if err := a.wave2(ctx, wayByID, removedRelations, relByID); err != nil {
		return err
	}

	nodePoints, err := a.resolveNodePoints(ctx, change.Nodes, wayByID)
	if err != nil {
		return err
	}
	lookup := func(id int64) (orb.Point, bool) {
		p, ok := nodePoints[id]
		return p, ok
	}

	var stmts []string

	for _, n := range change.Nodes {
		if n.Action != domain.ActionRemove {
			n.Priority = a.filter.NodeInPriority(n)
		}
		stmts = append(stmts, a.writer.ApplyNode(n)...)
	}

	for _, id := range sortedKeys(wayByID) {
		w := wayByID[id]
		if w.Action != domain.ActionRemove {
			w.BuildGeometry(lookup)
			w.Priority = a.filter.WayInPriority(w)
		}
		stmts = append(stmts, a.writer.ApplyWay(w)...)
	}

	for _, id := range sortedKeysRel(relByID) {
		r := relByID[id]
		if r.Action != domain.ActionRemove {
			a.rebuildRelationGeometry(ctx, r, wayByID, lookup)
			r.Priority = a.filter.RelationInPriority(r) && r.Priority
		}
		stmts = append(stmts, a.writer.ApplyRelation(r)...)
	}

	if len(stmts) == 0 {
		return nil
	}
	return a.store.Exec(ctx, strings.Join(stmts, "\n"))
}

// wave1 materialises every way that references a node moved within the AOI,
// excluding ways already removed or already part of the direct change set
// (spec §4.6 "Wave 1").
func (a *Applier) wave1(ctx context.Context, movedNodeIDs []int64, removedWays map[int64]bool, wayByID map[int64]*domain.Way) error {
	if len(movedNodeIDs) == 0 {
		return nil
	}
	affected, err := fetchWayIDsForNodes(ctx, a.store, movedNodeIDs)
	if err != nil {
		return err
	}
	for _, id := range affected {
		if removedWays[id] {
			continue
		}
		if _, already := wayByID[id]; already {
			continue
		}
		w, err := fetchWay(ctx, a.store, id)
		if err != nil {
			a.logger.Warn("wave-1 way fetch failed, skipping", zap.Int64("way_id", id), zap.Error(err))
			continue
		}
		w.Action = domain.ActionModify
		w.MarkDirty()
		wayByID[id] = w
	}
	return nil
}

// wave2 materialises every relation that references a way touched directly
// or by wave 1, excluding relations already removed or already in the
// direct change set (spec §4.6 "Wave 2").
func (a *Applier) wave2(ctx context.Context, wayByID map[int64]*domain.Way, removedRelations map[int64]bool, relByID map[int64]*domain.Relation) error {
	var surviving []int64
	for id, w := range wayByID {
		if w.Action != domain.ActionRemove {
			surviving = append(surviving, id)
		}
	}
	if len(surviving) == 0 {
		return nil
	}
	affected, err := fetchRelationIDsForWays(ctx, a.store, surviving)
	if err != nil {
		return err
	}
	for _, id := range affected {
		if removedRelations[id] {
			continue
		}
		if _, already := relByID[id]; already {
			continue
		}
		r, err := fetchRelation(ctx, a.store, id)
		if err != nil {
			a.logger.Warn("wave-2 relation fetch failed, skipping", zap.Int64("relation_id", id), zap.Error(err))
			continue
		}
		r.Action = domain.ActionModify
		r.MarkDirty()
		relByID[id] = r
	}
	return nil
}

// resolveNodePoints builds the coordinate lookup geometry rebuild needs:
// points carried directly by the change, plus a single batched fetch for
// every other referenced node id (spec §4.6 "load all missing referenced
// nodes from storage in one query").
func (a *Applier) resolveNodePoints(ctx context.Context, nodes []*domain.Node, wayByID map[int64]*domain.Way) (map[int64]orb.Point, error) {
	points := make(map[int64]orb.Point, len(nodes))
	for _, n := range nodes {
		if n.Action != domain.ActionRemove {
			points[n.OSMID] = n.Point
		}
	}

	needed := make(map[int64]bool)
	for _, w := range wayByID {
		if w.Action == domain.ActionRemove {
			continue
		}
		for _, ref := range w.Refs {
			needed[ref] = true
		}
	}

	var toFetch []int64
	for id := range needed {
		if _, ok := points[id]; !ok {
			toFetch = append(toFetch, id)
		}
	}
	if len(toFetch) == 0 {
		return points, nil
	}

	fetched, err := fetchNodePoints(ctx, a.store, toFetch)
	if err != nil {
		return nil, err
	}
	for id, xy := range fetched {
		points[id] = orb.Point{xy[0], xy[1]}
	}
	return points, nil
}

// rebuildRelationGeometry assembles a multipolygon (for type=multipolygon/
// boundary relations) or multilinestring (for the rest) from the relation's
// way members, fetching any member way not already in wayByID. A member
// whose geometry can't be resolved causes a soft failure: the relation is
// still written with its existing metadata, but Priority is forced false
// (spec §4.6 "soft-fail relation rebuild").
func (a *Applier) rebuildRelationGeometry(ctx context.Context, r *domain.Relation, wayByID map[int64]*domain.Way, nodeLookup func(int64) (orb.Point, bool)) {
	var lines []orb.LineString
	missing := false

	for _, m := range r.Members {
		if m.Type != domain.MemberWay {
			continue
		}
		w, ok := wayByID[m.Ref]
		if !ok {
			fetched, err := fetchWay(ctx, a.store, m.Ref)
			if err != nil {
				a.logger.Warn("relation member way unresolved, soft-failing", zap.Int64("relation_id", r.OSMID), zap.Int64("way_id", m.Ref), zap.Error(err))
				missing = true
				continue
			}
			fetched.BuildGeometry(nodeLookup)
			wayByID[m.Ref] = fetched
			w = fetched
		}
		if len(w.Linestring) == 0 {
			missing = true
			continue
		}
		lines = append(lines, w.Linestring)
	}

	if r.IsArea() {
		if len(lines) == 0 {
			missing = true
		} else if ring, err := geo.ChainRing(lines); err == nil {
			r.Multipolygon = orb.MultiPolygon{orb.Polygon{ring}}
		} else {
			missing = true
		}
	} else if len(lines) > 0 {
		r.Multilinestring = orb.MultiLineString(lines)
	}

	r.Priority = !missing
}

func sortedKeys(m map[int64]*domain.Way) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedKeysRel(m map[int64]*domain.Relation) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
