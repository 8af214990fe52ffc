// Package rawwriter turns domain objects into the raw SQL statements the
// store gateway executes (spec §4.2). It never touches a connection: every
// exported function is a pure string builder, which keeps it trivially
// testable and lets the tasker batch many entities into one gateway call.
package rawwriter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/geo"
)

// Writer has no state; it exists so call sites read like
// writer.ApplyNode(node) rather than a bag of free functions, matching the
// teacher's repository-object style.
type Writer struct{}

func New() *Writer { return &Writer{} }

// ApplyNode returns the statements to upsert or delete a node.
func (w *Writer) ApplyNode(n *domain.Node) []string {
	if n.Action == domain.ActionRemove {
		return []string{fmt.Sprintf("DELETE FROM nodes WHERE osm_id = %s;", intLit(n.OSMID))}
	}

	geomExpr := fmt.Sprintf("ST_GeomFromText('%s', 4326)", geo.PointWKT(n.Point))

	stmt := fmt.Sprintf(
		`INSERT INTO nodes (osm_id, version, "timestamp", uid, "user", changeset, tags, geom) `+
			`VALUES (%s, %s, %s, %s, '%s', %s, %s, %s) `+
			`ON CONFLICT (osm_id) DO UPDATE SET `+
			`version = EXCLUDED.version, "timestamp" = EXCLUDED."timestamp", uid = EXCLUDED.uid, `+
			`"user" = EXCLUDED."user", changeset = EXCLUDED.changeset, tags = EXCLUDED.tags, geom = EXCLUDED.geom `+
			`WHERE nodes.version <= EXCLUDED.version;`,
		intLit(n.OSMID), intLit(int64(n.Version)), timeLit(n.Timestamp), intLit(n.UID),
		sqlEscapeIdent(n.User), intLit(n.Changeset), tagsExpr(n.Tags), geomExpr,
	)
	return []string{stmt}
}

// ApplyWay returns the statements to upsert or delete a way, including the
// unconditional line/poly table swap and the full way_refs replace
// described in spec §4.2/§4.8.
func (w *Writer) ApplyWay(way *domain.Way) []string {
	if way.Action == domain.ActionRemove {
		return []string{
			fmt.Sprintf("DELETE FROM ways_line WHERE osm_id = %s;", intLit(way.OSMID)),
			fmt.Sprintf("DELETE FROM ways_poly WHERE osm_id = %s;", intLit(way.OSMID)),
			fmt.Sprintf("DELETE FROM way_refs WHERE way_id = %s;", intLit(way.OSMID)),
		}
	}

	table := way.Table()
	otherTable := "ways_line"
	if table == "ways_line" {
		otherTable = "ways_poly"
	}

	var stmts []string
	stmts = append(stmts, fmt.Sprintf("DELETE FROM %s WHERE osm_id = %s;", otherTable, intLit(way.OSMID)))

	var geomExpr string
	var lengthCol, lengthVal string
	if table == "ways_poly" {
		geomExpr = fmt.Sprintf("ST_GeomFromText('%s', 4326)", geo.PolygonWKT(way.Polygon))
	} else {
		geomExpr = fmt.Sprintf("ST_GeomFromText('%s', 4326)", geo.LineStringWKT(way.Linestring))
		lengthCol = ", length_km"
		lengthVal = fmt.Sprintf(", %s", floatLit(geo.LengthKm(way.Linestring)))
	}

	stmt := fmt.Sprintf(
		`INSERT INTO %s (osm_id, version, "timestamp", uid, "user", changeset, tags, geom%s) `+
			`VALUES (%s, %s, %s, %s, '%s', %s, %s, %s%s) `+
			`ON CONFLICT (osm_id) DO UPDATE SET `+
			`version = EXCLUDED.version, "timestamp" = EXCLUDED."timestamp", uid = EXCLUDED.uid, `+
			`"user" = EXCLUDED."user", changeset = EXCLUDED.changeset, tags = EXCLUDED.tags, geom = EXCLUDED.geom `+
			`WHERE %s.version <= EXCLUDED.version;`,
		table, lengthCol,
		intLit(way.OSMID), intLit(int64(way.Version)), timeLit(way.Timestamp), intLit(way.UID),
		sqlEscapeIdent(way.User), intLit(way.Changeset), tagsExpr(way.Tags), geomExpr, lengthVal,
		table,
	)
	stmts = append(stmts, stmt)

	stmts = append(stmts, fmt.Sprintf("DELETE FROM way_refs WHERE way_id = %s;", intLit(way.OSMID)))
	for seq, ref := range way.Refs {
		stmts = append(stmts, fmt.Sprintf(
			"INSERT INTO way_refs (way_id, node_id, sequence) VALUES (%s, %s, %s);",
			intLit(way.OSMID), intLit(ref), intLit(int64(seq)),
		))
	}

	return stmts
}

// ApplyRelation returns the statements to upsert or delete a relation,
// including the full rel_refs replace.
func (w *Writer) ApplyRelation(rel *domain.Relation) []string {
	if rel.Action == domain.ActionRemove {
		return []string{
			fmt.Sprintf("DELETE FROM relations WHERE osm_id = %s;", intLit(rel.OSMID)),
			fmt.Sprintf("DELETE FROM rel_refs WHERE rel_id = %s;", intLit(rel.OSMID)),
		}
	}

	geomExpr := "NULL"
	if len(rel.Multipolygon) > 0 {
		geomExpr = fmt.Sprintf("ST_GeomFromText('%s', 4326)", geo.MultiPolygonWKT(rel.Multipolygon))
	} else if len(rel.Multilinestring) > 0 {
		geomExpr = fmt.Sprintf("ST_GeomFromText('%s', 4326)", geo.MultiLineStringWKT(rel.Multilinestring))
	}

	var stmts []string
	stmt := fmt.Sprintf(
		`INSERT INTO relations (osm_id, version, "timestamp", uid, "user", changeset, tags, members, geom) `+
			`VALUES (%s, %s, %s, %s, '%s', %s, %s, %s, %s) `+
			`ON CONFLICT (osm_id) DO UPDATE SET `+
			`version = EXCLUDED.version, "timestamp" = EXCLUDED."timestamp", uid = EXCLUDED.uid, `+
			`"user" = EXCLUDED."user", changeset = EXCLUDED.changeset, tags = EXCLUDED.tags, `+
			`members = EXCLUDED.members, geom = EXCLUDED.geom `+
			`WHERE relations.version <= EXCLUDED.version;`,
		intLit(rel.OSMID), intLit(int64(rel.Version)), timeLit(rel.Timestamp), intLit(rel.UID),
		sqlEscapeIdent(rel.User), intLit(rel.Changeset), tagsExpr(rel.Tags), membersExpr(rel.Members), geomExpr,
	)
	stmts = append(stmts, stmt)

	stmts = append(stmts, fmt.Sprintf("DELETE FROM rel_refs WHERE rel_id = %s;", intLit(rel.OSMID)))
	for seq, m := range rel.Members {
		stmts = append(stmts, fmt.Sprintf(
			"INSERT INTO rel_refs (rel_id, member_id, member_type, role, sequence) VALUES (%s, %s, '%s', '%s', %s);",
			intLit(rel.OSMID), intLit(m.Ref), memberTypeCode(m.Type), sqlEscapeIdent(m.Role), intLit(int64(seq)),
		))
	}

	return stmts
}

func memberTypeCode(t domain.MemberType) string {
	switch t {
	case domain.MemberWay:
		return "w"
	case domain.MemberRelation:
		return "r"
	default:
		return "n"
	}
}

// ApplyNodeMoves builds SQL that repoints every node in moves and then,
// purely in SQL, recomputes the geometry of every way that references one
// of them (spec §4.2). Neither the tasker nor the osmChange applier calls
// it; the applier rebuilds way and relation geometry itself (§4.6).
func (w *Writer) ApplyNodeMoves(moves map[int64]orb.Point) []string {
	if len(moves) == 0 {
		return nil
	}

	nodeIDs := make([]int64, 0, len(moves))
	for id := range moves {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

	ids := make([]string, 0, len(nodeIDs))
	var stmts []string
	for _, id := range nodeIDs {
		ids = append(ids, intLit(id))
		stmts = append(stmts, fmt.Sprintf(
			"UPDATE nodes SET geom = ST_GeomFromText('%s', 4326) WHERE osm_id = %s;",
			geo.PointWKT(moves[id]), intLit(id),
		))
	}
	idList := strings.Join(ids, ", ")

	affectedWays := fmt.Sprintf(
		"SELECT DISTINCT way_id FROM way_refs WHERE node_id IN (%s)", idList,
	)

	recompute := func(table string, wrap string) string {
		lineExpr := fmt.Sprintf(
			`(SELECT ST_MakeLine(n.geom ORDER BY wr.sequence) FROM way_refs wr `+
				`JOIN nodes n ON n.osm_id = wr.node_id WHERE wr.way_id = %s.osm_id)`,
			table,
		)
		geomExpr := lineExpr
		if wrap == "polygon" {
			geomExpr = fmt.Sprintf("ST_MakePolygon(%s)", lineExpr)
		}
		return fmt.Sprintf(
			"UPDATE %s SET geom = %s WHERE osm_id IN (%s);",
			table, geomExpr, affectedWays,
		)
	}

	stmts = append(stmts, recompute("ways_line", "line"))
	stmts = append(stmts, recompute("ways_poly", "polygon"))

	return stmts
}

func sqlEscapeIdent(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
