package osmchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emi420/underpass-go/internal/domain"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// Store is the subset of internal/store.Gateway the applier needs: raw SQL
// execution for writes and read-back queries against the reference tables
// (spec §4.6's "internal/store queries back way_refs/rel_refs").
type Store interface {
	Exec(ctx context.Context, sqlText string) error
	Query(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

func intList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

// fetchWayIDsForNodes resolves wave 1: every way referencing any of nodeIDs.
func fetchWayIDsForNodes(ctx context.Context, store Store, nodeIDs []int64) ([]int64, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	rows, err := store.Query(ctx, fmt.Sprintf(
		"SELECT DISTINCT way_id FROM way_refs WHERE node_id IN (%s)", intList(nodeIDs),
	))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to look up ways for moved nodes", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to scan way_refs row", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// fetchRelationIDsForWays resolves wave 2: every relation referencing any of
// wayIDs through a "w"-typed rel_refs row.
func fetchRelationIDsForWays(ctx context.Context, store Store, wayIDs []int64) ([]int64, error) {
	if len(wayIDs) == 0 {
		return nil, nil
	}
	rows, err := store.Query(ctx, fmt.Sprintf(
		"SELECT DISTINCT rel_id FROM rel_refs WHERE member_type = 'w' AND member_id IN (%s)", intList(wayIDs),
	))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to look up relations for moved ways", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to scan rel_refs row", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// fetchWay reads a way's current metadata (from whichever of ways_line/
// ways_poly holds it) and its ordered refs, to materialise the domain
// object an indirect modification needs to rebuild.
func fetchWay(ctx context.Context, store Store, wayID int64) (*domain.Way, error) {
	rows, err := store.Query(ctx, fmt.Sprintf(
		`SELECT osm_id, version, "timestamp", uid, "user", changeset, tags FROM ways_line WHERE osm_id = %d
		 UNION ALL
		 SELECT osm_id, version, "timestamp", uid, "user", changeset, tags FROM ways_poly WHERE osm_id = %d`,
		wayID, wayID,
	))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to fetch way metadata", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, pkgerrors.New(pkgerrors.StoreFailure, fmt.Sprintf("way %d not found in either way table", wayID))
	}

	w := domain.NewWay(wayID)
	var tagsJSON []byte
	var ts time.Time
	if err := rows.Scan(&w.OSMID, &w.Version, &ts, &w.UID, &w.User, &w.Changeset, &tagsJSON); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to scan way row", err)
	}
	w.Timestamp = ts
	w.Tags = decodeTags(tagsJSON)

	refs, err := fetchWayRefs(ctx, store, wayID)
	if err != nil {
		return nil, err
	}
	w.Refs = refs
	return w, nil
}

func fetchWayRefs(ctx context.Context, store Store, wayID int64) ([]int64, error) {
	rows, err := store.Query(ctx, fmt.Sprintf(
		"SELECT node_id FROM way_refs WHERE way_id = %d ORDER BY sequence", wayID,
	))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to fetch way_refs", err)
	}
	defer rows.Close()

	var refs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to scan way_refs row", err)
		}
		refs = append(refs, id)
	}
	return refs, rows.Err()
}

// fetchRelation reads a relation's current metadata and ordered members.
func fetchRelation(ctx context.Context, store Store, relID int64) (*domain.Relation, error) {
	rows, err := store.Query(ctx, fmt.Sprintf(
		`SELECT osm_id, version, "timestamp", uid, "user", changeset, tags FROM relations WHERE osm_id = %d`,
		relID,
	))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to fetch relation metadata", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, pkgerrors.New(pkgerrors.StoreFailure, fmt.Sprintf("relation %d not found", relID))
	}

	r := domain.NewRelation(relID)
	var tagsJSON []byte
	var ts time.Time
	if err := rows.Scan(&r.OSMID, &r.Version, &ts, &r.UID, &r.User, &r.Changeset, &tagsJSON); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to scan relation row", err)
	}
	r.Timestamp = ts
	r.Tags = decodeTags(tagsJSON)

	members, err := fetchRelMembers(ctx, store, relID)
	if err != nil {
		return nil, err
	}
	r.Members = members
	return r, nil
}

func fetchRelMembers(ctx context.Context, store Store, relID int64) ([]domain.Member, error) {
	rows, err := store.Query(ctx, fmt.Sprintf(
		`SELECT member_id, member_type, role FROM rel_refs WHERE rel_id = %d ORDER BY sequence`, relID,
	))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to fetch rel_refs", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var id int64
		var typeCode, role string
		if err := rows.Scan(&id, &typeCode, &role); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to scan rel_refs row", err)
		}
		members = append(members, domain.Member{Ref: id, Type: memberTypeFromCode(typeCode), Role: role})
	}
	return members, rows.Err()
}

func memberTypeFromCode(code string) domain.MemberType {
	switch code {
	case "w":
		return domain.MemberWay
	case "r":
		return domain.MemberRelation
	default:
		return domain.MemberNode
	}
}

// fetchNodePoints loads coordinates for node ids not already present in the
// in-memory cache, in one round trip (spec §4.6 "load all missing
// referenced nodes from storage in one query").
func fetchNodePoints(ctx context.Context, store Store, ids []int64) (map[int64][2]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := store.Query(ctx, fmt.Sprintf(
		"SELECT osm_id, ST_X(geom), ST_Y(geom) FROM nodes WHERE osm_id IN (%s)", intList(ids),
	))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to fetch node coordinates", err)
	}
	defer rows.Close()

	out := make(map[int64][2]float64, len(ids))
	for rows.Next() {
		var id int64
		var lon, lat float64
		if err := rows.Scan(&id, &lon, &lat); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to scan node row", err)
		}
		out[id] = [2]float64{lon, lat}
	}
	return out, rows.Err()
}

func decodeTags(raw []byte) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
