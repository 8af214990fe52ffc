// Package pbf implements the bulk-ingestion PBF reader (spec §4.3): three
// ordered passes over the same file that hand nodes, ways and relations to
// a Sink (the tasker).
package pbf

import (
	"io"
	"os"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/qedus/osmpbf"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/domain"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
	"github.com/emi420/underpass-go/internal/pkg/utils"
)

// Reader drives the three-pass import over a single .osm.pbf file.
type Reader struct {
	path        string
	concurrency int
	logger      *zap.Logger
}

func New(path string, concurrency int, logger *zap.Logger) *Reader {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(-1)
	}
	return &Reader{path: path, concurrency: concurrency, logger: logger}
}

// Run executes all three passes against sink, in order.
func (r *Reader) Run(sink Sink) error {
	locations := newNodeIndex()
	wayGeoms := newWayGeomCache()

	if err := r.passNodesAndWays(sink, locations, wayGeoms); err != nil {
		return err
	}

	relCache := newRelationCache()
	if err := r.passRelationMetadata(sink, relCache); err != nil {
		return err
	}

	if err := r.passRelationGeometries(sink, relCache, wayGeoms); err != nil {
		return err
	}

	return nil
}

func (r *Reader) openDecoder() (*os.File, *osmpbf.Decoder, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.LocalError, "failed to open PBF file", err)
	}

	d := osmpbf.NewDecoder(f)
	d.SetBufferSize(osmpbf.MaxBlobSize)
	if err := d.Start(r.concurrency); err != nil {
		_ = f.Close()
		return nil, nil, pkgerrors.Wrap(pkgerrors.ParseError, "failed to start PBF decoder", err)
	}
	return f, d, nil
}

// passNodesAndWays is pass 1: nodes are pushed as they're seen and recorded
// in the location index; ways resolve their refs through that index into a
// linestring or polygon before being pushed.
func (r *Reader) passNodesAndWays(sink Sink, locations *nodeIndex, wayGeoms *wayGeomCache) error {
	f, d, err := r.openDecoder()
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		obj, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.ParseError, "PBF decode failed", err)
		}

		switch v := obj.(type) {
		case *osmpbf.Node:
			if !utils.ValidateCoordinates(v.Lat, v.Lon) {
				r.logger.Warn("dropping node with invalid coordinates", zap.Int64("osm_id", v.ID))
				continue
			}
			n := domain.NewNode(v.ID)
			n.SetPoint(v.Lon, v.Lat)
			n.Tags = v.Tags
			n.Version = int(v.Info.Version)
			n.Timestamp = v.Info.Timestamp
			n.UID = int64(v.Info.Uid)
			n.User = v.Info.User
			n.Changeset = v.Info.Changeset
			locations.put(v.ID, n.Point)
			sink.PushNode(n)

		case *osmpbf.Way:
			w := domain.NewWay(v.ID)
			w.Refs = v.NodeIDs
			w.Tags = v.Tags
			w.Version = int(v.Info.Version)
			w.Timestamp = v.Info.Timestamp
			w.UID = int64(v.Info.Uid)
			w.User = v.Info.User
			w.Changeset = v.Info.Changeset
			w.BuildGeometry(locations.get)
			wayGeoms.put(v.ID, w.Linestring)
			sink.PushWay(w)
		}
	}
	return nil
}

// passRelationMetadata is pass 2: only multipolygon/boundary relations are
// selected; each is pushed immediately with tags and members but no
// geometry, and cached by id for pass 3.
func (r *Reader) passRelationMetadata(sink Sink, cache *relationCache) error {
	f, d, err := r.openDecoder()
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		obj, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.ParseError, "PBF decode failed", err)
		}

		v, ok := obj.(*osmpbf.Relation)
		if !ok {
			continue
		}
		if v.Tags["type"] != "multipolygon" && v.Tags["type"] != "boundary" {
			continue
		}

		rel := domain.NewRelation(v.ID)
		rel.Tags = v.Tags
		rel.Version = int(v.Info.Version)
		rel.Timestamp = v.Info.Timestamp
		rel.UID = int64(v.Info.Uid)
		rel.User = v.Info.User
		rel.Changeset = v.Info.Changeset
		for _, m := range v.Members {
			rel.Members = append(rel.Members, domain.Member{
				Ref:  m.ID,
				Type: memberType(m.Type),
				Role: m.Role,
			})
		}

		cache.put(v.ID, rel)
		sink.PushRelation(rel)
	}
	return nil
}

// passRelationGeometries is pass 3: the multipolygon assembler chains
// "outer" way members into a ring; the cached relation from pass 2 is
// re-pushed with that ring attached as its sole polygon. Relations with at
// most one way member are not revisited here and keep the geometry-less
// copy pushed in pass 2.
func (r *Reader) passRelationGeometries(sink Sink, cache *relationCache, wayGeoms *wayGeomCache) error {
	for _, rel := range cache.all() {
		if len(rel.WayMembers()) <= 1 {
			continue
		}

		ring, err := assembleOuterRing(rel.Members, wayGeoms)
		if err != nil {
			r.logger.Warn("relation geometry assembly failed, skipping geometry",
				zap.Int64("osm_id", rel.OSMID), zap.Error(err))
			continue
		}

		rel.Multipolygon = orb.MultiPolygon{orb.Polygon{ring}}
		sink.PushRelation(rel)
	}
	return nil
}

func memberType(t osmpbf.MemberType) domain.MemberType {
	switch t {
	case osmpbf.WayType:
		return domain.MemberWay
	case osmpbf.RelationType:
		return domain.MemberRelation
	default:
		return domain.MemberNode
	}
}
