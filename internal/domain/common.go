package domain

import "time"

// Action is the mutation an object carries within a changeset or a PBF load.
type Action string

const (
	ActionNone        Action = "none"
	ActionCreate      Action = "create"
	ActionModify      Action = "modify"
	ActionRemove      Action = "remove"
	ActionModifyGeom  Action = "modify_geom"
)

// ObjectType discriminates the member kind of a relation, and doubles as the
// Metadata.Type tag described in spec §3.
type ObjectType string

const (
	TypeEmpty    ObjectType = ""
	TypeNode     ObjectType = "node"
	TypeWay      ObjectType = "way"
	TypeRelation ObjectType = "relation"
	TypeMember   ObjectType = "member"
)

// Metadata is the common envelope shared by Node, Way and Relation. It is
// embedded by composition rather than by an inheritance hierarchy (spec §9).
type Metadata struct {
	OSMID     int64             `db:"osm_id"`
	Version   int               `db:"version"`
	Timestamp time.Time         `db:"timestamp"`
	UID       int64             `db:"uid"`
	User      string            `db:"user"`
	Changeset int64             `db:"changeset"`
	Tags      map[string]string `db:"-"`
	Action    Action            `db:"-"`
	Priority  bool              `db:"-"`
	Type      ObjectType        `db:"-"`

	// dirty marks an object materialised indirectly by the geometry
	// propagator (spec §4.6 waves 1/2); never persisted.
	dirty bool
}

// MarkDirty flags the object as touched by an indirect-modification wave.
func (m *Metadata) MarkDirty() { m.dirty = true }

// Dirty reports whether the object was materialised by the propagator rather
// than read directly off the change stream.
func (m *Metadata) Dirty() bool { return m.dirty }

// BoundingBox is a plain WGS-84 box, used by the changeset reader (spec §4.7).
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Width and Height are in degrees.
func (b BoundingBox) Width() float64  { return b.MaxLon - b.MinLon }
func (b BoundingBox) Height() float64 { return b.MaxLat - b.MinLat }

// IsDegenerate reports whether the box collapses to a single point (zero
// width and zero height).
func (b BoundingBox) IsDegenerate() bool {
	return b.MinLat == b.MaxLat && b.MinLon == b.MaxLon
}
