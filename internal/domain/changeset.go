package domain

import "time"

// Changeset is an OSM edit-session envelope carrying metadata but no object
// payload (spec §4.7, GLOSSARY).
type Changeset struct {
	ID          int64
	CreatedAt   time.Time
	ClosedAt    time.Time
	Open        bool
	UID         int64
	User        string
	BBox        BoundingBox
	NumChanges  int
	Hashtags    []string
	Comment     string
	Editor      string
	Source      string
}

// Fudge is the minimum bounding-box extent (degrees) below which a
// changeset's box is expanded before storage (spec §4.7, property 11).
const Fudge = 0.0001

// NormalizedBBox returns the changeset's bounding box expanded by ±½·Fudge
// when it is degenerate (a point, or narrower/shorter than Fudge in either
// dimension).
func (c *Changeset) NormalizedBBox() BoundingBox {
	b := c.BBox
	half := Fudge / 2
	if b.Width() < Fudge {
		mid := (b.MinLon + b.MaxLon) / 2
		b.MinLon, b.MaxLon = mid-half, mid+half
	}
	if b.Height() < Fudge {
		mid := (b.MinLat + b.MaxLat) / 2
		b.MinLat, b.MaxLat = mid-half, mid+half
	}
	return b
}

// Valid reports whether the changeset should be persisted: spec §4.7 rejects
// changesets with zero num_changes.
func (c *Changeset) Valid() bool {
	return c.NumChanges > 0
}
