package domain

import "github.com/paulmach/orb"

// Node is an OSM point. It owns its coordinates; Ways and Relations only
// reference a Node by id (spec §3 Ownership).
type Node struct {
	Metadata
	Point orb.Point // [0]=longitude, [1]=latitude (spec §9 canonicalisation)
}

func NewNode(id int64) *Node {
	return &Node{Metadata: Metadata{OSMID: id, Type: TypeNode}}
}

// Lon and Lat are convenience accessors matching the spec's "longitude at
// index 0, latitude at index 1" canonicalisation.
func (n *Node) Lon() float64 { return n.Point[0] }
func (n *Node) Lat() float64 { return n.Point[1] }

// SetPoint stores (lon, lat) using the canonical ordering.
func (n *Node) SetPoint(lon, lat float64) {
	n.Point = orb.Point{lon, lat}
}
