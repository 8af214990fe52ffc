// Package osmchange decodes osmChange documents and applies them against
// the store, propagating geometry changes to the ways and relations that
// transitively depend on what changed (spec §4.6).
package osmchange

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"io"
	"time"

	"github.com/emi420/underpass-go/internal/domain"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// gzipMagic is the first byte of a gzip stream.
const gzipMagic = 0x1f

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

func tagMap(tags []xmlTag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.K] = t.V
	}
	return m
}

type xmlNode struct {
	ID        int64    `xml:"id,attr"`
	Version   int      `xml:"version,attr"`
	Timestamp string   `xml:"timestamp,attr"`
	UID       int64    `xml:"uid,attr"`
	User      string   `xml:"user,attr"`
	Changeset int64    `xml:"changeset,attr"`
	Lat       float64  `xml:"lat,attr"`
	Lon       float64  `xml:"lon,attr"`
	Tags      []xmlTag `xml:"tag"`
}

type xmlNd struct {
	Ref int64 `xml:"ref,attr"`
}

type xmlWay struct {
	ID        int64    `xml:"id,attr"`
	Version   int      `xml:"version,attr"`
	Timestamp string   `xml:"timestamp,attr"`
	UID       int64    `xml:"uid,attr"`
	User      string   `xml:"user,attr"`
	Changeset int64    `xml:"changeset,attr"`
	Nodes     []xmlNd  `xml:"nd"`
	Tags      []xmlTag `xml:"tag"`
}

type xmlMember struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

type xmlRelation struct {
	ID        int64       `xml:"id,attr"`
	Version   int         `xml:"version,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	UID       int64       `xml:"uid,attr"`
	User      string      `xml:"user,attr"`
	Changeset int64       `xml:"changeset,attr"`
	Members   []xmlMember `xml:"member"`
	Tags      []xmlTag    `xml:"tag"`
}

// ParsedChange is the decoded osmChange document, with every entity's
// Action set to the group (create/modify/delete) it was found in.
type ParsedChange struct {
	Nodes     []*domain.Node
	Ways      []*domain.Way
	Relations []*domain.Relation
}

// Parse decodes an osmChange document, transparently gunzipping body first
// if it carries the gzip magic byte (spec §4.5/§4.6).
func Parse(body []byte) (*ParsedChange, error) {
	if len(body) > 0 && body[0] == gzipMagic {
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ParseError, "corrupt gzipped osmChange body", err)
		}
		defer r.Close()
		plain, err := io.ReadAll(r)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ParseError, "failed to gunzip osmChange body", err)
		}
		body = plain
	}

	d := xml.NewDecoder(bytes.NewReader(body))
	change := &ParsedChange{}

	var action domain.Action
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ParseError, "malformed osmChange XML", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "create":
			action = domain.ActionCreate
		case "modify":
			action = domain.ActionModify
		case "delete":
			action = domain.ActionRemove
		case "node":
			var el xmlNode
			if err := d.DecodeElement(&el, &start); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.ParseError, "malformed node element", err)
			}
			change.Nodes = append(change.Nodes, toDomainNode(el, action))
		case "way":
			var el xmlWay
			if err := d.DecodeElement(&el, &start); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.ParseError, "malformed way element", err)
			}
			change.Ways = append(change.Ways, toDomainWay(el, action))
		case "relation":
			var el xmlRelation
			if err := d.DecodeElement(&el, &start); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.ParseError, "malformed relation element", err)
			}
			change.Relations = append(change.Relations, toDomainRelation(el, action))
		}
	}

	return change, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toDomainNode(el xmlNode, action domain.Action) *domain.Node {
	n := domain.NewNode(el.ID)
	n.Version = el.Version
	n.Timestamp = parseTimestamp(el.Timestamp)
	n.UID = el.UID
	n.User = el.User
	n.Changeset = el.Changeset
	n.Tags = tagMap(el.Tags)
	n.Action = action
	if action != domain.ActionRemove {
		n.SetPoint(el.Lon, el.Lat)
	}
	return n
}

func toDomainWay(el xmlWay, action domain.Action) *domain.Way {
	w := domain.NewWay(el.ID)
	w.Version = el.Version
	w.Timestamp = parseTimestamp(el.Timestamp)
	w.UID = el.UID
	w.User = el.User
	w.Changeset = el.Changeset
	w.Tags = tagMap(el.Tags)
	w.Action = action
	refs := make([]int64, len(el.Nodes))
	for i, nd := range el.Nodes {
		refs[i] = nd.Ref
	}
	w.Refs = refs
	return w
}

func toDomainRelation(el xmlRelation, action domain.Action) *domain.Relation {
	r := domain.NewRelation(el.ID)
	r.Version = el.Version
	r.Timestamp = parseTimestamp(el.Timestamp)
	r.UID = el.UID
	r.User = el.User
	r.Changeset = el.Changeset
	r.Tags = tagMap(el.Tags)
	r.Action = action
	members := make([]domain.Member, len(el.Members))
	for i, m := range el.Members {
		members[i] = domain.Member{Ref: m.Ref, Type: memberType(m.Type), Role: m.Role}
	}
	r.Members = members
	return r
}

func memberType(t string) domain.MemberType {
	switch t {
	case "way":
		return domain.MemberWay
	case "relation":
		return domain.MemberRelation
	default:
		return domain.MemberNode
	}
}
