// Package changeset decodes planet changeset XML (spec §4.7): a streaming,
// SAX-style walk over gzip or plain `<osm><changeset>...</changeset></osm>`
// documents, extracting per-changeset metadata, bounding box, and hashtags.
package changeset

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"io"
	"time"

	"github.com/emi420/underpass-go/internal/domain"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

const gzipMagic = 0x1f

// xmlTag is a nested <tag k= v=/> element.
type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

// xmlChangeset mirrors a single <changeset ...>...</changeset> element.
type xmlChangeset struct {
	ID         int64    `xml:"id,attr"`
	CreatedAt  string   `xml:"created_at,attr"`
	ClosedAt   string   `xml:"closed_at,attr"`
	Open       bool     `xml:"open,attr"`
	User       string   `xml:"user,attr"`
	UID        int64    `xml:"uid,attr"`
	MinLat     float64  `xml:"min_lat,attr"`
	MinLon     float64  `xml:"min_lon,attr"`
	MaxLat     float64  `xml:"max_lat,attr"`
	MaxLon     float64  `xml:"max_lon,attr"`
	NumChanges int      `xml:"num_changes,attr"`
	Tags       []xmlTag `xml:"tag"`
}

// Parse decodes a changeset document, gunzipping first if it looks
// gzip-compressed, and returns every <changeset> element found as a domain
// object (not yet filtered for validity or area-of-interest membership).
func Parse(body []byte) ([]*domain.Changeset, error) {
	if len(body) > 0 && body[0] == gzipMagic {
		gunzipped, err := gunzip(body)
		if err != nil {
			return nil, err
		}
		body = gunzipped
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var out []*domain.Changeset

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ParseError, "malformed changeset XML", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "changeset" {
			continue
		}

		var xc xmlChangeset
		if err := dec.DecodeElement(&xc, &start); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ParseError, "malformed changeset element", err)
		}
		out = append(out, toDomain(&xc))
	}

	return out, nil
}

func gunzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ParseError, "failed to open gzip changeset stream", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ParseError, "failed to read gzip changeset stream", err)
	}
	return out, nil
}

func toDomain(xc *xmlChangeset) *domain.Changeset {
	c := &domain.Changeset{
		ID:         xc.ID,
		CreatedAt:  parseTime(xc.CreatedAt),
		ClosedAt:   parseTime(xc.ClosedAt),
		Open:       xc.Open,
		UID:        xc.UID,
		User:       xc.User,
		NumChanges: xc.NumChanges,
		BBox: domain.BoundingBox{
			MinLat: xc.MinLat, MinLon: xc.MinLon,
			MaxLat: xc.MaxLat, MaxLon: xc.MaxLon,
		},
	}

	var tagHashtags []string
	for _, t := range xc.Tags {
		switch t.K {
		case "hashtags":
			tagHashtags = extractTagHashtags(t.V)
		case "comment":
			c.Comment = t.V
		case "created_by":
			c.Editor = t.V
		case "source":
			c.Source = t.V
		}
	}
	c.Hashtags = mergeHashtags(tagHashtags, extractCommentHashtags(c.Comment))

	return c
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
