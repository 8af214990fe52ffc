package osmchange

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/emi420/underpass-go/internal/domain"
)

const sampleChange = `<?xml version="1.0" encoding="UTF-8"?>
<osmChange version="0.6" generator="test">
  <create>
    <node id="1" version="1" timestamp="2024-01-01T00:00:00Z" uid="7" user="alice" changeset="100" lat="25.193" lon="91.087">
      <tag k="amenity" v="cafe"/>
    </node>
  </create>
  <modify>
    <way id="2" version="3" timestamp="2024-01-02T00:00:00Z" uid="7" user="alice" changeset="101">
      <nd ref="1"/>
      <nd ref="3"/>
      <tag k="highway" v="residential"/>
    </way>
  </modify>
  <delete>
    <relation id="4" version="2" timestamp="2024-01-03T00:00:00Z" uid="7" user="alice" changeset="102">
      <member type="way" ref="2" role="outer"/>
    </relation>
  </delete>
</osmChange>`

func TestParsePlainOsmChange(t *testing.T) {
	change, err := Parse([]byte(sampleChange))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(change.Nodes) != 1 || change.Nodes[0].Action != domain.ActionCreate {
		t.Fatalf("expected one created node, got %+v", change.Nodes)
	}
	if change.Nodes[0].Tags["amenity"] != "cafe" {
		t.Fatalf("expected amenity=cafe tag, got %+v", change.Nodes[0].Tags)
	}
	if change.Nodes[0].Lon() != 91.087 || change.Nodes[0].Lat() != 25.193 {
		t.Fatalf("unexpected node point: %+v", change.Nodes[0].Point)
	}

	if len(change.Ways) != 1 || change.Ways[0].Action != domain.ActionModify {
		t.Fatalf("expected one modified way, got %+v", change.Ways)
	}
	if len(change.Ways[0].Refs) != 2 || change.Ways[0].Refs[0] != 1 || change.Ways[0].Refs[1] != 3 {
		t.Fatalf("unexpected way refs: %+v", change.Ways[0].Refs)
	}

	if len(change.Relations) != 1 || change.Relations[0].Action != domain.ActionRemove {
		t.Fatalf("expected one removed relation, got %+v", change.Relations)
	}
	if len(change.Relations[0].Members) != 1 || change.Relations[0].Members[0].Type != domain.MemberWay {
		t.Fatalf("unexpected relation members: %+v", change.Relations[0].Members)
	}
}

func TestParseGzippedOsmChange(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(sampleChange)); err != nil {
		t.Fatalf("failed to gzip fixture: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}

	change, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(change.Nodes) != 1 {
		t.Fatalf("expected gzip-transparent decode to find one node, got %+v", change.Nodes)
	}
}

func TestParseMalformedXMLErrors(t *testing.T) {
	if _, err := Parse([]byte("<osmChange><create><node id=\"not-xml\"></osmChange>")); err == nil {
		t.Fatalf("expected error for malformed XML")
	}
}
