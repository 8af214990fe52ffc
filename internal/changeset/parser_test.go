package changeset

import (
	"bytes"
	"compress/gzip"
	"testing"
)

const sampleChangesets = `<?xml version="1.0" encoding="UTF-8"?>
<osm>
  <changeset id="12345" created_at="2014-10-10T01:57:09Z" closed_at="2014-10-10T01:57:23Z"
             open="false" user="foo" uid="54321" min_lat="-2.8042325" min_lon="29.5842812"
             max_lat="-2.7699398" max_lon="29.6012844" num_changes="569">
    <tag k="source" v="Bing"/>
    <tag k="comment" v="#hotosm-task-001 mapping for redcross"/>
    <tag k="created_by" v="JOSM/1.5 (7182 en)"/>
  </changeset>
  <changeset id="99" created_at="2014-10-10T02:00:00Z" open="true" user="bar" uid="1"
             min_lat="0" min_lon="0" max_lat="0" max_lon="0" num_changes="0">
  </changeset>
</osm>`

func TestParsePlainChangesets(t *testing.T) {
	changesets, err := Parse([]byte(sampleChangesets))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changesets) != 2 {
		t.Fatalf("expected two changesets, got %d", len(changesets))
	}

	first := changesets[0]
	if first.ID != 12345 || first.User != "foo" || first.UID != 54321 {
		t.Fatalf("unexpected first changeset: %+v", first)
	}
	if first.Source != "Bing" || first.Editor != "JOSM/1.5 (7182 en)" {
		t.Fatalf("unexpected tag fields: %+v", first)
	}
	if len(first.Hashtags) != 1 || first.Hashtags[0] != "#hotosm-task-001" {
		t.Fatalf("expected comment-scanned hashtag, got %+v", first.Hashtags)
	}
	if first.Open {
		t.Fatalf("expected first changeset to be closed")
	}

	second := changesets[1]
	if !second.Open {
		t.Fatalf("expected second changeset to be open")
	}
	if second.NumChanges != 0 {
		t.Fatalf("expected zero num_changes on second changeset")
	}
}

func TestParseGzippedChangesets(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(sampleChangesets)); err != nil {
		t.Fatalf("failed to gzip fixture: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}

	changesets, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changesets) != 2 {
		t.Fatalf("expected gzip-transparent decode to find two changesets, got %d", len(changesets))
	}
}

func TestParseMalformedChangesetXMLErrors(t *testing.T) {
	if _, err := Parse([]byte("<osm><changeset id=\"1\"></osm>")); err == nil {
		t.Fatalf("expected error for malformed XML")
	}
}

func TestExtractTagHashtagsDropsShortTokens(t *testing.T) {
	got := extractTagHashtags("#hotosm-task-001;#ab;#redcross")
	if len(got) != 2 || got[0] != "hotosm-task-001" || got[1] != "redcross" {
		t.Fatalf("unexpected hashtags: %+v", got)
	}
}

func TestExtractCommentHashtagsScansWords(t *testing.T) {
	got := extractCommentHashtags("fixing roads #hotosm-task-1 near town border#22 ab#1")
	if len(got) != 2 || got[0] != "#hotosm-task-1" || got[1] != "#22" {
		t.Fatalf("unexpected comment hashtags: %+v", got)
	}
}

func TestMergeHashtagsDeduplicatesPreservingOrder(t *testing.T) {
	got := mergeHashtags([]string{"a", "b"}, []string{"b", "c"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected merged hashtags: %+v", got)
	}
}
