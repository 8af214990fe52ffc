package rawwriter

import (
	"strings"
	"testing"
	"time"

	"github.com/emi420/underpass-go/internal/domain"
)

func TestApplyChangesetUpsertAndNormalisedBBox(t *testing.T) {
	c := &domain.Changeset{
		ID:         1,
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UID:        7,
		User:       "alice",
		NumChanges: 3,
		Hashtags:   []string{"hotosm-task-1"},
		Comment:    "fix roads",
		Editor:     "JOSM",
		Source:     "Bing",
		BBox:       domain.BoundingBox{MinLat: 10, MinLon: 20, MaxLat: 10, MaxLon: 20},
	}

	stmts := New().ApplyChangeset(c)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	stmt := stmts[0]
	if !strings.Contains(stmt, "ON CONFLICT (id) DO UPDATE") {
		t.Fatalf("expected upsert clause, got %q", stmt)
	}
	if !strings.Contains(stmt, "ARRAY['hotosm-task-1']") {
		t.Fatalf("expected hashtags array literal, got %q", stmt)
	}
	if strings.Contains(stmt, "MULTIPOLYGON(((20.000000000000 10.000000000000, 20.000000000000 10.000000000000") {
		t.Fatalf("expected the degenerate point bbox to be expanded before rendering, got %q", stmt)
	}
}

func TestApplyChangesetEmptyHashtagsRendersEmptyArray(t *testing.T) {
	c := &domain.Changeset{ID: 2, NumChanges: 1}
	stmt := New().ApplyChangeset(c)[0]
	if !strings.Contains(stmt, "ARRAY[]::text[]") {
		t.Fatalf("expected empty array literal, got %q", stmt)
	}
}
