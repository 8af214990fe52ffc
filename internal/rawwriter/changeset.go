package rawwriter

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/geo"
)

// ApplyChangeset returns the statement to upsert a changeset row (spec
// §4.7). The bounding box is normalised (degeneracy-expanded) before being
// rendered as a one-ring MultiPolygon, matching the "bbox(MultiPolygon)"
// column spec §6's table list names.
func (w *Writer) ApplyChangeset(c *domain.Changeset) []string {
	b := c.NormalizedBBox()
	ring := orb.Ring{
		{b.MinLon, b.MinLat}, {b.MaxLon, b.MinLat}, {b.MaxLon, b.MaxLat},
		{b.MinLon, b.MaxLat}, {b.MinLon, b.MinLat},
	}
	bboxExpr := fmt.Sprintf("ST_GeomFromText('%s', 4326)", geo.MultiPolygonWKT(orb.MultiPolygon{orb.Polygon{ring}}))

	stmt := fmt.Sprintf(
		`INSERT INTO changesets (id, user_id, created_at, closed_at, open, num_changes, hashtags, comment, source, editor, bbox) `+
			`VALUES (%s, %s, %s, %s, %s, %s, %s, '%s', '%s', '%s', %s) `+
			`ON CONFLICT (id) DO UPDATE SET `+
			`closed_at = EXCLUDED.closed_at, open = EXCLUDED.open, num_changes = EXCLUDED.num_changes, `+
			`hashtags = EXCLUDED.hashtags, comment = EXCLUDED.comment, source = EXCLUDED.source, `+
			`editor = EXCLUDED.editor, bbox = EXCLUDED.bbox;`,
		intLit(c.ID), intLit(c.UID), timeLit(c.CreatedAt), timeLit(c.ClosedAt), boolLit(c.Open), intLit(int64(c.NumChanges)),
		textArrayLit(c.Hashtags), sqlEscapeIdent(c.Comment), sqlEscapeIdent(c.Source), sqlEscapeIdent(c.Editor), bboxExpr,
	)
	return []string{stmt}
}

// textArrayLit renders a Postgres text[] literal, e.g. ARRAY['a','b'].
// Returns "ARRAY[]::text[]" for an empty slice.
func textArrayLit(tags []string) string {
	if len(tags) == 0 {
		return "ARRAY[]::text[]"
	}
	elems := make([]string, len(tags))
	for i, t := range tags {
		elems[i] = "'" + sqlEscapeIdent(t) + "'"
	}
	return "ARRAY[" + strings.Join(elems, ", ") + "]"
}
