package rawwriter

import (
	"sort"
	"strings"

	"github.com/emi420/underpass-go/internal/store"
)

// maxPairsPerCall bounds how many key/value pairs go into a single
// jsonb_build_object(...) call expression; the backend's JSON builder
// accepts at most ~100 parameters, so 50 pairs (100 arguments) is the
// largest safe chunk (spec §4.2).
const maxPairsPerCall = 50

// tagsExpr renders a map of tags as a jsonb_build_object(...) expression,
// chaining multiple calls with || when there are more than maxPairsPerCall
// pairs. Returns the SQL literal "NULL" for an empty map. Keys are sorted
// so output is deterministic, which keeps tests and diffs stable.
func tagsExpr(tags map[string]string) string {
	if len(tags) == 0 {
		return "NULL"
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var calls []string
	for i := 0; i < len(keys); i += maxPairsPerCall {
		end := i + maxPairsPerCall
		if end > len(keys) {
			end = len(keys)
		}
		calls = append(calls, buildObjectCall(tags, keys[i:end]))
	}
	return strings.Join(calls, " || ")
}

func buildObjectCall(tags map[string]string, keys []string) string {
	var args []string
	for _, k := range keys {
		args = append(args, sqlLit(k), sqlLit(tags[k]))
	}
	return "jsonb_build_object(" + strings.Join(args, ", ") + ")"
}

// sqlLit double-escapes a string: JSON-escape first, then SQL-escape, and
// wraps it in single quotes (spec §4.2's "keys and values are first
// escaped for JSON, then escaped for SQL").
func sqlLit(s string) string {
	return "'" + store.EscapeJSON(s) + "'"
}
