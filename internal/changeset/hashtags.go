package changeset

import "strings"

// extractTagHashtags splits a changeset's dedicated "hashtags" tag value on
// '#' and ';', discarding any token shorter than 3 characters (spec §4.7).
func extractTagHashtags(value string) []string {
	tokens := strings.FieldsFunc(value, func(r rune) bool { return r == '#' || r == ';' })
	var out []string
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if len(t) < 3 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// extractCommentHashtags scans a comment field, word by word, for
// '#'-prefixed substrings (spec §4.7's "hashtags embedded in the comment
// field are detected by scanning for #-prefixed substrings after whitespace
// split"), grounded on original_source/galaxy/changeset.cc's on_start_element
// comment handler.
func extractCommentHashtags(comment string) []string {
	var out []string
	for _, word := range strings.Fields(comment) {
		idx := strings.IndexByte(word, '#')
		if idx < 0 {
			continue
		}
		tag := word[idx:]
		if len(tag) < 3 {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// mergeHashtags combines the dedicated-tag and comment-scanned hashtags,
// de-duplicating while preserving first-seen order.
func mergeHashtags(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, tag := range list {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
