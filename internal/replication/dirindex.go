package replication

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// DirEntry is one numeric anchor of a replication directory index, paired
// with its listed modification date (spec §4.5).
type DirEntry struct {
	Index     int
	Timestamp time.Time
}

// dirDateLayouts are the two date-column formats spec §4.5 recognises.
var dirDateLayouts = []string{
	"2006-01-02 15:04",
	"02-Jan-2006 15:04",
}

// ParseDirIndex scans an Apache-style HTML directory listing for anchor
// hrefs whose first character is a digit, and pairs each with the next
// date-shaped text node (the adjacent "last modified" column) to build the
// {index -> timestamp} mapping.
func ParseDirIndex(r io.Reader) ([]DirEntry, error) {
	z := html.NewTokenizer(r)

	var entries []DirEntry
	var pendingIndex int
	havePending := false

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		if tt == html.StartTagToken {
			tok := z.Token()
			if tok.Data == "a" {
				for _, attr := range tok.Attr {
					if attr.Key != "href" {
						continue
					}
					href := strings.TrimSuffix(attr.Val, "/")
					if href == "" {
						continue
					}
					if idx, err := strconv.Atoi(leadingDigits(href)); err == nil && href[0] >= '0' && href[0] <= '9' {
						pendingIndex = idx
						havePending = true
					}
				}
			}
		}

		if tt == html.TextToken && havePending {
			text := strings.TrimSpace(string(z.Text()))
			if ts, ok := parseDirDate(text); ok {
				entries = append(entries, DirEntry{Index: pendingIndex, Timestamp: ts})
				havePending = false
			}
		}
	}

	if len(entries) == 0 {
		return nil, pkgerrors.ErrDirectoryIndexEmpty
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries, nil
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

func parseDirDate(text string) (time.Time, bool) {
	for _, layout := range dirDateLayouts {
		if len(text) < len(layout) {
			continue
		}
		if ts, err := time.Parse(layout, text[:len(layout)]); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// LocateByTimestamp implements spec §4.5's locate-by-timestamp algorithm:
// the entry is the last one at or before target, falling back to the first
// entry if target precedes everything, and to 0 if the index is empty.
// Applied at each of the three nested directory levels (major/minor/index)
// by the cursor.
func LocateByTimestamp(entries []DirEntry, target time.Time) int {
	if len(entries) == 0 {
		return 0
	}

	for i := 0; i < len(entries)-1; i++ {
		if target.Before(entries[i+1].Timestamp) {
			return entries[i].Index
		}
	}

	last := entries[len(entries)-1]
	if !target.Before(last.Timestamp) {
		return last.Index
	}
	return entries[0].Index
}
