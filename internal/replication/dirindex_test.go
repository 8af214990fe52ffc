package replication

import (
	"strings"
	"testing"
	"time"
)

const sampleIndex = `<html><body>
<table>
<tr><td><a href="000/">000/</a></td><td align="right">2020-01-01 00:00</td></tr>
<tr><td><a href="001/">001/</a></td><td align="right">2020-01-02 00:00</td></tr>
<tr><td><a href="002/">002/</a></td><td align="right">02-Jan-2020 12:30</td></tr>
</table>
</body></html>`

func TestParseDirIndex(t *testing.T) {
	entries, err := ParseDirIndex(strings.NewReader(sampleIndex))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Index != 0 || entries[2].Index != 2 {
		t.Fatalf("expected sorted indices 0,1,2, got %+v", entries)
	}
}

func TestParseDirIndexEmpty(t *testing.T) {
	if _, err := ParseDirIndex(strings.NewReader("<html><body>no links here</body></html>")); err == nil {
		t.Fatalf("expected error for index with no numeric anchors")
	}
}

func TestLocateByTimestamp(t *testing.T) {
	entries := []DirEntry{
		{Index: 0, Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Index: 1, Timestamp: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Index: 2, Timestamp: time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)},
	}

	if got := LocateByTimestamp(entries, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)); got != 0 {
		t.Fatalf("expected index 0, got %d", got)
	}
	if got := LocateByTimestamp(entries, time.Date(2020, 1, 3, 12, 0, 0, 0, time.UTC)); got != 2 {
		t.Fatalf("expected last index 2 for a time after everything, got %d", got)
	}
	if got := LocateByTimestamp(entries, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)); got != 0 {
		t.Fatalf("expected fallback to first index for a time before everything, got %d", got)
	}
	if got := LocateByTimestamp(nil, time.Now()); got != 0 {
		t.Fatalf("expected 0 for empty index")
	}
}
