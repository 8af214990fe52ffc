package replication

import (
	"testing"
	"time"
)

func TestParseStateFileChangesetDialect(t *testing.T) {
	data := []byte("---\nlast_run: 2020-10-08 22:30:01.737719000 +00:00\nsequence: 4139992\n")
	st, err := ParseStateFile(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Sequence != 4139992 {
		t.Fatalf("expected sequence 4139992, got %d", st.Sequence)
	}
	want := time.Date(2020, 10, 8, 22, 30, 1, 737719000, time.UTC)
	if !st.Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, st.Timestamp)
	}
}

func TestParseStateFileMinuteDialect(t *testing.T) {
	data := []byte("#Fri Oct 09 10:03:04 UTC 2020\nsequenceNumber=4230996\ntimestamp=2020-10-09T10\\:03\\:02Z\n")
	st, err := ParseStateFile(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Sequence != 4230996 {
		t.Fatalf("expected sequence 4230996, got %d", st.Sequence)
	}
	want := time.Date(2020, 10, 9, 10, 3, 2, 0, time.UTC)
	if !st.Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %v, got %v", want, st.Timestamp)
	}
}

func TestParseStateFileMalformed(t *testing.T) {
	if _, err := ParseStateFile([]byte("garbage\n")); err == nil {
		t.Fatalf("expected error for malformed state file")
	}
}
