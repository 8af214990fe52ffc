package replication

import "testing"

func TestFromSequenceAndBack(t *testing.T) {
	u := FromSequence("https://example.org/minute", Minutely, 4139992)
	if u.Major != 4 || u.Minor != 139 || u.Index != 992 {
		t.Fatalf("unexpected decomposition: %+v", u)
	}
	if got := u.Sequence(); got != 4139992 {
		t.Fatalf("expected round-trip sequence 4139992, got %d", got)
	}
}

func TestIncrementRollsOverIndexAndMinor(t *testing.T) {
	u := SequenceURL{BaseURL: "https://example.org/minute", Major: 4, Minor: 139, Index: 999}
	next := u.Increment()
	if next.Index != 0 || next.Minor != 140 || next.Major != 4 {
		t.Fatalf("expected index/minor rollover, got %+v", next)
	}

	u2 := SequenceURL{Major: 4, Minor: 999, Index: 999}
	next2 := u2.Increment()
	if next2.Index != 0 || next2.Minor != 0 || next2.Major != 5 {
		t.Fatalf("expected major rollover, got %+v", next2)
	}
}

func TestDecrementRollsUnderIndexAndMinor(t *testing.T) {
	u := SequenceURL{Major: 4, Minor: 140, Index: 0}
	prev := u.Decrement()
	if prev.Index != 999 || prev.Minor != 139 || prev.Major != 4 {
		t.Fatalf("expected index/minor rollunder, got %+v", prev)
	}
}

func TestStatePathShape(t *testing.T) {
	u := SequenceURL{BaseURL: "https://example.org/minute", Major: 4, Minor: 139, Index: 992}
	want := "https://example.org/minute/004/139/992.state.txt"
	if got := u.StatePath(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
