package replication

import "fmt"

// Frequency is the replication stream cadence (spec §4.5).
type Frequency string

const (
	Minutely  Frequency = "minute"
	Hourly    Frequency = "hour"
	Daily     Frequency = "day"
	Changeset Frequency = "changeset"
)

// SequenceURL is the (domain, data_dir, frequency, major, minor, index)
// address model of spec §4.5, where sequence = major·10⁶ + minor·10³ + index.
type SequenceURL struct {
	BaseURL   string
	Frequency Frequency
	Major     int
	Minor     int
	Index     int
}

// FromSequence decomposes a flat sequence number into major/minor/index.
func FromSequence(baseURL string, freq Frequency, seq int64) SequenceURL {
	major := seq / 1_000_000
	rem := seq % 1_000_000
	minor := rem / 1000
	index := rem % 1000
	return SequenceURL{BaseURL: baseURL, Frequency: freq, Major: int(major), Minor: int(minor), Index: int(index)}
}

// Sequence recomposes the flat sequence number.
func (s SequenceURL) Sequence() int64 {
	return int64(s.Major)*1_000_000 + int64(s.Minor)*1000 + int64(s.Index)
}

// path renders the three-level directory path with the given extension.
func (s SequenceURL) path(ext string) string {
	return fmt.Sprintf("%s/%03d/%03d/%03d.%s", s.BaseURL, s.Major, s.Minor, s.Index, ext)
}

// StatePath is the sequence's state file location.
func (s SequenceURL) StatePath() string { return s.path("state.txt") }

// DataPath is the sequence's payload location for the given extension
// ("osc.gz" for minute/hour/day diffs, "osm.gz" for changesets).
func (s SequenceURL) DataPath(ext string) string { return s.path(ext) }

// Increment advances to the next sequence, rolling over index/minor at 999
// (spec §4.5).
func (s SequenceURL) Increment() SequenceURL {
	idx, minor, major := s.Index+1, s.Minor, s.Major
	if idx > 999 {
		idx = 0
		minor++
	}
	if minor > 999 {
		minor = 0
		major++
	}
	return SequenceURL{BaseURL: s.BaseURL, Frequency: s.Frequency, Major: major, Minor: minor, Index: idx}
}

// Decrement reverses Increment, rolling under at 0.
func (s SequenceURL) Decrement() SequenceURL {
	idx, minor, major := s.Index-1, s.Minor, s.Major
	if idx < 0 {
		idx = 999
		minor--
	}
	if minor < 0 {
		minor = 999
		major--
	}
	if major < 0 {
		major = 0
	}
	return SequenceURL{BaseURL: s.BaseURL, Frequency: s.Frequency, Major: major, Minor: minor, Index: idx}
}

// MajorDirURL returns the URL of this sequence's major directory index.
func (s SequenceURL) MajorDirURL() string {
	return fmt.Sprintf("%s/%03d", s.BaseURL, s.Major)
}

func (s SequenceURL) MinorDirURL() string {
	return fmt.Sprintf("%s/%03d/%03d", s.BaseURL, s.Major, s.Minor)
}
