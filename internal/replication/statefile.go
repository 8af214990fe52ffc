package replication

import (
	"bufio"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// State is the parsed contents of a replication state file: the sequence
// number to resume from and the timestamp it was generated at (spec §4.5).
type State struct {
	Sequence  int64
	Timestamp time.Time
}

// changesetTimestampLayout matches the changeset-style state file's
// "last_run: 2020-10-08 22:30:01.737719000 +00:00" value.
const changesetTimestampLayout = "2006-01-02 15:04:05.999999999 -07:00"

// ParseStateFile recognises both state-file dialects described in spec
// §4.5: the changeset style (`last_run:`/`sequence:` key/value lines) and
// the minute/hour/day style (`#`-comment then `key=value` lines with
// `sequenceNumber`/`timestamp`, the latter escaping `:` as `\:`).
func ParseStateFile(data []byte) (State, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))

	var lastRun, sequence, sequenceNumber, timestamp string
	haveLastRun, haveSequence, haveSeqNum, haveTimestamp := false, false, false, false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "last_run:"); ok {
			lastRun = strings.TrimSpace(rest)
			haveLastRun = true
			continue
		}
		if rest, ok := strings.CutPrefix(line, "sequence:"); ok {
			sequence = strings.TrimSpace(rest)
			haveSequence = true
			continue
		}

		if key, val, ok := strings.Cut(line, "="); ok {
			switch key {
			case "sequenceNumber":
				sequenceNumber = val
				haveSeqNum = true
			case "timestamp":
				timestamp = val
				haveTimestamp = true
			}
		}
	}

	switch {
	case haveLastRun && haveSequence:
		seq, err := strconv.ParseInt(sequence, 10, 64)
		if err != nil {
			return State{}, pkgerrors.Wrap(pkgerrors.ParseError, "invalid sequence in state file", err)
		}
		ts, err := time.Parse(changesetTimestampLayout, lastRun)
		if err != nil {
			return State{}, pkgerrors.Wrap(pkgerrors.ParseError, "invalid last_run timestamp in state file", err)
		}
		return State{Sequence: seq, Timestamp: ts}, nil

	case haveSeqNum && haveTimestamp:
		seq, err := strconv.ParseInt(sequenceNumber, 10, 64)
		if err != nil {
			return State{}, pkgerrors.Wrap(pkgerrors.ParseError, "invalid sequenceNumber in state file", err)
		}
		unescaped := strings.ReplaceAll(timestamp, `\:`, ":")
		ts, err := time.Parse(time.RFC3339, unescaped)
		if err != nil {
			return State{}, pkgerrors.Wrap(pkgerrors.ParseError, "invalid timestamp in state file", err)
		}
		return State{Sequence: seq, Timestamp: ts}, nil

	default:
		return State{}, pkgerrors.ErrStateFileMalformed
	}
}
