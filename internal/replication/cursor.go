package replication

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// Applier consumes a decoded replication payload (an osmChange or changeset
// document body) and persists its effects. internal/osmchange.Applier and
// internal/changeset.Applier satisfy this for the minute/hour/day and
// changeset streams respectively.
type Applier interface {
	Apply(ctx context.Context, body []byte) error
}

// Cursor drives the locating → downloading → applying → advancing state
// machine of spec §4.8 against a single replication stream.
type Cursor struct {
	client       *Client
	applier      Applier
	current      SequenceURL
	dataExt      string
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewCursor builds a Cursor starting at start, which is typically the result
// of LocateSequence. dataExt is the payload extension for this stream
// ("osc.gz" for minute/hour/day diffs, "osm.gz" for changesets).
func NewCursor(client *Client, applier Applier, start SequenceURL, dataExt string, pollInterval time.Duration, logger *zap.Logger) *Cursor {
	return &Cursor{
		client:       client,
		applier:      applier,
		current:      start,
		dataExt:      dataExt,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Sequence reports the cursor's current position.
func (c *Cursor) Sequence() int64 { return c.current.Sequence() }

// Run drives the cursor forward until ctx is cancelled or a step fails.
// Each iteration downloads the current sequence's payload (retrying once on
// failure), applies it, and advances; a download that fails twice, an
// undecodable payload, or a failed apply halts the loop and returns the
// error, per spec §4.8's no-automatic-skip rule.
func (c *Cursor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.step(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// step performs one locating(already positioned)->downloading->applying->advancing
// cycle, surfacing apply failures and halting the caller.
func (c *Cursor) step(ctx context.Context) error {
	url := c.current.DataPath(c.dataExt)

	body, err := c.downloadWithRetry(ctx, url)
	if err != nil {
		return err
	}

	decoded, err := MaybeGunzip(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ParseError, fmt.Sprintf("failed to decode replication payload %s", url), err)
	}

	if err := c.applier.Apply(ctx, decoded); err != nil {
		c.logger.Error("replication apply failed, halting cursor", zap.String("url", url), zap.Error(err))
		return err
	}

	c.logger.Info("replication sequence applied", zap.Int64("sequence", c.current.Sequence()))
	c.current = c.current.Increment()
	return nil
}

// downloadWithRetry implements spec §4.8's "downloading failure retries the
// same URL" rule: one retry, then the error surfaces.
func (c *Cursor) downloadWithRetry(ctx context.Context, url string) ([]byte, error) {
	body, err := c.client.Download(ctx, url)
	if err == nil {
		return body, nil
	}
	c.logger.Warn("replication download failed, retrying once", zap.String("url", url), zap.Error(err))
	return c.client.Download(ctx, url)
}

// LocateSequence implements the locating state: it walks the major, minor,
// and index directory listings in turn, applying LocateByTimestamp at each
// level, to find the sequence whose state file timestamp is closest to (at
// or before) target.
func LocateSequence(ctx context.Context, client *Client, baseURL string, freq Frequency, target time.Time) (SequenceURL, error) {
	majors, err := fetchDirIndex(ctx, client, baseURL)
	if err != nil {
		return SequenceURL{}, err
	}
	major := LocateByTimestamp(majors, target)

	minorBase := fmt.Sprintf("%s/%03d", baseURL, major)
	minors, err := fetchDirIndex(ctx, client, minorBase)
	if err != nil {
		return SequenceURL{}, err
	}
	minor := LocateByTimestamp(minors, target)

	indexBase := fmt.Sprintf("%s/%03d/%03d", baseURL, major, minor)
	indexes, err := fetchDirIndex(ctx, client, indexBase)
	if err != nil {
		return SequenceURL{}, err
	}
	index := LocateByTimestamp(indexes, target)

	return SequenceURL{BaseURL: baseURL, Frequency: freq, Major: major, Minor: minor, Index: index}, nil
}

func fetchDirIndex(ctx context.Context, client *Client, dirURL string) ([]DirEntry, error) {
	body, err := client.Download(ctx, dirURL+"/")
	if err != nil {
		return nil, err
	}
	return ParseDirIndex(bytes.NewReader(body))
}
