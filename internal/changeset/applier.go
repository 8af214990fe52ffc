package changeset

import (
	"context"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/geo"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
	"github.com/emi420/underpass-go/internal/rawwriter"
)

// Store is the subset of internal/store.Gateway the changeset applier
// needs: raw SQL execution for the upserts rawwriter.ApplyChangeset builds.
type Store interface {
	Exec(ctx context.Context, sqlText string) error
}

// Applier implements replication.Applier for the changeset replication
// stream (spec §4.7): decode, drop invalid or out-of-AOI changesets, persist
// the rest.
type Applier struct {
	store  Store
	writer *rawwriter.Writer
	filter *geo.AreaFilter
	logger *zap.Logger
}

// NewApplier wires a Store, a rawwriter.Writer, and the configured AOI
// filter into an Applier.
func NewApplier(store Store, writer *rawwriter.Writer, filter *geo.AreaFilter, logger *zap.Logger) *Applier {
	return &Applier{store: store, writer: writer, filter: filter, logger: logger}
}

// Apply decodes body as a changeset document and persists every valid,
// in-AOI changeset found in it. It implements replication.Applier.
func (a *Applier) Apply(ctx context.Context, body []byte) error {
	changesets, err := Parse(body)
	if err != nil {
		return err
	}

	var stmts []string
	for _, c := range changesets {
		if !c.Valid() {
			a.logger.Debug("dropping changeset with zero num_changes", zap.Int64("changeset_id", c.ID))
			continue
		}
		if !a.inPriority(c) {
			continue
		}
		stmts = append(stmts, a.writer.ApplyChangeset(c)...)
	}

	if len(stmts) == 0 {
		return nil
	}
	if err := a.store.Exec(ctx, strings.Join(stmts, "\n")); err != nil {
		return pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to persist changeset batch", err)
	}
	return nil
}

// inPriority tests the changeset's bounding-box centroid against the
// configured AOI, dropping out-of-AOI changesets entirely rather than
// flagging them (there is no persisted priority column on the changesets
// table — spec §6 — so out-of-AOI rows are simply never written, matching
// original_source/galaxy/changeset.cc's areaFilter, which erases them from
// the batch rather than tagging them).
func (a *Applier) inPriority(c *domain.Changeset) bool {
	b := c.NormalizedBBox()
	centroid := orb.Point{(b.MinLon + b.MaxLon) / 2, (b.MinLat + b.MaxLat) / 2}
	return a.filter.Contains(centroid)
}
