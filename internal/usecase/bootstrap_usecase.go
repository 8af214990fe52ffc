// Package usecase wires the engine's lower-level packages (store, pbf,
// tasker, replication, osmchange, changeset) into the operations named in
// spec §6: bootstrap, bulk import, and replication.
package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/pbf"
	"github.com/emi420/underpass-go/internal/tasker"
)

// Store is the slice of internal/store.Gateway the bootstrap and import
// operations need.
type Store interface {
	Initialize(ctx context.Context, ddlDir string) error
	CreateIndexes(ctx context.Context, ddlDir string) error
}

// BootstrapUseCase implements the --bootstrap combination of spec §6:
// create schema, bulk-import a planet/extract PBF, then build indexes. It
// is deliberately a thin orchestrator, the way the teacher's usecase
// constructors inject every collaborator rather than reach for globals.
type BootstrapUseCase struct {
	store  Store
	ddlDir string
	logger *zap.Logger
}

// NewBootstrapUseCase wires the store gateway and DDL directory into a
// BootstrapUseCase.
func NewBootstrapUseCase(store Store, ddlDir string, logger *zap.Logger) *BootstrapUseCase {
	return &BootstrapUseCase{store: store, ddlDir: ddlDir, logger: logger}
}

// Initialize runs the schema DDL (extensions, tables) without touching
// indexes, so a bulk import can run against unindexed tables.
func (uc *BootstrapUseCase) Initialize(ctx context.Context) error {
	uc.logger.Info("initializing schema", zap.String("ddl_dir", uc.ddlDir))
	return uc.store.Initialize(ctx, uc.ddlDir)
}

// Import drives a full three-pass PBF import into reader's sink, logging
// start/finish the way the teacher logs long-running jobs.
func (uc *BootstrapUseCase) Import(reader *pbf.Reader, t *tasker.Tasker) error {
	uc.logger.Info("starting PBF import")
	if err := reader.Run(t); err != nil {
		return err
	}
	if err := t.Finish(); err != nil {
		return err
	}
	uc.logger.Info("PBF import complete")
	return nil
}

// CreateIndexes builds the spatial and reference indexes named in spec §6,
// run only after Import so the bulk insert path never contends with them.
func (uc *BootstrapUseCase) CreateIndexes(ctx context.Context) error {
	uc.logger.Info("creating indexes", zap.String("ddl_dir", uc.ddlDir))
	return uc.store.CreateIndexes(ctx, uc.ddlDir)
}

// Bootstrap runs Initialize, Import, and CreateIndexes in sequence, the
// full --bootstrap combination named in spec §6.
func (uc *BootstrapUseCase) Bootstrap(ctx context.Context, reader *pbf.Reader, t *tasker.Tasker) error {
	if err := uc.Initialize(ctx); err != nil {
		return err
	}
	if err := uc.Import(reader, t); err != nil {
		return err
	}
	return uc.CreateIndexes(ctx)
}
