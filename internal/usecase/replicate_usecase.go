package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/changeset"
	"github.com/emi420/underpass-go/internal/geo"
	"github.com/emi420/underpass-go/internal/osmchange"
	"github.com/emi420/underpass-go/internal/rawwriter"
	"github.com/emi420/underpass-go/internal/replication"
	"github.com/emi420/underpass-go/internal/worker"
)

// ReplicateStore is the slice of internal/store.Gateway that both applying
// stages (osmChange and changeset) need.
type ReplicateStore interface {
	osmchange.Store
	changeset.Store
}

// ReplicateUseCase implements the --replicate combination of spec §6: locate
// a starting sequence on one or more replication streams, then run each as
// an independent fetch-apply-advance cursor until the process is cancelled
// or that stream's cursor fails.
type ReplicateUseCase struct {
	client *replication.Client
	store  ReplicateStore
	filter *geo.AreaFilter
	logger *zap.Logger

	osmchangeBaseURL string
	changesetBaseURL string
	pollInterval     time.Duration
}

// NewReplicateUseCase wires the replication client, the shared store, and
// the configured AOI filter into a ReplicateUseCase.
func NewReplicateUseCase(
	client *replication.Client,
	store ReplicateStore,
	filter *geo.AreaFilter,
	osmchangeBaseURL, changesetBaseURL string,
	pollInterval time.Duration,
	logger *zap.Logger,
) *ReplicateUseCase {
	return &ReplicateUseCase{
		client:           client,
		store:            store,
		filter:           filter,
		logger:           logger,
		osmchangeBaseURL: osmchangeBaseURL,
		changesetBaseURL: changesetBaseURL,
		pollInterval:     pollInterval,
	}
}

// Run locates the starting sequence on both the osmChange stream (at freq)
// and the changeset stream relative to startTime, then drives both cursors
// concurrently under a worker.WorkerManager and returns once ctx is
// cancelled. A cursor that fails stops on its own; the other keeps running.
func (uc *ReplicateUseCase) Run(ctx context.Context, freq replication.Frequency, startTime time.Time) error {
	writer := rawwriter.New()

	osmchangeApplier := osmchange.NewApplier(uc.store, writer, uc.filter, uc.logger)
	changesetApplier := changeset.NewApplier(uc.store, writer, uc.filter, uc.logger)

	osmchangeStart, err := replication.LocateSequence(ctx, uc.client, uc.osmchangeBaseURL, freq, startTime)
	if err != nil {
		return err
	}
	changesetStart, err := replication.LocateSequence(ctx, uc.client, uc.changesetBaseURL, replication.Changeset, startTime)
	if err != nil {
		return err
	}

	osmchangeCursor := replication.NewCursor(uc.client, osmchangeApplier, osmchangeStart, "osc.gz", uc.pollInterval, uc.logger)
	changesetCursor := replication.NewCursor(uc.client, changesetApplier, changesetStart, "osm.gz", uc.pollInterval, uc.logger)

	manager := worker.NewWorkerManager(uc.logger)
	manager.Register(replication.NewCursorWorker("osmchange-"+string(freq), osmchangeCursor, uc.logger))
	manager.Register(replication.NewCursorWorker("changeset", changesetCursor, uc.logger))

	if err := manager.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	uc.logger.Info("replicate usecase shutting down")
	return manager.Stop()
}
