package worker

import (
	"context"
)

// Worker is anything WorkerManager can run and stop: the replication
// cursors (internal/replication/worker.go) are its only implementation.
type Worker interface {
	// Start runs the worker until ctx is done or it fails on its own.
	Start(ctx context.Context) error

	// Stop asks the worker to wind down; it must be safe to call more than
	// once and safe to call before or after Start returns.
	Stop() error

	// Name identifies the worker in logs.
	Name() string
}
