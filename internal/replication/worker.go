package replication

import (
	"context"

	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/worker"
)

// CursorWorker adapts a Cursor to the worker.Worker interface so the
// replicate usecase can run every configured stream (minute/hour/day
// osmChange, changeset) under a single worker.WorkerManager, the way the
// teacher runs its stream consumers.
type CursorWorker struct {
	*worker.BaseWorker
	cursor *Cursor
}

// NewCursorWorker names and wraps a Cursor for WorkerManager.Register.
func NewCursorWorker(name string, cursor *Cursor, logger *zap.Logger) *CursorWorker {
	return &CursorWorker{
		BaseWorker: worker.NewBaseWorker(name, logger),
		cursor:     cursor,
	}
}

// Start runs the cursor until ctx is cancelled or a cursor step (download,
// decode or apply) fails; both are
// reported to the manager as a worker failure/completion, not swallowed.
// The cursor has no separate stop signal of its own: WorkerManager.Stop
// relies entirely on the caller cancelling ctx (see ReplicateUseCase.Run),
// and BaseWorker.Stop only marks the worker stopped for logging.
func (w *CursorWorker) Start(ctx context.Context) error {
	err := w.cursor.Run(ctx)
	if err == context.Canceled || err == context.DeadlineExceeded {
		return nil
	}
	return err
}
