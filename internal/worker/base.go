package worker

import (
	"sync"

	"go.uber.org/zap"
)

// BaseWorker is the bookkeeping every Worker implementation embeds: a name
// for logging and an idempotent Stop. Concrete workers (CursorWorker) embed
// it and supply their own Start.
type BaseWorker struct {
	name    string
	logger  *zap.Logger
	mu      sync.Mutex
	stopped bool
}

// NewBaseWorker names a worker and gives it the logger it reports through.
func NewBaseWorker(name string, logger *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:   name,
		logger: logger,
	}
}

// Name returns the worker's registered name.
func (w *BaseWorker) Name() string {
	return w.name
}

// Stop marks the worker stopped and logs once. WorkerManager.Stop calls
// this on every registered worker regardless of whether its Start has
// returned yet, so repeated calls must be harmless.
func (w *BaseWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.logger.Info("stopping worker", zap.String("name", w.name))
	w.stopped = true

	return nil
}

// Logger returns the worker's logger.
func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}
