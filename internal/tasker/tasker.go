// Package tasker implements the concurrent page-batching worker pool of
// spec §4.4: entities accumulate into per-kind caches and are flushed to
// the store gateway in fixed-size concurrent chunks once a cache reaches
// page_size × concurrency.
package tasker

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/rawwriter"
)

// Execer is the slice of the store gateway the tasker needs: run a batch of
// statements atomically. *store.Gateway satisfies this.
type Execer interface {
	Exec(ctx context.Context, sqlText string) error
}

// Tasker implements pbf.Sink: it is the path bulk-imported entities take on
// their way to the database.
type Tasker struct {
	pageSize    int
	concurrency int
	writer      *rawwriter.Writer
	gateway     Execer
	logger      *zap.Logger
	ctx         context.Context

	mu        sync.Mutex
	nodes     []*domain.Node
	ways      []*domain.Way
	relations []*domain.Relation

	errMu sync.Mutex
	err   error
}

// New builds a Tasker with the given page size and worker concurrency
// (spec §4.4 and §5's page_size × concurrency chunk boundary).
func New(ctx context.Context, pageSize, concurrency int, writer *rawwriter.Writer, gateway Execer, logger *zap.Logger) *Tasker {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Tasker{
		ctx:         ctx,
		pageSize:    pageSize,
		concurrency: concurrency,
		writer:      writer,
		gateway:     gateway,
		logger:      logger,
	}
}

// PushNode implements pbf.Sink.
func (t *Tasker) PushNode(n *domain.Node) {
	t.mu.Lock()
	t.nodes = append(t.nodes, n)
	var batch []*domain.Node
	if len(t.nodes) >= t.pageSize*t.concurrency {
		batch, t.nodes = t.nodes, nil
	}
	t.mu.Unlock()

	if batch != nil {
		t.recordErr(flush(t, batch, t.writer.ApplyNode))
	}
}

// PushWay implements pbf.Sink.
func (t *Tasker) PushWay(w *domain.Way) {
	t.mu.Lock()
	t.ways = append(t.ways, w)
	var batch []*domain.Way
	if len(t.ways) >= t.pageSize*t.concurrency {
		batch, t.ways = t.ways, nil
	}
	t.mu.Unlock()

	if batch != nil {
		t.recordErr(flush(t, batch, t.writer.ApplyWay))
	}
}

// PushRelation implements pbf.Sink.
func (t *Tasker) PushRelation(r *domain.Relation) {
	t.mu.Lock()
	t.relations = append(t.relations, r)
	var batch []*domain.Relation
	if len(t.relations) >= t.pageSize*t.concurrency {
		batch, t.relations = t.relations, nil
	}
	t.mu.Unlock()

	if batch != nil {
		t.recordErr(flush(t, batch, t.writer.ApplyRelation))
	}
}

// Finish flushes every partial cache — spec §4.4's "temporarily setting
// page size to the remainder" is implemented here simply by flushing
// whatever remains as a single (possibly smaller) batch.
func (t *Tasker) Finish() error {
	t.mu.Lock()
	nodes, ways, relations := t.nodes, t.ways, t.relations
	t.nodes, t.ways, t.relations = nil, nil, nil
	t.mu.Unlock()

	t.recordErr(flush(t, nodes, t.writer.ApplyNode))
	t.recordErr(flush(t, ways, t.writer.ApplyWay))
	t.recordErr(flush(t, relations, t.writer.ApplyRelation))

	return t.Err()
}

// Err returns the first error recorded by any flush, if any.
func (t *Tasker) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *Tasker) recordErr(err error) {
	if err == nil {
		return
	}
	t.errMu.Lock()
	defer t.errMu.Unlock()
	if t.err == nil {
		t.err = err
		t.logger.Error("tasker flush failed", zap.Error(err))
	}
}

// flush splits items into t.concurrency roughly-equal slices, submits one
// job per slice to run concurrently, and blocks until all complete (spec
// §4.4). Statement order is preserved within a slice; no ordering is
// guaranteed across slices, which is safe because every write is
// version-guarded (spec §3).
func flush[T any](t *Tasker, items []T, build func(T) []string) error {
	if len(items) == 0 {
		return nil
	}

	chunks := splitInto(items, t.concurrency)

	var wg sync.WaitGroup
	errs := make(chan error, len(chunks))

	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		wg.Add(1)
		batchID := uuid.New().String()
		go func(chunk []T, batchID string) {
			defer wg.Done()

			t.logger.Debug("submitting batch", zap.String("batch_id", batchID), zap.Int("size", len(chunk)))

			var sb strings.Builder
			for _, item := range chunk {
				for _, stmt := range build(item) {
					sb.WriteString(stmt)
					sb.WriteByte('\n')
				}
			}
			if sb.Len() == 0 {
				return
			}
			if err := t.gateway.Exec(t.ctx, sb.String()); err != nil {
				t.logger.Error("batch exec failed", zap.String("batch_id", batchID), zap.Error(err))
				errs <- err
			}
		}(chunk, batchID)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// splitInto divides items into n roughly-equal, contiguous slices,
// preserving each slice's internal iteration order.
func splitInto[T any](items []T, n int) [][]T {
	if n <= 1 || len(items) <= n {
		return [][]T{items}
	}

	out := make([][]T, 0, n)
	base := len(items) / n
	rem := len(items) % n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		out = append(out, items[start:start+size])
		start += size
	}
	return out
}
