package tasker_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/domain"
	"github.com/emi420/underpass-go/internal/rawwriter"
	"github.com/emi420/underpass-go/internal/tasker"
)

type mockExecer struct {
	mock.Mock
	mu    sync.Mutex
	calls int
}

func (m *mockExecer) Exec(ctx context.Context, sqlText string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	args := m.Called(ctx, sqlText)
	return args.Error(0)
}

func TestTaskerFlushesAtPageSizeTimesConcurrency(t *testing.T) {
	gw := &mockExecer{}
	gw.On("Exec", mock.Anything, mock.Anything).Return(nil)

	tk := tasker.New(context.Background(), 2, 2, rawwriter.New(), gw, zap.NewNop())

	for i := int64(1); i <= 3; i++ {
		tk.PushNode(domain.NewNode(i))
	}
	if gw.calls != 0 {
		t.Fatalf("expected no flush before reaching page_size*concurrency, got %d calls", gw.calls)
	}

	tk.PushNode(domain.NewNode(4))
	if gw.calls == 0 {
		t.Fatalf("expected a flush once 4 nodes accumulated (page_size=2, concurrency=2)")
	}

	if err := tk.Finish(); err != nil {
		t.Fatalf("unexpected error from Finish: %v", err)
	}
}

func TestTaskerFinishFlushesPartialCache(t *testing.T) {
	gw := &mockExecer{}
	gw.On("Exec", mock.Anything, mock.Anything).Return(nil)

	tk := tasker.New(context.Background(), 100, 4, rawwriter.New(), gw, zap.NewNop())
	tk.PushWay(domain.NewWay(1))

	if err := tk.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.calls == 0 {
		t.Fatalf("expected Finish to flush the partial way cache")
	}
}

func TestTaskerRecordsFirstError(t *testing.T) {
	gw := &mockExecer{}
	gw.On("Exec", mock.Anything, mock.Anything).Return(assertErr)

	tk := tasker.New(context.Background(), 1, 1, rawwriter.New(), gw, zap.NewNop())
	tk.PushNode(domain.NewNode(1))

	if err := tk.Err(); err == nil {
		t.Fatalf("expected tasker to record the gateway error")
	}
}

var assertErr = &execError{"boom"}

type execError struct{ msg string }

func (e *execError) Error() string { return e.msg }
