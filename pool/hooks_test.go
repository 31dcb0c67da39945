package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestHooks(t *testing.T) {
	var mu sync.Mutex
	started := map[uint64]bool{}
	ended := map[uint64]error{}
	var outOfOrder bool

	errTask := errors.New("task failed")

	p := startPool(t,
		WithWorkerCount(2),
		WithBeforeTaskStart(func(info TaskInfo) {
			mu.Lock()
			defer mu.Unlock()
			if info.Duration != 0 {
				outOfOrder = true
			}
			started[info.ID] = true
		}),
		WithOnTaskEnd(func(info TaskInfo, err error) {
			mu.Lock()
			defer mu.Unlock()
			if !started[info.ID] {
				outOfOrder = true
			}
			ended[info.ID] = err
		}),
	)

	ok, err := Submit(p, context.Background(), func(ctx context.Context, w *Worker) (int, error) {
		return 1, nil
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	bad, err := Submit(p, context.Background(), func(ctx context.Context, w *Worker) (int, error) {
		return 0, errTask
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	_, _ = ok.Get()
	_, _ = bad.Get()

	mu.Lock()
	defer mu.Unlock()

	if outOfOrder {
		t.Error("OnTaskEnd ran before BeforeTaskStart, or BeforeTaskStart saw a duration")
	}
	if len(started) != 2 || len(ended) != 2 {
		t.Fatalf("expected 2 starts and 2 ends, got %d and %d", len(started), len(ended))
	}
	if ended[ok.ID()] != nil {
		t.Errorf("successful task reported error %v", ended[ok.ID()])
	}
	if !errors.Is(ended[bad.ID()], errTask) {
		t.Errorf("failed task reported %v", ended[bad.ID()])
	}
}

func TestHooks_SkippedForCancelledTasks(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	p := startPool(t,
		WithWorkerCount(1),
		WithBeforeTaskStart(func(TaskInfo) {
			mu.Lock()
			calls++
			mu.Unlock()
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Invoke(p, context.Background(), func(_ context.Context, w *Worker) (int, error) {
		cancel()
		child := Fork(w, ctx, func(ctx context.Context, w *Worker) (int, error) {
			return 1, nil
		})
		_, err := child.Join(w)
		return 0, err
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected the hook to run for the root only, got %d calls", calls)
	}
}
