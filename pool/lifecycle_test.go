package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPool_Start(t *testing.T) {
	t.Run("successful start", func(t *testing.T) {
		p := New(WithWorkerCount(2))
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer p.Shutdown(time.Second)

		if p.state == nil {
			t.Fatal("pool state should not be nil after start")
		}
		if !p.state.started.Load() {
			t.Error("pool should be marked as started")
		}
		if len(p.state.workers) != 2 {
			t.Errorf("expected 2 workers, got %d", len(p.state.workers))
		}
	})

	t.Run("double start fails", func(t *testing.T) {
		p := startPool(t, WithWorkerCount(2))

		err := p.Start(context.Background())
		if !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("expected ErrAlreadyStarted, got %v", err)
		}
	})

	t.Run("default worker count", func(t *testing.T) {
		p := New()
		if p.WorkerCount() < 1 {
			t.Errorf("expected at least one worker, got %d", p.WorkerCount())
		}
	})

	t.Run("non-positive worker count keeps default", func(t *testing.T) {
		p := New(WithWorkerCount(0))
		if p.WorkerCount() < 1 {
			t.Errorf("expected default worker count, got %d", p.WorkerCount())
		}
	})
}

func TestPool_Shutdown(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		p := New()
		if err := p.Shutdown(time.Second); !errors.Is(err, ErrPoolNotStarted) {
			t.Errorf("expected ErrPoolNotStarted, got %v", err)
		}
	})

	t.Run("twice", func(t *testing.T) {
		p := New(WithWorkerCount(2))
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if err := p.Shutdown(time.Second); err != nil {
			t.Fatalf("first shutdown failed: %v", err)
		}
		if err := p.Shutdown(time.Second); !errors.Is(err, ErrAlreadyShutdown) {
			t.Errorf("expected ErrAlreadyShutdown, got %v", err)
		}
	})

	t.Run("drains queued tasks", func(t *testing.T) {
		p := New(WithWorkerCount(1))
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}

		tasks := make([]*Task[int], 20)
		for i := range tasks {
			task, err := Submit(p, context.Background(), func(ctx context.Context, w *Worker) (int, error) {
				time.Sleep(time.Millisecond)
				return i, nil
			})
			if err != nil {
				t.Fatalf("submit %d failed: %v", i, err)
			}
			tasks[i] = task
		}

		if err := p.Shutdown(5 * time.Second); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}

		for i, task := range tasks {
			v, err, ok := task.TryGet()
			if !ok {
				t.Fatalf("task %d not finished after shutdown", i)
			}
			if err != nil || v != i {
				t.Errorf("task %d: got (%d, %v)", i, v, err)
			}
		}
	})

	t.Run("timeout cancels pool context", func(t *testing.T) {
		p := New(WithWorkerCount(1))
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}

		release := make(chan struct{})
		running := make(chan struct{})
		blocker, err := Submit(p, context.Background(), func(ctx context.Context, w *Worker) (int, error) {
			close(running)
			<-release
			return 1, nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		<-running

		queued, err := Submit(p, context.Background(), func(ctx context.Context, w *Worker) (int, error) {
			return 2, nil
		})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}

		err = p.Shutdown(20 * time.Millisecond)
		if !errors.Is(err, ErrShutdownTimeout) {
			t.Fatalf("expected ErrShutdownTimeout, got %v", err)
		}

		close(release)
		<-p.state.done

		if v, err := blocker.Get(); err != nil || v != 1 {
			t.Errorf("running task should finish normally, got (%d, %v)", v, err)
		}
		if _, err := queued.Get(); !errors.Is(err, context.Canceled) {
			t.Errorf("queued task should be cancelled, got %v", err)
		}
	})
}

func TestPool_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := New(WithWorkerCount(2))
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()

	task, err := Submit(p, context.Background(), func(ctx context.Context, w *Worker) (int, error) {
		return 1, nil
	})
	switch {
	case errors.Is(err, ErrPoolClosed):
	case err != nil:
		t.Fatalf("unexpected submit error: %v", err)
	default:
		// Accepted before intake closed: the task must still honour the
		// cancelled pool context.
		if _, err := task.Get(); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	}

	select {
	case <-p.state.done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not exit after pool context was cancelled")
	}

	if err := p.Shutdown(time.Second); err != nil {
		t.Errorf("shutdown after cancellation failed: %v", err)
	}
}
