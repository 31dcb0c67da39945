package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/utkarsh5026/forkjoin/internal/algorithms"
)

// poolConfig is one pool setup the shared tests run against.
type poolConfig struct {
	name string
	opts []Option
}

// poolConfigs returns every idle policy, plus a tiny deque that forces ring
// growth on the first few forks.
func poolConfigs(workerCount int) []poolConfig {
	return []poolConfig{
		{
			name: "Exponential",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithIdleBackoff(algorithms.BackoffExponential, 10*time.Microsecond, time.Millisecond),
			},
		},
		{
			name: "Jittered",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithIdleBackoff(algorithms.BackoffJittered, 10*time.Microsecond, time.Millisecond),
			},
		},
		{
			name: "Decorrelated",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithIdleBackoff(algorithms.BackoffDecorrelated, 10*time.Microsecond, time.Millisecond),
			},
		},
		{
			name: "SmallDeque",
			opts: []Option{
				WithWorkerCount(workerCount),
				WithDequeCapacity(2),
			},
		},
	}
}

// runPoolTest runs fn once per pool configuration against a started pool
// that is shut down when the subtest ends.
func runPoolTest(t *testing.T, fn func(t *testing.T, p *Pool), workerCount int) {
	t.Helper()
	for _, c := range poolConfigs(workerCount) {
		t.Run(c.name, func(t *testing.T) {
			fn(t, startPool(t, c.opts...))
		})
	}
}

// startPool starts a pool and registers its shutdown with t.Cleanup.
func startPool(t *testing.T, opts ...Option) *Pool {
	t.Helper()

	p := New(opts...)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	t.Cleanup(func() {
		if err := p.Shutdown(5 * time.Second); err != nil && !errors.Is(err, ErrAlreadyShutdown) {
			t.Errorf("shutdown failed: %v", err)
		}
	})
	return p
}

// fib computes Fibonacci numbers by forking both branches above cutoff.
func fib(ctx context.Context, w *Worker, n, cutoff int) (int, error) {
	if n <= cutoff {
		a, b := 0, 1
		for range n {
			a, b = b, a+b
		}
		return a, nil
	}

	left := Fork(w, ctx, func(ctx context.Context, w *Worker) (int, error) {
		return fib(ctx, w, n-1, cutoff)
	})
	right := Fork(w, ctx, func(ctx context.Context, w *Worker) (int, error) {
		return fib(ctx, w, n-2, cutoff)
	})

	l, err := left.Join(w)
	if err != nil {
		return 0, err
	}
	r, err := right.Join(w)
	if err != nil {
		return 0, err
	}
	return l + r, nil
}
