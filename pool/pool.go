package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utkarsh5026/forkjoin/internal/logging"
	"github.com/utkarsh5026/forkjoin/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// Pool is a fixed-size work-stealing pool for fork/join computations.
//
// Each worker owns a deque. Tasks forked by a worker go to the back of its own
// deque; idle workers steal from the front of other deques. Tasks submitted from
// outside the pool enter through a shared injection queue.
//
// A Pool is created with New, started once with Start, and stopped once with
// Shutdown.
type Pool struct {
	conf    *config
	mu      sync.RWMutex
	state   *poolState
	taskIDs atomic.Uint64
	stats   counters
}

// injectQueue is the queue external submissions enter through.
type injectQueue interface {
	Push(c *taskCore) error
	Pop() *taskCore
	Len() int
	Close()
	Closed() bool
}

// poolState holds the runtime state of a started pool.
type poolState struct {
	ctx      context.Context
	cancel   context.CancelFunc
	workers  []*Worker
	injector injectQueue
	signal   *scheduler.WorkerSignal
	quit     chan struct{}
	done     chan struct{} // closed when all workers have exited
	started  atomic.Bool
	shutdown atomic.Bool
}

// New creates a pool. No goroutines run until Start.
//
// Example:
//
//	p := pool.New(pool.WithWorkerCount(8))
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Shutdown(5 * time.Second)
func New(opts ...Option) *Pool {
	return &Pool{conf: newConfig(opts...)}
}

// Start launches the workers. ctx bounds the pool's lifetime: when it is
// cancelled, queued tasks complete with the context error instead of running.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != nil && p.state.started.Load() {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	st := &poolState{
		ctx:      ctx,
		cancel:   cancel,
		injector: p.conf.newInjector(),
		signal:   scheduler.NewWorkerSignal(),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		workers:  make([]*Worker, p.conf.workerCount),
	}

	for i := range st.workers {
		st.workers[i] = newWorker(i, p, st)
	}

	p.state = st
	st.started.Store(true)

	var g errgroup.Group
	for _, w := range st.workers {
		g.Go(func() error {
			return w.run(ctx)
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			p.conf.logger.Error("worker exited with error", err)
		}
		close(st.done)
	}()

	// A cancelled pool context stops intake so workers can drain and exit.
	go func() {
		select {
		case <-ctx.Done():
			st.injector.Close()
			st.signal.Close()
		case <-st.done:
		}
	}()

	p.conf.metrics.setWorkers(len(st.workers))
	p.conf.logger.Debug("pool started", logging.Int("workers", len(st.workers)))
	return nil
}

// Submit hands fn to the pool from outside it and returns the task as a future.
// The task runs with ctx; cancelling ctx before the task starts completes it
// with ctx.Err() without running fn.
//
// Example:
//
//	task, err := pool.Submit(p, ctx, func(ctx context.Context, w *pool.Worker) (int, error) {
//	    return 42, nil
//	})
//	if err != nil {
//	    return err
//	}
//	v, err := task.Get()
func Submit[R any](p *Pool, ctx context.Context, fn Func[R]) (*Task[R], error) {
	p.mu.RLock()
	st := p.state
	p.mu.RUnlock()

	if st == nil || !st.started.Load() {
		return nil, ErrPoolNotStarted
	}

	if st.shutdown.Load() {
		return nil, ErrPoolClosed
	}

	if lim := p.conf.submitLimiter; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := newTask(p, st, ctx, fn)
	if err := st.injector.Push(&t.core); err != nil {
		if errors.Is(err, ErrQueueFull) {
			return nil, err
		}
		return nil, ErrPoolClosed
	}

	p.record(eventSubmitted)
	st.signal.Signal()
	return t, nil
}

// Invoke submits fn and waits for its result, bounded by ctx.
func Invoke[R any](p *Pool, ctx context.Context, fn Func[R]) (R, error) {
	t, err := Submit(p, ctx, fn)
	if err != nil {
		var zero R
		return zero, err
	}
	return t.GetWithContext(ctx)
}

// Shutdown stops accepting submissions and waits for queued and running tasks
// to finish. A zero timeout waits forever. When the timeout expires the pool
// context is cancelled, so tasks that have not started complete with
// context.Canceled, and ErrShutdownTimeout is returned.
//
// Example:
//
//	if err := p.Shutdown(5 * time.Second); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	st := p.state
	if st == nil || !st.started.Load() {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}

	if !st.shutdown.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return ErrAlreadyShutdown
	}
	p.mu.Unlock()

	st.injector.Close()
	close(st.quit)
	st.signal.Close()

	if err := waitUntil(st.done, timeout); err != nil {
		st.cancel()
		p.conf.logger.Warn("pool shutdown timed out", logging.Duration("timeout", timeout))
		return err
	}

	st.cancel()
	p.conf.metrics.setWorkers(0)
	p.conf.logger.Debug("pool stopped", logging.Uint64("executed", p.stats.executed.Load()))
	return nil
}

// WorkerCount returns the configured number of workers.
func (p *Pool) WorkerCount() int {
	return p.conf.workerCount
}

// Stats returns a snapshot of the pool's counters and queue depths.
func (p *Pool) Stats() Stats {
	s := p.stats.snapshot()
	s.Workers = p.conf.workerCount

	p.mu.RLock()
	st := p.state
	p.mu.RUnlock()

	if st != nil {
		s.Injected = st.injector.Len()
		for _, w := range st.workers {
			s.Queued += w.deque.Len()
		}
	}
	return s
}

func waitUntil(done <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-done
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrShutdownTimeout, timeout)
	}
}
