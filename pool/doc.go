// Package pool provides a generic work-stealing pool for fork/join
// computations.
//
// A Pool runs a fixed set of workers. Each worker owns a Chase-Lev deque:
// tasks it forks are pushed to the back and popped back in LIFO order, while
// idle workers steal from the front of other deques. Tasks submitted from
// outside the pool go through a shared injection queue.
//
// # Basic Usage
//
//	p := pool.New(pool.WithWorkerCount(4))
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Shutdown(5 * time.Second)
//
//	sum, err := pool.Invoke(p, ctx, func(ctx context.Context, w *pool.Worker) (int, error) {
//	    return 1 + 2, nil
//	})
//
// # Fork and Join
//
// A running task receives its Worker. It forks subtasks onto that worker's
// deque and joins them with the same worker:
//
//	left := pool.Fork(w, ctx, leftFn)
//	right := pool.Fork(w, ctx, rightFn)
//	l, err := left.Join(w)
//	...
//	r, err := right.Join(w)
//
// Join does not block the worker. While the joined task is unfinished the
// worker runs other tasks from its own deque or steals from other workers,
// so trees deeper than the worker count cannot deadlock.
//
// Goroutines outside the pool wait with Get or GetWithContext, or poll with
// TryGet.
//
// # Cancellation
//
// A task whose context is done when a worker picks it up completes with the
// context error and its body never runs. Task.Cancel does the same for a
// task that has not started. A running body sees cancellation only through
// its ctx.
//
// # Failures
//
// A panicking body completes its task with a *TaskPanicError holding the
// recovered value and stack. Errors and panics reach whoever joins the task;
// the worker keeps serving.
//
// # Shutdown
//
// Shutdown stops intake and waits for the workers to drain every queued
// task. If the timeout expires the pool context is cancelled, tasks that
// have not started complete with context.Canceled, and ErrShutdownTimeout is
// returned.
//
// # Backpressure
//
// The injection queue is unbounded by default. WithInjectorCapacity replaces
// it with a fixed-size lock-free ring, and Submit then fails with
// ErrQueueFull instead of queueing. WithSubmitRateLimit throttles Submit.
// Neither applies to Fork.
//
// # Observability
//
// Stats returns counters and queue depths; WithMetrics exports the same
// counters to Prometheus. WithBeforeTaskStart and WithOnTaskEnd observe
// individual executions.
package pool
