package pool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

const (
	statePending int32 = iota
	stateRunning
	stateDone
)

// taskCore is the type-erased part of a Task that deques and the injector hold.
type taskCore struct {
	id    uint64
	state atomic.Int32
	done  chan struct{}
	// exec runs the body on w and completes the task. stolen is reported to hooks.
	exec func(w *Worker, stolen bool)
}

// claim moves the task from pending to running. Only the winner may execute it.
func (c *taskCore) claim() bool {
	return c.state.CompareAndSwap(statePending, stateRunning)
}

// Task is a single fork/join computation and the future for its result.
//
// A Task is created by Submit (from outside the pool) or Fork (from inside a
// running task), executes at most once, and is then immutable.
type Task[R any] struct {
	core  taskCore
	ctx   context.Context
	fn    Func[R]
	pool  *Pool
	state *poolState

	value R
	err   error
}

func newTask[R any](p *Pool, st *poolState, ctx context.Context, fn Func[R]) *Task[R] {
	t := &Task[R]{
		ctx:   ctx,
		fn:    fn,
		pool:  p,
		state: st,
	}
	t.core.id = p.taskIDs.Add(1)
	t.core.done = make(chan struct{})
	t.core.exec = t.run
	return t
}

// Fork schedules fn as a subtask of the task currently running on w and
// returns immediately. The subtask lands on w's own deque, where w will pick it
// up when it joins, unless an idle worker steals it first.
//
// w must be the worker handed to the calling Func.
func Fork[R any](w *Worker, ctx context.Context, fn Func[R]) *Task[R] {
	t := newTask(w.pool, w.state, ctx, fn)
	w.deque.PushBack(&t.core)
	w.pool.record(eventForked)
	w.state.signal.Signal()
	return t
}

// ID returns the pool-unique task identifier.
func (t *Task[R]) ID() uint64 {
	return t.core.id
}

// Join waits for the task from inside the pool and returns its result.
//
// While the task is unfinished, w keeps executing other work: first its own
// deque, then tasks stolen from other workers. This is what keeps a pool of N
// workers from deadlocking on a fork/join tree deeper than N.
// A nil w falls back to Get.
func (t *Task[R]) Join(w *Worker) (R, error) {
	if w == nil {
		return t.Get()
	}
	w.helpUntil(t.core.done)
	return t.value, t.err
}

// Get blocks until the task completes. For use outside the pool; a worker
// should call Join instead so it keeps helping while it waits.
func (t *Task[R]) Get() (R, error) {
	<-t.core.done
	return t.value, t.err
}

// GetWithContext is Get bounded by ctx. When ctx ends first the task keeps
// running and ctx.Err() is returned.
func (t *Task[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-t.core.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// GetWithTimeout is Get bounded by timeout.
func (t *Task[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return t.GetWithContext(ctx)
}

// TryGet returns the result without blocking. ok is false while the task is
// still pending or running.
func (t *Task[R]) TryGet() (value R, err error, ok bool) {
	select {
	case <-t.core.done:
		return t.value, t.err, true
	default:
		var zero R
		return zero, nil, false
	}
}

// IsReady reports whether the task has completed.
func (t *Task[R]) IsReady() bool {
	select {
	case <-t.core.done:
		return true
	default:
		return false
	}
}

// Done is closed when the task completes.
func (t *Task[R]) Done() <-chan struct{} {
	return t.core.done
}

// Cancel completes a task that has not started yet with ErrTaskCanceled.
// It returns false when the task is already running or done; a running
// task observes cancellation only through its own context.
func (t *Task[R]) Cancel() bool {
	if !t.core.claim() {
		return false
	}
	t.abandon(fmt.Errorf("%w: %w", ErrTaskCanceled, context.Canceled))
	return true
}

func (t *Task[R]) run(w *Worker, stolen bool) {
	if !t.core.claim() {
		return
	}

	if err := t.contextErr(); err != nil {
		t.pool.record(eventCanceled)
		t.complete(t.value, err)
		return
	}

	info := TaskInfo{ID: t.core.id, WorkerID: w.id, Stolen: stolen}
	conf := t.pool.conf
	if conf.beforeTaskStart != nil {
		conf.beforeTaskStart(info)
	}

	start := time.Now()
	value, err := t.invoke(w)
	info.Duration = time.Since(start)

	if conf.onTaskEnd != nil {
		conf.onTaskEnd(info, err)
	}

	t.pool.recordExecution(info, err)
	t.complete(value, err)
}

// invoke calls the body, turning a panic into a *TaskPanicError.
func (t *Task[R]) invoke(w *Worker) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskPanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return t.fn(t.ctx, w)
}

// contextErr reports the submitter's cancellation first, then the pool's.
func (t *Task[R]) contextErr() error {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	return t.state.ctx.Err()
}

func (t *Task[R]) abandon(err error) {
	t.pool.record(eventCanceled)
	var zero R
	t.complete(zero, err)
}

func (t *Task[R]) complete(value R, err error) {
	t.value = value
	t.err = err
	t.core.state.Store(stateDone)
	close(t.core.done)
}
