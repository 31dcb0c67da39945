package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInjectorClosed is returned by Injector.Push after Close.
var ErrInjectorClosed = errors.New("injector is closed")

// nextPowerOfTwo returns the next power of 2 >= n
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	if n&(n-1) == 0 {
		return n
	}

	power := 1
	for power < n {
		power *= 2
	}
	return power
}

// WorkerSignal wakes parked workers when new work is published.
//
// Signals are lossy: at most one wake-up is
// buffered, and a parked worker that misses one still wakes on its backoff
// timer. Close turns the channel into a permanent broadcast for shutdown.
type WorkerSignal struct {
	sig    chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewWorkerSignal creates a signal with a one-slot buffer.
func NewWorkerSignal() *WorkerSignal {
	return &WorkerSignal{
		sig: make(chan struct{}, 1),
	}
}

// Close wakes every waiter, now and in the future. Safe to call repeatedly.
func (ws *WorkerSignal) Close() {
	ws.once.Do(func() {
		ws.closed.Store(true)
		close(ws.sig)
	})
}

// IsClosed reports whether Close has been called.
func (ws *WorkerSignal) IsClosed() bool {
	return ws.closed.Load()
}

// Signal wakes one waiter without blocking. Dropped when a wake-up is
// already pending or the signal is closed.
func (ws *WorkerSignal) Signal() {
	if ws.IsClosed() {
		return
	}

	select {
	case ws.sig <- struct{}{}:
	default:
	}
}

// Wait returns the channel to select on.
func (ws *WorkerSignal) Wait() <-chan struct{} {
	return ws.sig
}

// Injector is the FIFO through which goroutines outside the pool hand work to
// it. Unlike a worker Deque it accepts pushes from any goroutine.
type Injector[T any] struct {
	mu     sync.Mutex
	items  []*T
	head   int
	closed bool
	size   atomic.Int64
}

// NewInjector returns an empty, open injector.
func NewInjector[T any]() *Injector[T] {
	return &Injector[T]{}
}

// Push appends v. It fails with ErrInjectorClosed once Close has been called,
// which lets shutdown guarantee that nothing is enqueued after workers drain.
func (q *Injector[T]) Push(v *T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrInjectorClosed
	}

	q.items = append(q.items, v)
	q.size.Add(1)
	return nil
}

// Pop removes the oldest element, or returns nil when empty.
func (q *Injector[T]) Pop() *T {
	if q.size.Load() == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return nil
	}

	v := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	q.size.Add(-1)

	// Compact once the consumed prefix dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return v
}

// Len returns the number of queued elements.
func (q *Injector[T]) Len() int {
	return int(q.size.Load())
}

// Close rejects further pushes. Queued elements stay poppable.
func (q *Injector[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Closed reports whether Close has been called.
func (q *Injector[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
