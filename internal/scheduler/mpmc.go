package scheduler

import (
	"errors"
	"runtime"
	"sync/atomic"
)

// ErrQueueFull is returned by BoundedInjector.Push when every slot is taken.
var ErrQueueFull = errors.New("queue is full")

// mpmcSlot is a single slot in the ring buffer. sequence tells producers and
// consumers whose turn the slot is.
type mpmcSlot[T any] struct {
	sequence atomic.Uint64
	value    *T
	// Padding to prevent false sharing between slots
	_ [cacheLinePadding - 16]byte
}

// BoundedInjector is a lock-free multi-producer multi-consumer ring with a
// fixed capacity, usable in place of Injector when external submissions must
// be bounded. Push fails fast with ErrQueueFull instead of growing.
//
// The algorithm is Dmitry Vyukov's bounded MPMC queue: each slot carries a
// sequence number, a producer may fill slot i when sequence == position, and
// a consumer may empty it when sequence == position+1.
type BoundedInjector[T any] struct {
	ring []mpmcSlot[T]
	mask uint64

	_    [cacheLinePadding]byte
	head atomic.Uint64
	_    [cacheLinePadding - 8]byte
	tail atomic.Uint64
	_    [cacheLinePadding - 8]byte

	closed atomic.Bool
	// pushers counts Push calls between their closed check and their
	// publish, so Close can wait them out.
	pushers atomic.Int64
}

// NewBoundedInjector creates a ring holding capacity elements, rounded up to
// a power of two.
func NewBoundedInjector[T any](capacity int) *BoundedInjector[T] {
	capacity = nextPowerOfTwo(capacity)
	q := &BoundedInjector[T]{
		ring: make([]mpmcSlot[T], capacity),
		mask: uint64(capacity - 1), // #nosec G115 -- capacity is a positive power of two
	}

	for i := range q.ring {
		q.ring[i].sequence.Store(uint64(i)) // #nosec G115 -- i is a ring index
	}
	return q
}

// Push appends v. It returns ErrInjectorClosed after Close and ErrQueueFull
// when the ring has no free slot.
func (q *BoundedInjector[T]) Push(v *T) error {
	q.pushers.Add(1)
	defer q.pushers.Add(-1)

	if q.closed.Load() {
		return ErrInjectorClosed
	}

	for {
		tail := q.tail.Load()
		slot := &q.ring[tail&q.mask]
		diff := int64(slot.sequence.Load()) - int64(tail) // #nosec G115 -- sequence comparison

		switch {
		case diff == 0:
			if q.tail.CompareAndSwap(tail, tail+1) {
				slot.value = v
				slot.sequence.Store(tail + 1)
				return nil
			}
		case diff < 0:
			return ErrQueueFull
		default:
			// Another producer claimed this position; reload.
			runtime.Gosched()
		}
	}
}

// Pop removes the oldest element, or returns nil when empty.
func (q *BoundedInjector[T]) Pop() *T {
	for {
		head := q.head.Load()
		slot := &q.ring[head&q.mask]
		diff := int64(slot.sequence.Load()) - int64(head+1) // #nosec G115 -- sequence comparison

		switch {
		case diff == 0:
			if q.head.CompareAndSwap(head, head+1) {
				v := slot.value
				slot.value = nil
				// Hand the slot back to producers one lap later.
				slot.sequence.Store(head + q.mask + 1)
				return v
			}
		case diff < 0:
			return nil
		default:
			runtime.Gosched()
		}
	}
}

// Len returns the approximate number of queued elements.
func (q *BoundedInjector[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail > head {
		return int(tail - head) // #nosec G115 -- bounded by the ring capacity
	}
	return 0
}

// Cap returns the ring capacity.
func (q *BoundedInjector[T]) Cap() int {
	return len(q.ring)
}

// Close rejects further pushes and returns once no push is mid-flight.
// Queued elements stay poppable.
func (q *BoundedInjector[T]) Close() {
	q.closed.Store(true)
	for q.pushers.Load() != 0 {
		runtime.Gosched()
	}
}

// Closed reports whether Close has been called.
func (q *BoundedInjector[T]) Closed() bool {
	return q.closed.Load()
}
