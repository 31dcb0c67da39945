package scheduler

import (
	"sync/atomic"
)

const (
	// DefaultDequeCapacity is the initial ring size of a worker deque.
	DefaultDequeCapacity = 256

	cacheLinePadding = 128
)

// ring is one generation of a deque's circular buffer. A deque swaps in a
// larger ring when it fills up; thieves that loaded the old ring keep
// reading valid slots from it because the owner never writes to a retired ring.
type ring[T any] struct {
	slots []atomic.Pointer[T]
	mask  int64
}

func newRing[T any](capacity int) *ring[T] {
	capacity = nextPowerOfTwo(capacity)
	return &ring[T]{
		slots: make([]atomic.Pointer[T], capacity),
		mask:  int64(capacity - 1),
	}
}

func (r *ring[T]) capacity() int64 { return r.mask + 1 }

func (r *ring[T]) load(i int64) *T { return r.slots[i&r.mask].Load() }

func (r *ring[T]) store(i int64, v *T) { r.slots[i&r.mask].Store(v) }

// grow copies the live window [head, tail) into a ring twice the size.
func (r *ring[T]) grow(head, tail int64) *ring[T] {
	bigger := newRing[T](int(r.capacity() << 1))
	for i := head; i < tail; i++ {
		bigger.store(i, r.load(i))
	}
	return bigger
}

// Deque is a Chase-Lev work-stealing deque.
//
// The owning worker pushes and pops at the tail (LIFO), which keeps the most
// recently forked subtask hot in cache. Thieves take from the head (FIFO),
// which hands them the oldest and therefore largest pieces of a fork/join tree.
//
// Concurrency model:
//   - PushBack and PopBack may only be called by the owner.
//   - PopFront may be called by any number of goroutines.
//   - The single-element race between owner and thief is settled by a CAS on head.
//
// References:
//   - "Dynamic Circular Work-Stealing Deque" by Chase and Lev (2005)
//   - "Correct and Efficient Work-Stealing for Weak Memory Models" by Lê et al. (2013)
type Deque[T any] struct {
	buf atomic.Pointer[ring[T]]

	_    [cacheLinePadding]byte
	head atomic.Int64
	_    [cacheLinePadding - 8]byte

	tail atomic.Int64
	_    [cacheLinePadding - 8]byte
}

// NewDeque returns an empty deque whose ring starts at capacity (rounded up
// to a power of two). Non-positive capacities use DefaultDequeCapacity.
func NewDeque[T any](capacity int) *Deque[T] {
	if capacity <= 0 {
		capacity = DefaultDequeCapacity
	}

	d := &Deque[T]{}
	d.buf.Store(newRing[T](capacity))
	return d
}

// PushBack adds v at the tail. Owner only. Growth is amortized O(1).
func (d *Deque[T]) PushBack(v *T) {
	tail := d.tail.Load()
	head := d.head.Load()
	r := d.buf.Load()

	if tail-head >= r.capacity() {
		r = r.grow(head, tail)
		d.buf.Store(r)
	}

	r.store(tail, v)
	d.tail.Store(tail + 1)
}

// PopBack removes the most recently pushed element. Owner only.
// Returns nil when the deque is empty or a thief won the last element.
func (d *Deque[T]) PopBack() *T {
	tail := d.tail.Load() - 1
	r := d.buf.Load()
	d.tail.Store(tail)

	head := d.head.Load()
	if head > tail {
		d.tail.Store(head)
		return nil
	}

	v := r.load(tail)
	if head == tail {
		if !d.head.CompareAndSwap(head, head+1) {
			v = nil
		}
		d.tail.Store(head + 1)
	}

	return v
}

// PopFront steals the oldest element. Safe for concurrent thieves.
// Returns nil when empty or when another thief or the owner claimed the slot first.
func (d *Deque[T]) PopFront() *T {
	head := d.head.Load()
	tail := d.tail.Load()

	if head >= tail {
		return nil
	}

	v := d.buf.Load().load(head)
	if !d.head.CompareAndSwap(head, head+1) {
		return nil
	}

	return v
}

// Len is a racy size estimate, suitable for victim selection and metrics only.
func (d *Deque[T]) Len() int {
	n := d.tail.Load() - d.head.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Cap returns the current ring capacity.
func (d *Deque[T]) Cap() int {
	return int(d.buf.Load().capacity())
}
