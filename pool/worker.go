package pool

import (
	"context"
	"time"

	"github.com/utkarsh5026/forkjoin/internal/algorithms"
	"github.com/utkarsh5026/forkjoin/internal/cpu"
	"github.com/utkarsh5026/forkjoin/internal/logging"
	"github.com/utkarsh5026/forkjoin/internal/scheduler"
)

const (
	maxStealAttempts = 8
	// spinScans is how many empty scans a worker makes before it parks.
	spinScans = 16
)

// Worker is one goroutine of a Pool together with its deque.
// Task bodies receive their Worker and hand it to Fork and Join.
type Worker struct {
	id      int
	pool    *Pool
	state   *poolState
	deque   *scheduler.Deque[taskCore]
	backoff algorithms.BackoffStrategy
	rng     uint64
	timer   *time.Timer
}

func newWorker(id int, p *Pool, st *poolState) *Worker {
	return &Worker{
		id:      id,
		pool:    p,
		state:   st,
		deque:   scheduler.NewDeque[taskCore](p.conf.dequeCapacity),
		backoff: p.conf.newIdleBackoff(),
		rng:     uint64(id)*0x9E3779B97F4A7C15 + 1,
	}
}

// ID returns the worker's index in [0, WorkerCount).
func (w *Worker) ID() int {
	return w.id
}

// run is the worker's main loop: own deque (LIFO), then the injection queue,
// then stealing, then parking. It returns once shutdown has been requested and
// a full scan finds no work.
func (w *Worker) run(ctx context.Context) error {
	if w.pool.conf.pinCPU {
		release, err := cpu.PinWorker(w.id)
		defer release()
		if err != nil {
			w.pool.conf.logger.Warn("cpu pinning failed", logging.Int("worker", w.id), logging.Err(err))
		}
	}

	misses := 0
	for {
		if c, stolen := w.findWork(true); c != nil {
			w.pool.conf.metrics.busy(1)
			c.exec(w, stolen)
			w.pool.conf.metrics.busy(-1)
			misses = 0
			w.backoff.Reset()
			continue
		}

		if w.quitting(ctx) {
			return nil
		}

		misses++
		if misses <= spinScans {
			continue
		}
		w.park(misses-spinScans-1, w.state.signal.Wait(), w.state.quit)
	}
}

// helpUntil runs other tasks until done is closed. It only takes work from
// its own deque and from other workers, never from the injection queue, so
// a join is not held up behind unrelated top-level submissions.
func (w *Worker) helpUntil(done <-chan struct{}) {
	misses := 0
	for {
		select {
		case <-done:
			return
		default:
		}

		if c, stolen := w.findWork(false); c != nil {
			c.exec(w, stolen)
			misses = 0
			continue
		}

		misses++
		if misses <= spinScans {
			continue
		}
		w.park(misses-spinScans-1, done, nil)
	}
}

// findWork returns the next task for this worker and whether it was stolen.
func (w *Worker) findWork(useInjector bool) (*taskCore, bool) {
	if c := w.deque.PopBack(); c != nil {
		return c, false
	}

	if useInjector {
		if c := w.state.injector.Pop(); c != nil {
			return c, false
		}
	}

	if c := w.steal(); c != nil {
		return c, true
	}

	return nil, false
}

// steal tries up to maxStealAttempts victims starting at a random index and
// takes the oldest task of the first non-empty deque.
func (w *Worker) steal() *taskCore {
	workers := w.state.workers
	n := len(workers)
	if n <= 1 {
		return nil
	}

	attempts := min(n-1, maxStealAttempts)
	start := int(w.nextRand() % uint64(n)) // #nosec G115 -- n is a positive worker count

	for i := 0; i < n && attempts > 0; i++ {
		victim := workers[(start+i)%n]
		if victim == w {
			continue
		}
		attempts--

		if victim.deque.Len() == 0 {
			continue
		}
		if c := victim.deque.PopFront(); c != nil {
			w.pool.record(eventStolen)
			return c
		}
	}

	return nil
}

// quitting reports whether the worker may exit: shutdown requested, or the
// pool context ended and the injection queue has been closed, and nothing is
// left in the injection queue or its own deque.
func (w *Worker) quitting(ctx context.Context) bool {
	select {
	case <-w.state.quit:
	case <-ctx.Done():
		if !w.state.injector.Closed() {
			return false
		}
	default:
		return false
	}
	return w.state.injector.Len() == 0 && w.deque.Len() == 0
}

// park sleeps for the backoff delay of the given miss count, waking early on
// wake or stop. Either channel may be nil.
func (w *Worker) park(misses int, wake, stop <-chan struct{}) {
	d := w.backoff.NextDelay(misses)
	if d <= 0 {
		return
	}

	if w.timer == nil {
		w.timer = time.NewTimer(d)
	} else {
		w.timer.Reset(d)
	}

	select {
	case <-wake:
	case <-stop:
	case <-w.timer.C:
		return
	}

	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
}

// nextRand is a xorshift64 step; victim selection needs speed, not quality.
func (w *Worker) nextRand() uint64 {
	x := w.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	w.rng = x
	return x
}
