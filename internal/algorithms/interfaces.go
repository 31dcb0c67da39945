package algorithms

import "time"

// BackoffStrategy decides how long an idle worker parks before it looks for
// work again.
//
// The pool calls NextDelay with the number of consecutive empty scans the
// worker has made (0-indexed) and calls Reset as soon as the worker finds a task.
type BackoffStrategy interface {
	// NextDelay returns the park duration after the given number of misses.
	NextDelay(misses int) time.Duration

	// Reset clears any per-worker state kept between misses.
	Reset()
}
