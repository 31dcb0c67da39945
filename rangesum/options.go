package rangesum

import (
	"github.com/utkarsh5026/forkjoin/internal/logging"
)

// DefaultThreshold is the widest range summed without splitting.
const DefaultThreshold int64 = 2

// Observer receives the range of every task before the task computes.
// Observers are called concurrently from pool workers.
type Observer func(Range)

// Option configures a Summer.
type Option func(*Summer)

// WithThreshold sets the widest range (End - Start) summed by direct
// iteration. Values below 1 are ignored.
func WithThreshold(n int64) Option {
	return func(s *Summer) {
		if n >= 1 {
			s.threshold = n
		}
	}
}

// WithObserver registers fn to see every task's range.
func WithObserver(fn Observer) Option {
	return func(s *Summer) {
		s.observer = fn
	}
}

// LogObserver writes one "Computing..., start: S, end: E" line per task to
// logger.
func LogObserver(logger logging.Logger) Observer {
	return func(r Range) {
		logger.Printf("Computing..., start: %d, end: %d", r.Start, r.End)
	}
}
