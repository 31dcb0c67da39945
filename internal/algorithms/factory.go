package algorithms

import "time"

// BackoffType selects the idle backoff algorithm.
type BackoffType int

const (
	// BackoffExponential doubles the park duration on every miss (default).
	BackoffExponential BackoffType = iota
	// BackoffJittered adds random jitter so idle workers do not wake in lockstep.
	BackoffJittered
	// BackoffDecorrelated uses decorrelated jitter: each delay depends on the previous one.
	BackoffDecorrelated
)

// String returns the lower-case name used in configuration and logs.
func (b BackoffType) String() string {
	switch b {
	case BackoffJittered:
		return "jittered"
	case BackoffDecorrelated:
		return "decorrelated"
	default:
		return "exponential"
	}
}

// ParseBackoffType maps a configuration name back to a BackoffType.
// Unknown names fall back to BackoffExponential and report false.
func ParseBackoffType(name string) (BackoffType, bool) {
	switch name {
	case "exponential", "":
		return BackoffExponential, true
	case "jittered":
		return BackoffJittered, true
	case "decorrelated":
		return BackoffDecorrelated, true
	default:
		return BackoffExponential, false
	}
}

// NewBackoffStrategy builds a strategy. Each worker owns its own instance,
// so stateful strategies never share state across workers.
func NewBackoffStrategy(
	backoffType BackoffType,
	initialDelay, maxDelay time.Duration,
	jitterFactor float64,
) BackoffStrategy {
	if maxDelay < initialDelay {
		maxDelay = initialDelay
	}

	switch backoffType {
	case BackoffJittered:
		return newJitteredBackoff(initialDelay, maxDelay, jitterFactor)

	case BackoffDecorrelated:
		return newDecorrelatedJitterBackoff(initialDelay, maxDelay)

	default:
		return newExponentialBackoff(initialDelay, maxDelay)
	}
}
