package algorithms

import (
	"math/rand"
	"sync"
	"time"
)

const (
	maxShift = 62 // 1<<63 overflows int64
)

// exponentialBackoff parks for initialDelay * 2^misses, capped at maxDelay.
//
//	miss 0: 1x initialDelay
//	miss 1: 2x initialDelay
//	miss 2: 4x initialDelay
type exponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
}

func newExponentialBackoff(initialDelay, maxDelay time.Duration) *exponentialBackoff {
	return &exponentialBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

func (eb *exponentialBackoff) NextDelay(misses int) time.Duration {
	return calcExponentialDelay(misses, eb.initialDelay, eb.maxDelay)
}

func (eb *exponentialBackoff) Reset() {}

// jitteredBackoff scales the exponential delay by a random factor in
// [1-jitterFactor, 1+jitterFactor]. With jitterFactor=0.1 a 1ms park becomes
// anything between 900µs and 1.1ms.
type jitteredBackoff struct {
	initialDelay, maxDelay time.Duration
	jitterFactor           float64
	rng                    *rand.Rand
	mu                     sync.Mutex
}

func newJitteredBackoff(initialDelay, maxDelay time.Duration, jitterFactor float64) *jitteredBackoff {
	return &jitteredBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		jitterFactor: clamp(jitterFactor, 0, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

func (jb *jitteredBackoff) NextDelay(misses int) time.Duration {
	if misses < 0 {
		return 0
	}

	base := calcExponentialDelay(misses, jb.initialDelay, jb.maxDelay)

	jb.mu.Lock()
	multiplier := 1.0 + (jb.rng.Float64()*2-1)*jb.jitterFactor
	jb.mu.Unlock()

	return clamp(time.Duration(float64(base)*multiplier), 0, jb.maxDelay)
}

func (jb *jitteredBackoff) Reset() {}

// decorrelatedJitterBackoff picks each delay uniformly from
// [initialDelay, 3*previous], capped at maxDelay.
type decorrelatedJitterBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	prevDelay    time.Duration
	rng          *rand.Rand
	mu           sync.Mutex
}

func newDecorrelatedJitterBackoff(initialDelay, maxDelay time.Duration) *decorrelatedJitterBackoff {
	return &decorrelatedJitterBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		prevDelay:    initialDelay,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

func (djb *decorrelatedJitterBackoff) NextDelay(misses int) time.Duration {
	djb.mu.Lock()
	defer djb.mu.Unlock()

	if misses <= 0 {
		djb.prevDelay = djb.initialDelay
		return djb.initialDelay
	}

	upper := min(time.Duration(float64(djb.prevDelay)*3), djb.maxDelay)
	spread := upper - djb.initialDelay
	if spread <= 0 {
		djb.prevDelay = djb.initialDelay
		return djb.initialDelay
	}

	delay := djb.initialDelay + time.Duration(djb.rng.Int63n(int64(spread)))
	djb.prevDelay = delay
	return delay
}

func (djb *decorrelatedJitterBackoff) Reset() {
	djb.mu.Lock()
	defer djb.mu.Unlock()
	djb.prevDelay = djb.initialDelay
}

func calcExponentialDelay(misses int, initialDelay, maxDelay time.Duration) time.Duration {
	if misses < 0 {
		return 0
	}

	if misses > maxShift {
		return maxDelay
	}

	delay := time.Duration(int64(1)<<uint(misses)) * initialDelay
	if delay > maxDelay || delay < 0 {
		return maxDelay
	}

	return delay
}

func clamp[T int | int64 | float64 | time.Duration](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
