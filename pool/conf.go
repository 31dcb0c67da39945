package pool

import (
	"runtime"
	"time"

	"github.com/utkarsh5026/forkjoin/internal/algorithms"
	"github.com/utkarsh5026/forkjoin/internal/logging"
	"github.com/utkarsh5026/forkjoin/internal/scheduler"
	"golang.org/x/time/rate"
)

const (
	defaultIdleMinDelay = 20 * time.Microsecond
	defaultIdleMaxDelay = 2 * time.Millisecond
	defaultIdleJitter   = 0.2
)

// Option configures a Pool.
type Option func(*config)

type config struct {
	workerCount      int
	dequeCapacity    int
	injectorCapacity int

	backoffType  algorithms.BackoffType
	idleMinDelay time.Duration
	idleMaxDelay time.Duration

	pinCPU        bool
	logger        logging.Logger
	metrics       *Metrics
	submitLimiter *rate.Limiter

	beforeTaskStart func(TaskInfo)
	onTaskEnd       func(TaskInfo, error)
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		workerCount:   runtime.GOMAXPROCS(0),
		dequeCapacity: scheduler.DefaultDequeCapacity,
		backoffType:   algorithms.BackoffExponential,
		idleMinDelay:  defaultIdleMinDelay,
		idleMaxDelay:  defaultIdleMaxDelay,
		logger:        logging.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

func (c *config) newInjector() injectQueue {
	if c.injectorCapacity > 0 {
		return scheduler.NewBoundedInjector[taskCore](c.injectorCapacity)
	}
	return scheduler.NewInjector[taskCore]()
}

func (c *config) newIdleBackoff() algorithms.BackoffStrategy {
	return algorithms.NewBackoffStrategy(c.backoffType, c.idleMinDelay, c.idleMaxDelay, defaultIdleJitter)
}

// WithWorkerCount sets the number of workers.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) Option {
	return func(cfg *config) {
		if count > 0 {
			cfg.workerCount = count
		}
	}
}

// WithDequeCapacity sets the initial capacity of each worker's deque.
// Deques grow on demand, so this only avoids early reallocations.
func WithDequeCapacity(capacity int) Option {
	return func(cfg *config) {
		if capacity > 0 {
			cfg.dequeCapacity = capacity
		}
	}
}

// WithInjectorCapacity bounds the queue of external submissions. Once it
// holds capacity tasks (rounded up to a power of two), Submit fails with
// ErrQueueFull instead of queueing. By default the queue is unbounded.
func WithInjectorCapacity(capacity int) Option {
	return func(cfg *config) {
		if capacity > 0 {
			cfg.injectorCapacity = capacity
		}
	}
}

// WithIdleBackoff selects how long idle or joining workers park between
// scans for work. minDelay is the first park, maxDelay the cap.
func WithIdleBackoff(backoffType algorithms.BackoffType, minDelay, maxDelay time.Duration) Option {
	return func(cfg *config) {
		cfg.backoffType = backoffType
		if minDelay > 0 {
			cfg.idleMinDelay = minDelay
		}
		if maxDelay > 0 {
			cfg.idleMaxDelay = maxDelay
		}
	}
}

// WithCPUAffinity pins each worker to its own OS thread and core.
// Pinning failures are logged and otherwise ignored.
func WithCPUAffinity() Option {
	return func(cfg *config) {
		cfg.pinCPU = true
	}
}

// WithLogger sets the logger for pool lifecycle and task failures.
func WithLogger(logger logging.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics records pool activity into m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}

// WithSubmitRateLimit throttles external submissions (Submit and Invoke).
// Forks from inside the pool are never throttled.
//
// Example:
//
//	WithSubmitRateLimit(100, 10) // 100 submissions/sec, burst of 10
func WithSubmitRateLimit(perSecond float64, burst int) Option {
	return func(cfg *config) {
		if perSecond > 0 && burst > 0 {
			cfg.submitLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithBeforeTaskStart registers a hook called on the worker right before a
// task body runs. It must not block.
func WithBeforeTaskStart(fn func(TaskInfo)) Option {
	return func(cfg *config) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook called after a task body returns, with the
// task's error (nil on success).
func WithOnTaskEnd(fn func(TaskInfo, error)) Option {
	return func(cfg *config) {
		cfg.onTaskEnd = fn
	}
}
