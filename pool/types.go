package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/utkarsh5026/forkjoin/internal/scheduler"
)

// Func is the body of a fork/join task.
//
// w is the worker executing the task. Pass it to Fork to spawn subtasks onto
// that worker's deque and to Join to wait for them while helping with other work.
// ctx is the context the task was submitted or forked with.
type Func[R any] func(ctx context.Context, w *Worker) (R, error)

// TaskInfo describes a task execution to hooks.
type TaskInfo struct {
	ID       uint64
	WorkerID int
	// Stolen is true when the worker took the task from another worker's deque.
	Stolen bool
	// Duration is zero in BeforeTaskStart.
	Duration time.Duration
}

var (
	// ErrPoolNotStarted is returned by Submit and Shutdown before Start.
	ErrPoolNotStarted = errors.New("pool not started")
	// ErrPoolClosed is returned by Submit once Shutdown has begun.
	ErrPoolClosed = errors.New("pool shut down")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("pool already started")
	// ErrAlreadyShutdown is returned by a second Shutdown.
	ErrAlreadyShutdown = errors.New("pool already shut down")
	// ErrShutdownTimeout is returned when workers did not drain in time.
	ErrShutdownTimeout = errors.New("pool shutdown timed out")
	// ErrTaskCanceled is the error of a task cancelled before it ran.
	ErrTaskCanceled = errors.New("task cancelled")
	// ErrQueueFull is returned by Submit when a bounded submission queue
	// (WithInjectorCapacity) is full.
	ErrQueueFull = scheduler.ErrQueueFull
)

// TaskPanicError carries a panic recovered from a task body.
type TaskPanicError struct {
	Value any
	Stack []byte
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("task panic: %v\nstack trace:\n%s", e.Value, e.Stack)
}
