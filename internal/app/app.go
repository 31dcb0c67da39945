// Package app wires configuration, logging, the pool and the range-sum task
// into the runs the rangesum command offers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/utkarsh5026/forkjoin/internal/config"
	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
	"github.com/utkarsh5026/forkjoin/internal/logging"
	"github.com/utkarsh5026/forkjoin/pool"
)

// shutdownTimeout bounds how long a run waits for pool workers to drain.
const shutdownTimeout = 5 * time.Second

// Version is set at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

// withSignals returns ctx cancelled on SIGINT or SIGTERM, further bounded by
// timeout when it is positive.
func withSignals(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// newLogger builds the stderr console logger for a run.
func newLogger(w io.Writer, component, level string) logging.Logger {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		lvl, _ = logging.ParseLevel("")
	}
	return logging.NewConsoleLogger(w, component, lvl)
}

// startPool creates and starts a pool sized from cfg.
func startPool(ctx context.Context, cfg config.Config, logger logging.Logger, extra ...pool.Option) (*pool.Pool, error) {
	opts := []pool.Option{
		pool.WithWorkerCount(cfg.WorkerCount()),
		pool.WithLogger(logger),
		pool.WithIdleBackoff(cfg.BackoffType(), 0, 0),
		pool.WithInjectorCapacity(cfg.QueueCapacity),
	}
	if cfg.PinCPU {
		opts = append(opts, pool.WithCPUAffinity())
	}
	opts = append(opts, extra...)

	p := pool.New(opts...)
	if err := p.Start(ctx); err != nil {
		return nil, apperrors.WrapError(err, "starting pool")
	}
	return p, nil
}

// stopPool shuts p down and logs, rather than returns, a slow drain.
func stopPool(p *pool.Pool, logger logging.Logger) {
	if err := p.Shutdown(shutdownTimeout); err != nil {
		logger.Warn("pool shutdown", logging.Err(err))
	}
}

// reportFailure logs err and writes its trace to w. A panic carries the
// stack of the panicking task, which the log line already includes; any
// other failure is traced through its chain of causes.
func reportFailure(w io.Writer, logger logging.Logger, err error) {
	logger.Error("computation failed", err)

	var panicErr *pool.TaskPanicError
	if errors.As(err, &panicErr) {
		return
	}
	_, _ = fmt.Fprintln(w, err)
	writeCauses(w, err, 1)
}

// writeCauses prints every error wrapped by err, one "caused by" line per
// error, indented by depth. Errors joined with several %w verbs each get
// their own branch.
func writeCauses(w io.Writer, err error, depth int) {
	var causes []error
	switch e := err.(type) {
	case interface{ Unwrap() error }:
		if c := e.Unwrap(); c != nil {
			causes = []error{c}
		}
	case interface{ Unwrap() []error }:
		causes = e.Unwrap()
	}

	for _, c := range causes {
		_, _ = fmt.Fprintf(w, "%scaused by: %v\n", strings.Repeat("\t", depth), c)
		writeCauses(w, c, depth+1)
	}
}

// asTimeout reports deadline expiry as a TimeoutError when a limit was set.
func asTimeout(err error, limit time.Duration) error {
	if limit > 0 && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", apperrors.TimeoutError{Operation: "rangesum", Limit: limit}, err)
	}
	return err
}
