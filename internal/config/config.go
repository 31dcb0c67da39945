// Package config holds the settings of the rangesum command: defaults,
// RANGESUM_* environment overrides, and validation.
package config

import (
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/utkarsh5026/forkjoin/internal/algorithms"
	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
	"github.com/utkarsh5026/forkjoin/internal/logging"
	"github.com/utkarsh5026/forkjoin/rangesum"
)

// EnvPrefix prefixes every environment variable the command reads.
const EnvPrefix = "RANGESUM_"

// Config is the configuration of a reference run.
type Config struct {
	Start     int64
	End       int64
	Threshold int64
	// Workers is the pool size; 0 means runtime.GOMAXPROCS(0).
	Workers  int
	Quiet    bool
	LogLevel string
	// Timeout bounds the computation; 0 disables it.
	Timeout time.Duration
	PinCPU  bool
	// Backoff names the idle backoff of pool workers.
	Backoff string
	// QueueCapacity bounds the pool's submission queue; 0 leaves it unbounded.
	QueueCapacity int
}

// Default returns the reference invocation: [1, 4] with threshold 2.
func Default() Config {
	return Config{
		Start:     1,
		End:       4,
		Threshold: 2,
		LogLevel:  "info",
		Backoff:   algorithms.BackoffExponential.String(),
	}
}

// BindFlags registers the reference-run flags on fs, using the current
// values of c as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.Int64Var(&c.Start, "start", c.Start, "first integer of the range")
	fs.Int64Var(&c.End, "end", c.End, "last integer of the range (inclusive)")
	fs.Int64Var(&c.Threshold, "threshold", c.Threshold, "widest range (end - start) summed without splitting")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "pool workers (0 = GOMAXPROCS)")
	fs.BoolVarP(&c.Quiet, "quiet", "q", c.Quiet, "suppress the per-task diagnostic lines")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "diagnostic log level (debug, info, warn, error)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "abort the computation after this long (0 = no limit)")
	fs.BoolVar(&c.PinCPU, "pin-cpu", c.PinCPU, "pin each worker to its own CPU core")
	fs.StringVar(&c.Backoff, "backoff", c.Backoff, "idle worker backoff (exponential, jittered, decorrelated)")
	fs.IntVar(&c.QueueCapacity, "queue-capacity", c.QueueCapacity, "bound on queued submissions (0 = unbounded)")
}

// ApplyEnv fills every field whose flag was not set on the command line from
// its RANGESUM_* variable. Priority is flags, then environment, then defaults.
func (c *Config) ApplyEnv(fs *pflag.FlagSet) error {
	return applyEnvOverrides(c, configOverrides, fs)
}

// Validate checks the configuration. A range that is inverted or whose sum
// overflows int64 is reported as a ValidationError, everything else as a
// ConfigError.
func (c Config) Validate() error {
	if err := rangesum.Validate(rangesum.Range{Start: c.Start, End: c.End}); err != nil {
		return err
	}
	if c.Threshold < 1 {
		return apperrors.NewConfigError("threshold must be at least 1, got %d", c.Threshold)
	}
	if c.Workers < 0 {
		return apperrors.NewConfigError("workers must not be negative, got %d", c.Workers)
	}
	if c.Timeout < 0 {
		return apperrors.NewConfigError("timeout must not be negative, got %s", c.Timeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	if _, ok := algorithms.ParseBackoffType(c.Backoff); !ok {
		return apperrors.NewConfigError("unknown backoff %q", c.Backoff)
	}
	if c.QueueCapacity < 0 {
		return apperrors.NewConfigError("queue capacity must not be negative, got %d", c.QueueCapacity)
	}
	return nil
}

// BackoffType resolves Backoff. Validate rejects names it does not know.
func (c Config) BackoffType() algorithms.BackoffType {
	bt, _ := algorithms.ParseBackoffType(c.Backoff)
	return bt
}

// WorkerCount resolves Workers, substituting GOMAXPROCS for 0.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
