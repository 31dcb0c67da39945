package config

import (
	"github.com/spf13/pflag"

	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
)

// BenchConfig is the configuration of the bench command.
type BenchConfig struct {
	// Sizes are the range lengths to sum, each as [1, size].
	Sizes []int64
	// Workers are the pool sizes to compare.
	Workers   []int
	Threshold int64
	Repeats   int
	// MetricsAddr serves Prometheus metrics while the benchmark runs when set.
	MetricsAddr string
	NoColor     bool
}

// DefaultBench returns a sweep over four range sizes and three pool sizes.
func DefaultBench() BenchConfig {
	return BenchConfig{
		Sizes:     []int64{1_000, 100_000, 1_000_000, 10_000_000},
		Workers:   []int{1, 2, 4},
		Threshold: 1024,
		Repeats:   3,
	}
}

// BindFlags registers the bench flags on fs.
func (c *BenchConfig) BindFlags(fs *pflag.FlagSet) {
	fs.Int64SliceVar(&c.Sizes, "sizes", c.Sizes, "range lengths to benchmark")
	fs.IntSliceVar(&c.Workers, "workers", c.Workers, "pool sizes to benchmark")
	fs.Int64Var(&c.Threshold, "threshold", c.Threshold, "split threshold")
	fs.IntVar(&c.Repeats, "repeats", c.Repeats, "runs per combination; the fastest is reported")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")
	fs.BoolVar(&c.NoColor, "no-color", c.NoColor, "disable colored output")
}

// ApplyEnv applies RANGESUM_BENCH_* overrides for flags not set explicitly.
func (c *BenchConfig) ApplyEnv(fs *pflag.FlagSet) error {
	return applyEnvOverrides(c, benchOverrides, fs)
}

// Validate checks the sweep parameters.
func (c BenchConfig) Validate() error {
	if len(c.Sizes) == 0 {
		return apperrors.NewConfigError("at least one size is required")
	}
	for _, s := range c.Sizes {
		if s < 1 {
			return apperrors.NewConfigError("sizes must be positive, got %d", s)
		}
	}
	if len(c.Workers) == 0 {
		return apperrors.NewConfigError("at least one worker count is required")
	}
	for _, w := range c.Workers {
		if w < 1 {
			return apperrors.NewConfigError("worker counts must be positive, got %d", w)
		}
	}
	if c.Threshold < 1 {
		return apperrors.NewConfigError("threshold must be at least 1, got %d", c.Threshold)
	}
	if c.Repeats < 1 {
		return apperrors.NewConfigError("repeats must be at least 1, got %d", c.Repeats)
	}
	return nil
}
