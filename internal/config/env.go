package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
)

// envOverride maps one environment variable (without EnvPrefix) to the flag
// it shadows and the setter that parses it.
type envOverride[C any] struct {
	envKey string
	flag   string
	apply  func(c *C, v string) error
}

var configOverrides = []envOverride[Config]{
	{"START", "start", func(c *Config, v string) (err error) {
		c.Start, err = strconv.ParseInt(v, 10, 64)
		return err
	}},
	{"END", "end", func(c *Config, v string) (err error) {
		c.End, err = strconv.ParseInt(v, 10, 64)
		return err
	}},
	{"THRESHOLD", "threshold", func(c *Config, v string) (err error) {
		c.Threshold, err = strconv.ParseInt(v, 10, 64)
		return err
	}},
	{"WORKERS", "workers", func(c *Config, v string) (err error) {
		c.Workers, err = strconv.Atoi(v)
		return err
	}},
	{"TIMEOUT", "timeout", func(c *Config, v string) (err error) {
		c.Timeout, err = time.ParseDuration(v)
		return err
	}},
	{"LOG_LEVEL", "log-level", func(c *Config, v string) error {
		c.LogLevel = v
		return nil
	}},
	{"QUIET", "quiet", func(c *Config, v string) (err error) {
		c.Quiet, err = parseBool(v)
		return err
	}},
	{"PIN_CPU", "pin-cpu", func(c *Config, v string) (err error) {
		c.PinCPU, err = parseBool(v)
		return err
	}},
	{"BACKOFF", "backoff", func(c *Config, v string) error {
		c.Backoff = strings.ToLower(strings.TrimSpace(v))
		return nil
	}},
	{"QUEUE_CAPACITY", "queue-capacity", func(c *Config, v string) (err error) {
		c.QueueCapacity, err = strconv.Atoi(v)
		return err
	}},
}

var benchOverrides = []envOverride[BenchConfig]{
	{"BENCH_SIZES", "sizes", func(c *BenchConfig, v string) (err error) {
		c.Sizes, err = parseList(v, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		return err
	}},
	{"BENCH_WORKERS", "workers", func(c *BenchConfig, v string) (err error) {
		c.Workers, err = parseList(v, strconv.Atoi)
		return err
	}},
	{"BENCH_THRESHOLD", "threshold", func(c *BenchConfig, v string) (err error) {
		c.Threshold, err = strconv.ParseInt(v, 10, 64)
		return err
	}},
	{"BENCH_REPEATS", "repeats", func(c *BenchConfig, v string) (err error) {
		c.Repeats, err = strconv.Atoi(v)
		return err
	}},
	{"METRICS_ADDR", "metrics-addr", func(c *BenchConfig, v string) error {
		c.MetricsAddr = v
		return nil
	}},
}

// applyEnvOverrides applies every override whose flag was not changed on the
// command line. An unparsable value is a ConfigError naming the variable.
func applyEnvOverrides[C any](c *C, overrides []envOverride[C], fs *pflag.FlagSet) error {
	for _, o := range overrides {
		if fs != nil && fs.Changed(o.flag) {
			continue
		}
		val := os.Getenv(EnvPrefix + o.envKey)
		if val == "" {
			continue
		}
		if err := o.apply(c, val); err != nil {
			return apperrors.NewConfigError("invalid %s%s=%q: %v", EnvPrefix, o.envKey, val, err)
		}
	}
	return nil
}

// parseBool accepts "true", "1", "yes" and "false", "0", "no" (case-insensitive).
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func parseList[T any](v string, parse func(string) (T, error)) ([]T, error) {
	parts := strings.Split(v, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		x, err := parse(p)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}
