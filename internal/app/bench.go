package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"

	"github.com/utkarsh5026/forkjoin/internal/config"
	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
	"github.com/utkarsh5026/forkjoin/internal/logging"
	"github.com/utkarsh5026/forkjoin/pool"
	"github.com/utkarsh5026/forkjoin/rangesum"
)

const metricsNamespace = "rangesum"

var errMismatch = errors.New("sum does not match closed form")

// BenchResult is the outcome of one (size, workers) combination.
type BenchResult struct {
	Size    int64
	Workers int
	// Best is the fastest of the repeated runs.
	Best time.Duration
	// Sequential is the time of a single-goroutine SumSequential over the same range.
	Sequential time.Duration
	Sum        int64
	// Verified is true when Sum matches the closed form.
	Verified bool
	Stolen   uint64
	Err      error
}

// Speedup is Sequential / Best, or 0 when either is unknown.
func (r BenchResult) Speedup() float64 {
	if r.Best <= 0 || r.Sequential <= 0 {
		return 0
	}
	return float64(r.Sequential) / float64(r.Best)
}

// RunBench sums [1, size] for every size and pool size in cfg, then renders
// a comparison table to out. Progress goes to errOut.
func RunBench(ctx context.Context, cfg config.BenchConfig, out, errOut io.Writer) int {
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}

	logger := newLogger(errOut, "bench", "info")

	ctx, cancel := withSignals(ctx, 0)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := pool.NewMetrics(reg, metricsNamespace)
	if err != nil {
		logger.Error("registering metrics", err)
		return apperrors.ExitErrorGeneric
	}

	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			logger.Error("metrics listener", err, logging.String("addr", cfg.MetricsAddr))
			return apperrors.ExitErrorConfig
		}
		stop := serveMetrics(ln, reg, logger)
		defer stop()
		logger.Info("serving metrics", logging.String("addr", ln.Addr().String()))
	}

	bar := newProgressBar(len(cfg.Sizes)*len(cfg.Workers)*cfg.Repeats, errOut)
	results, err := runSweep(ctx, cfg, metrics, func(desc string) {
		bar.Describe(desc)
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	_, _ = fmt.Fprintln(errOut)

	if err != nil {
		logger.Error("benchmark interrupted", err)
		return apperrors.ExitCodeFor(err)
	}

	renderBench(out, cfg, results)

	for _, r := range results {
		if !r.Verified {
			return apperrors.ExitErrorGeneric
		}
	}
	return apperrors.ExitSuccess
}

// runSweep runs every combination. step is called after each timed run.
// It stops early only when ctx ends; a failing combination is recorded in
// its BenchResult.
func runSweep(ctx context.Context, cfg config.BenchConfig, metrics *pool.Metrics, step func(string)) ([]BenchResult, error) {
	sequential := make(map[int64]time.Duration, len(cfg.Sizes))
	for _, size := range cfg.Sizes {
		start := time.Now()
		_ = rangesum.SumSequential(rangesum.Range{Start: 1, End: size})
		sequential[size] = time.Since(start)
	}

	summer := rangesum.New(rangesum.WithThreshold(cfg.Threshold))
	results := make([]BenchResult, 0, len(cfg.Sizes)*len(cfg.Workers))

	for _, workers := range cfg.Workers {
		p := pool.New(pool.WithWorkerCount(workers), pool.WithMetrics(metrics))
		if err := p.Start(ctx); err != nil {
			return nil, err
		}

		for _, size := range cfg.Sizes {
			res := benchOne(ctx, p, summer, size, cfg.Repeats, func() {
				step(fmt.Sprintf("workers=%d size=%d", workers, size))
			})
			res.Workers = workers
			res.Sequential = sequential[size]
			results = append(results, res)

			if err := ctx.Err(); err != nil {
				_ = p.Shutdown(shutdownTimeout)
				return nil, err
			}
		}

		if err := p.Shutdown(shutdownTimeout); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func benchOne(ctx context.Context, p *pool.Pool, summer *rangesum.Summer, size int64, repeats int, step func()) BenchResult {
	r := rangesum.Range{Start: 1, End: size}
	res := BenchResult{Size: size}
	stolenBefore := p.Stats().Stolen

	for range repeats {
		start := time.Now()
		sum, err := summer.Compute(ctx, p, r)
		elapsed := time.Since(start)
		step()

		if err != nil {
			res.Err = err
			return res
		}
		if res.Best == 0 || elapsed < res.Best {
			res.Best = elapsed
		}
		res.Sum = sum
	}

	res.Verified = res.Sum == rangesum.ClosedForm(r)
	if !res.Verified {
		res.Err = fmt.Errorf("%w: got %d, want %d", errMismatch, res.Sum, rangesum.ClosedForm(r))
	}
	res.Stolen = p.Stats().Stolen - stolenBefore
	return res
}

func newProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Benchmarking"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// serveMetrics serves reg on ln under /metrics until the returned stop
// function is called.
func serveMetrics(ln net.Listener, reg *prometheus.Registry, logger logging.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}
}
