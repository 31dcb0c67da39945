package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/forkjoin/internal/config"
	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
	"github.com/utkarsh5026/forkjoin/pool"
	"github.com/utkarsh5026/forkjoin/rangesum"
)

// ParseRange parses "START:END" into a range.
func ParseRange(s string) (rangesum.Range, error) {
	start, end, ok := strings.Cut(s, ":")
	if !ok {
		return rangesum.Range{}, apperrors.NewConfigError("range %q: want START:END", s)
	}

	a, err := strconv.ParseInt(strings.TrimSpace(start), 10, 64)
	if err != nil {
		return rangesum.Range{}, apperrors.NewConfigError("range %q: bad start: %v", s, err)
	}
	b, err := strconv.ParseInt(strings.TrimSpace(end), 10, 64)
	if err != nil {
		return rangesum.Range{}, apperrors.NewConfigError("range %q: bad end: %v", s, err)
	}

	r := rangesum.Range{Start: a, End: b}
	if err := rangesum.Validate(r); err != nil {
		return rangesum.Range{}, err
	}
	return r, nil
}

// ComputeAll sums every range concurrently on p as independent root tasks.
// Results are in input order. The first failure cancels the rest.
func ComputeAll(ctx context.Context, p *pool.Pool, ranges []rangesum.Range, opts ...rangesum.Option) ([]int64, error) {
	summer := rangesum.New(opts...)
	sums := make([]int64, len(ranges))

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		g.Go(func() error {
			sum, err := summer.Compute(ctx, p, r)
			if err != nil {
				return apperrors.WrapError(err, "range %s", r)
			}
			sums[i] = sum
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

// RunBatch sums each "START:END" argument and prints one "RANGE SUM" line
// per argument. Unlike the reference run it reports failures through the
// exit code.
func RunBatch(ctx context.Context, cfg config.Config, args []string, out, errOut io.Writer) int {
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}

	ranges := make([]rangesum.Range, 0, len(args))
	for _, a := range args {
		r, err := ParseRange(a)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			return apperrors.ExitErrorConfig
		}
		ranges = append(ranges, r)
	}

	logger := newLogger(errOut, "rangesum", cfg.LogLevel)

	ctx, cancel := withSignals(ctx, cfg.Timeout)
	defer cancel()

	p, err := startPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("batch failed", err)
		return apperrors.ExitCodeFor(err)
	}
	defer stopPool(p, logger)

	opts := []rangesum.Option{rangesum.WithThreshold(cfg.Threshold)}
	if !cfg.Quiet {
		opts = append(opts, rangesum.WithObserver(rangesum.LogObserver(logger)))
	}

	sums, err := ComputeAll(ctx, p, ranges, opts...)
	if err != nil {
		err = asTimeout(err, cfg.Timeout)
		logger.Error("batch failed", err)
		return apperrors.ExitCodeFor(err)
	}

	for i, r := range ranges {
		_, _ = fmt.Fprintf(out, "%s %d\n", r, sums[i])
	}
	return apperrors.ExitSuccess
}
