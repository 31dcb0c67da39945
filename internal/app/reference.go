package app

import (
	"context"
	"fmt"
	"io"

	"github.com/utkarsh5026/forkjoin/internal/config"
	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
	"github.com/utkarsh5026/forkjoin/rangesum"
)

// RunReference sums the configured range and writes the result to out with
// no trailing newline. Per-task diagnostics and failures go to errOut.
//
// Only configuration errors produce a non-zero exit code. A failed or
// interrupted computation is reported on errOut and the run still exits 0,
// without a result.
func RunReference(ctx context.Context, cfg config.Config, out, errOut io.Writer) int {
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}

	logger := newLogger(errOut, "rangesum", cfg.LogLevel)

	ctx, cancel := withSignals(ctx, cfg.Timeout)
	defer cancel()

	p, err := startPool(ctx, cfg, logger)
	if err != nil {
		reportFailure(errOut, logger, err)
		return apperrors.ExitSuccess
	}
	defer stopPool(p, logger)

	opts := []rangesum.Option{rangesum.WithThreshold(cfg.Threshold)}
	if !cfg.Quiet {
		opts = append(opts, rangesum.WithObserver(rangesum.LogObserver(logger)))
	}

	sum, err := rangesum.Compute(ctx, p, cfg.Start, cfg.End, opts...)
	if err != nil {
		reportFailure(errOut, logger, asTimeout(err, cfg.Timeout))
		return apperrors.ExitSuccess
	}

	_, _ = fmt.Fprint(out, sum)
	return apperrors.ExitSuccess
}
