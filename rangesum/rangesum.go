package rangesum

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
	"github.com/utkarsh5026/forkjoin/pool"
)

var tracer = otel.Tracer("forkjoin/rangesum")

// Summer runs range sums with a fixed threshold and observer.
// It holds no per-computation state and is safe for concurrent use.
type Summer struct {
	threshold int64
	observer  Observer
}

// New creates a Summer with DefaultThreshold and no observer.
func New(opts ...Option) *Summer {
	s := &Summer{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the configured split threshold.
func (s *Summer) Threshold() int64 {
	return s.threshold
}

// Compute sums [start, end] on p with the given options.
func Compute(ctx context.Context, p *pool.Pool, start, end int64, opts ...Option) (int64, error) {
	return New(opts...).Compute(ctx, p, Range{Start: start, End: end})
}

// Sum sums r on worker w with the default threshold and no observer. It is
// meant to be called from inside a pool task.
func Sum(ctx context.Context, w *pool.Worker, r Range) (int64, error) {
	return New().Sum(ctx, w, r)
}

// Compute validates r, submits the root task to p and waits for the result.
// Invalid ranges fail with apperrors.ValidationError before anything is
// submitted. Failures inside the task tree, including cancellation, come back
// wrapped in apperrors.ComputationError.
func (s *Summer) Compute(ctx context.Context, p *pool.Pool, r Range) (int64, error) {
	ctx, span := tracer.Start(ctx, "rangesum.Compute",
		trace.WithAttributes(
			attribute.Int64("start", r.Start),
			attribute.Int64("end", r.End),
			attribute.Int64("threshold", s.threshold),
		),
	)
	defer span.End()

	if err := Validate(r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	sum, err := pool.Invoke(p, ctx, func(ctx context.Context, w *pool.Worker) (int64, error) {
		return s.Sum(ctx, w, r)
	})
	if err != nil {
		err = apperrors.ComputationError{Cause: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int64("sum", sum))
	span.SetStatus(codes.Ok, "")
	return sum, nil
}

// Sum is the body of one range task. Above the threshold it forks both
// halves on w and joins them left first. An inverted r fails with a
// ValidationError before anything is observed or forked.
func (s *Summer) Sum(ctx context.Context, w *pool.Worker, r Range) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !r.Valid() {
		return 0, Validate(r)
	}

	if s.observer != nil {
		s.observer(r)
	}

	if r.Width() <= s.threshold {
		return SumSequential(r), nil
	}

	lr, rr := Split(r)
	left := pool.Fork(w, ctx, func(ctx context.Context, w *pool.Worker) (int64, error) {
		return s.Sum(ctx, w, lr)
	})
	right := pool.Fork(w, ctx, func(ctx context.Context, w *pool.Worker) (int64, error) {
		return s.Sum(ctx, w, rr)
	})

	leftSum, err := left.Join(w)
	if err != nil {
		// Nothing forked here may outlive this task.
		if !right.Cancel() {
			_, _ = right.Join(w)
		}
		return 0, err
	}

	rightSum, err := right.Join(w)
	if err != nil {
		return 0, err
	}

	return leftSum + rightSum, nil
}
