package rangesum

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
	"github.com/utkarsh5026/forkjoin/pool"
)

func newPool(t *testing.T, workers int) *pool.Pool {
	t.Helper()
	p := pool.New(pool.WithWorkerCount(workers))
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, p.Shutdown(5*time.Second))
	})
	return p
}

// recorder collects observed ranges from concurrent tasks.
type recorder struct {
	mu     sync.Mutex
	ranges []Range
}

func (r *recorder) observe(rg Range) {
	r.mu.Lock()
	r.ranges = append(r.ranges, rg)
	r.mu.Unlock()
}

func (r *recorder) sorted() []Range {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Range(nil), r.ranges...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End > out[j].End
	})
	return out
}

func TestCompute(t *testing.T) {
	p := newPool(t, 4)

	tests := []struct {
		name       string
		start, end int64
		want       int64
	}{
		{name: "reference", start: 1, end: 4, want: 10},
		{name: "single element", start: 5, end: 5, want: 5},
		{name: "at threshold", start: 1, end: 2, want: 3},
		{name: "one above threshold", start: 1, end: 3, want: 6},
		{name: "hundred", start: 1, end: 100, want: 5050},
		{name: "thousand", start: 1, end: 1000, want: 500500},
		{name: "negative", start: -10, end: -1, want: -55},
		{name: "straddles zero", start: -7, end: 7, want: 0},
		{name: "zero", start: 0, end: 0, want: 0},
		{name: "large", start: 1, end: 200_000, want: 20_000_100_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(context.Background(), p, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_Diagnostics(t *testing.T) {
	p := newPool(t, 2)

	tests := []struct {
		name       string
		start, end int64
		want       []Range
	}{
		{
			name:  "reference splits once",
			start: 1,
			end:   4,
			want:  []Range{{1, 4}, {1, 2}, {3, 4}},
		},
		{
			name:  "one above threshold",
			start: 1,
			end:   3,
			want:  []Range{{1, 3}, {1, 2}, {3, 3}},
		},
		{
			name:  "base case emits one line",
			start: 1,
			end:   2,
			want:  []Range{{1, 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			_, err := Compute(context.Background(), p, tt.start, tt.end, WithObserver(rec.observe))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.sorted())
		})
	}
}

func TestCompute_ParentObservedBeforeChildren(t *testing.T) {
	p := newPool(t, 4)

	var mu sync.Mutex
	seen := map[Range]bool{}
	var orphans []Range

	_, err := Compute(context.Background(), p, 1, 64, WithThreshold(1), WithObserver(func(r Range) {
		mu.Lock()
		defer mu.Unlock()
		seen[r] = true
		if r != (Range{1, 64}) && !seen[parentOf(r, Range{1, 64})] {
			orphans = append(orphans, r)
		}
	}))
	require.NoError(t, err)
	assert.Empty(t, orphans, "child observed before its parent")
}

// parentOf walks the split tree of root to find the range that produced r.
func parentOf(r, root Range) Range {
	cur := root
	for {
		left, right := Split(cur)
		switch {
		case left == r || right == r:
			return cur
		case r.End <= left.End:
			cur = left
		default:
			cur = right
		}
	}
}

func TestCompute_Thresholds(t *testing.T) {
	p := newPool(t, 3)

	for _, threshold := range []int64{1, 2, 3, 7, 64, 1 << 20} {
		t.Run(fmt.Sprintf("threshold=%d", threshold), func(t *testing.T) {
			rec := &recorder{}
			got, err := Compute(context.Background(), p, -500, 1234,
				WithThreshold(threshold), WithObserver(rec.observe))
			require.NoError(t, err)
			assert.Equal(t, ClosedForm(Range{-500, 1234}), got)

			for _, r := range rec.sorted() {
				assert.True(t, r.Valid(), "observed invalid range %v", r)
			}
		})
	}
}

func TestWithThreshold_IgnoresNonPositive(t *testing.T) {
	assert.Equal(t, DefaultThreshold, New(WithThreshold(0)).Threshold())
	assert.Equal(t, DefaultThreshold, New(WithThreshold(-3)).Threshold())
	assert.Equal(t, int64(9), New(WithThreshold(9)).Threshold())
}

func TestCompute_InvalidRange(t *testing.T) {
	p := newPool(t, 1)

	tests := []struct {
		name       string
		start, end int64
	}{
		{name: "inverted", start: 5, end: 1},
		{name: "sum overflows", start: 1, end: math.MaxInt64},
		{name: "length overflows", start: math.MinInt64, end: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			_, err := Compute(context.Background(), p, tt.start, tt.end, WithObserver(rec.observe))

			var vErr apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "range", vErr.Field)
			assert.Empty(t, rec.sorted(), "no task should run for an invalid range")
		})
	}

	assert.Zero(t, p.Stats().Submitted)
}

func TestCompute_Cancelled(t *testing.T) {
	p := newPool(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compute(ctx, p, 1, 4)
	require.Error(t, err)
	assert.True(t, apperrors.IsContextError(err), "expected a context error, got %v", err)
}

func TestCompute_CancelMidway(t *testing.T) {
	p := newPool(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	_, err := Compute(ctx, p, 1, 1<<14, WithObserver(func(r Range) {
		if r.Width() <= DefaultThreshold {
			once.Do(cancel)
		}
	}))

	var compErr apperrors.ComputationError
	require.ErrorAs(t, err, &compErr)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCompute_Idempotent(t *testing.T) {
	p := newPool(t, 4)

	first, err := Compute(context.Background(), p, 3, 977)
	require.NoError(t, err)

	for range 10 {
		got, err := Compute(context.Background(), p, 3, 977)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestCompute_ConcurrentCallers(t *testing.T) {
	p := newPool(t, 4)

	ranges := []Range{{1, 4}, {1, 1000}, {-300, 300}, {500, 5000}, {1, 4}, {2, 3}, {-50, 10}, {1, 1000}}

	var wg sync.WaitGroup
	errs := make(chan error, len(ranges)*4)
	for i := range 4 {
		for _, r := range ranges {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := New(WithThreshold(int64(i+1))).Compute(context.Background(), p, r)
				if err != nil {
					errs <- err
					return
				}
				if want := ClosedForm(r); got != want {
					errs <- fmt.Errorf("%v: got %d, want %d", r, got, want)
				}
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestSum_InsideTask(t *testing.T) {
	p := newPool(t, 2)

	got, err := pool.Invoke(p, context.Background(), func(ctx context.Context, w *pool.Worker) (int64, error) {
		return Sum(ctx, w, Range{Start: 1, End: 4})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)
}

func TestSum_InvertedRangeInsideTask(t *testing.T) {
	p := newPool(t, 2)

	var rec recorder
	s := New(WithObserver(rec.observe))

	task, err := pool.Submit(p, context.Background(), func(ctx context.Context, w *pool.Worker) (int64, error) {
		return s.Sum(ctx, w, Range{Start: 5, End: 1})
	})
	require.NoError(t, err)

	_, err = task.GetWithTimeout(2 * time.Second)
	var valErr apperrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "range", valErr.Field)
	assert.Empty(t, rec.sorted(), "an invalid range must not be observed")

	_, err = pool.Invoke(p, context.Background(), func(ctx context.Context, w *pool.Worker) (int64, error) {
		return Sum(ctx, w, Range{Start: 0, End: -1})
	})
	assert.ErrorAs(t, err, &valErr)
}
