package rangesum

import (
	"fmt"
	"math/big"

	apperrors "github.com/utkarsh5026/forkjoin/internal/errors"
)

// Range is an inclusive integer interval [Start, End].
type Range struct {
	Start int64
	End   int64
}

// Width is End - Start, the quantity compared against the threshold.
func (r Range) Width() int64 {
	return r.End - r.Start
}

// Len is the number of integers in the range.
func (r Range) Len() int64 {
	return r.End - r.Start + 1
}

// Valid reports whether Start <= End.
func (r Range) Valid() bool {
	return r.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// Split divides r at middle = (Start+End)/2 into [Start, middle] and
// [middle+1, End]. Division truncates toward zero.
func Split(r Range) (left, right Range) {
	middle := (r.Start + r.End) / 2
	return Range{Start: r.Start, End: middle}, Range{Start: middle + 1, End: r.End}
}

// SumSequential adds every integer of r in order. An inverted r is empty
// and sums to 0.
func SumSequential(r Range) int64 {
	var sum int64
	if !r.Valid() {
		return 0
	}
	for i := r.Start; ; i++ {
		sum += i
		if i == r.End {
			return sum
		}
	}
}

// ClosedForm returns Len * (Start+End) / 2 for a valid r. The even factor is
// halved first so no intermediate value is larger than the result.
func ClosedForm(r Range) int64 {
	n := r.Len()
	if n%2 == 0 {
		return (n / 2) * (r.Start + r.End)
	}
	// Odd length: Start+End is even, and its half is the middle element.
	return n * (r.Start + r.Width()/2)
}

// Validate rejects inverted ranges and ranges whose sum does not fit in an
// int64.
func Validate(r Range) error {
	if !r.Valid() {
		return apperrors.ValidationError{
			Field:   "range",
			Message: fmt.Sprintf("start %d is greater than end %d", r.Start, r.End),
		}
	}

	n := new(big.Int).Sub(big.NewInt(r.End), big.NewInt(r.Start))
	n.Add(n, big.NewInt(1))
	sum := new(big.Int).Add(big.NewInt(r.Start), big.NewInt(r.End))
	sum.Mul(sum, n).Quo(sum, big.NewInt(2))
	if !sum.IsInt64() || !n.IsInt64() {
		return apperrors.ValidationError{
			Field:   "range",
			Message: fmt.Sprintf("sum of %s overflows int64", r),
		}
	}
	return nil
}
