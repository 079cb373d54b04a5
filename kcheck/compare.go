package kcheck

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/cmplxs/cscalar"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/birdayz/kflow/kbuffer"
)

// DefaultEpsilon is the absolute tolerance for float and complex
// comparisons.
const DefaultEpsilon = 1e-6

var (
	ErrLengthMismatch = errors.New("kcheck: length mismatch")
	ErrTypeMismatch   = errors.New("kcheck: element type mismatch")
)

// MismatchError reports the first element that differs from its expected
// value.
type MismatchError struct {
	// Index is the scalar index, counting every lane of vector elements.
	Index    int
	Expected any
	Actual   any
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("kcheck: scalar %d: expected %v, actual %v", e.Index, e.Expected, e.Actual)
}

// CompareChunk compares the scalars of c with expected, which must be a []T
// of c's element type. Integers must match exactly; float and complex
// scalars may differ by up to eps.
func CompareChunk(c kbuffer.Chunk, expected any, eps float64) error {
	if want := kbuffer.SliceType(expected); want != c.DType().Type {
		return fmt.Errorf("%w: %s chunk against %T", ErrTypeMismatch, c.DType(), expected)
	}
	switch want := expected.(type) {
	case []int8:
		return compareExact(kbuffer.View[int8](c), want)
	case []int16:
		return compareExact(kbuffer.View[int16](c), want)
	case []int32:
		return compareExact(kbuffer.View[int32](c), want)
	case []int64:
		return compareExact(kbuffer.View[int64](c), want)
	case []uint8:
		return compareExact(kbuffer.View[uint8](c), want)
	case []uint16:
		return compareExact(kbuffer.View[uint16](c), want)
	case []uint32:
		return compareExact(kbuffer.View[uint32](c), want)
	case []uint64:
		return compareExact(kbuffer.View[uint64](c), want)
	case []float32:
		return compareFloat(kbuffer.View[float32](c), want, eps)
	case []float64:
		return compareFloat(kbuffer.View[float64](c), want, eps)
	case []complex64:
		return compareComplex(kbuffer.View[complex64](c), want, eps)
	case []complex128:
		return compareComplex(kbuffer.View[complex128](c), want, eps)
	}
	return fmt.Errorf("%w: %T", ErrTypeMismatch, expected)
}

func compareExact[T constraints.Integer](got, want []T) error {
	return compare(got, want, func(a, b T) bool { return a == b })
}

func compareFloat[T constraints.Float](got, want []T, eps float64) error {
	return compare(got, want, func(a, b T) bool {
		return scalar.EqualWithinAbs(float64(a), float64(b), eps)
	})
}

func compareComplex[T constraints.Complex](got, want []T, eps float64) error {
	return compare(got, want, func(a, b T) bool {
		return cscalar.EqualWithinAbs(complex128(a), complex128(b), eps)
	})
}

func compare[T any](got, want []T, equal func(a, b T) bool) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: expected %d scalars, actual %d", ErrLengthMismatch, len(want), len(got))
	}
	for i := range want {
		if !equal(got[i], want[i]) {
			return &MismatchError{Index: i, Expected: want[i], Actual: got[i]}
		}
	}
	return nil
}
