package kbuffer

import (
	"fmt"
	"slices"

	"github.com/birdayz/kflow/kdtype"
)

// FromSlice packs samples into a Chunk of dt. Every dt.Samples() consecutive
// samples form one element, so the chunk holds len(samples)/dt.Samples()
// elements. ErrInvalidSize is returned if the sample count is not evenly
// divisible.
//
// The element type of dt must be exactly T. A mismatch is a programming
// error and panics.
func FromSlice[T kdtype.Number](dt kdtype.DType, samples []T) (Chunk, error) {
	if got := kdtype.Of[T](); got != dt.Type {
		panic(fmt.Sprintf("kbuffer: FromSlice of []%s into %s chunk", got, dt))
	}
	if dt.Dimension < 1 {
		return Chunk{}, fmt.Errorf("%w: dimension %d", kdtype.ErrInvalidDimension, dt.Dimension)
	}
	if len(samples)%dt.Samples() != 0 {
		return Chunk{}, fmt.Errorf("%w: %d samples into %s", ErrInvalidSize, len(samples), dt)
	}
	return Chunk{dtype: dt, data: slices.Clone(samples)}, nil
}

// MustFromSlice is like FromSlice but panics on error.
func MustFromSlice[T kdtype.Number](dt kdtype.DType, samples []T) Chunk {
	c, err := FromSlice(dt, samples)
	if err != nil {
		panic(err)
	}
	return c
}

// View returns the scalars of c without copying. The element type of c must
// be exactly T.
func View[T kdtype.Number](c Chunk) []T {
	if c.IsZero() {
		return nil
	}
	s, ok := c.data.([]T)
	if !ok {
		panic(fmt.Sprintf("kbuffer: View as []%s of %s chunk", kdtype.Of[T](), c.dtype))
	}
	return s
}

// Values returns a copy of the scalars of c.
func Values[T kdtype.Number](c Chunk) []T {
	return slices.Clone(View[T](c))
}

// ToChunk is the type-erased form of FromSlice: samples must be a []T whose
// element type is dt.Type. A mismatch is reported as ErrTypeMismatch.
func ToChunk(dt kdtype.DType, samples any) (Chunk, error) {
	if got := SliceType(samples); got != dt.Type {
		return Chunk{}, fmt.Errorf("%w: %T into %s", ErrTypeMismatch, samples, dt)
	}
	switch s := samples.(type) {
	case []int8:
		return FromSlice(dt, s)
	case []int16:
		return FromSlice(dt, s)
	case []int32:
		return FromSlice(dt, s)
	case []int64:
		return FromSlice(dt, s)
	case []uint8:
		return FromSlice(dt, s)
	case []uint16:
		return FromSlice(dt, s)
	case []uint32:
		return FromSlice(dt, s)
	case []uint64:
		return FromSlice(dt, s)
	case []float32:
		return FromSlice(dt, s)
	case []float64:
		return FromSlice(dt, s)
	case []complex64:
		return FromSlice(dt, s)
	default:
		return FromSlice(dt, s.([]complex128))
	}
}

// FromInterleaved packs interleaved (re, im) scalar pairs into a Chunk of a
// complex dtype. scalars must be []float32 for complex64 and []float64 for
// complex128. Each pair is one complex sample, so 246 scalars give 123
// samples for both complex64 and complex64[2]. The scalar count must be
// divisible by the dimension.
func FromInterleaved(dt kdtype.DType, scalars any) (Chunk, error) {
	if !dt.Type.IsComplex() {
		return Chunk{}, fmt.Errorf("%w: interleaved scalars need a complex dtype, got %s", ErrTypeMismatch, dt)
	}
	if got := SliceType(scalars); got != dt.Type.Component() {
		return Chunk{}, fmt.Errorf("%w: %T into %s", ErrTypeMismatch, scalars, dt)
	}
	switch s := scalars.(type) {
	case []float32:
		if err := checkInterleaved(dt, len(s)); err != nil {
			return Chunk{}, err
		}
		return FromSlice(dt, pairUp[float32, complex64](s))
	default:
		f := s.([]float64)
		if err := checkInterleaved(dt, len(f)); err != nil {
			return Chunk{}, err
		}
		return FromSlice(dt, pairUp[float64, complex128](f))
	}
}

func checkInterleaved(dt kdtype.DType, n int) error {
	if n%2 != 0 {
		return fmt.Errorf("%w: odd scalar count %d", ErrInvalidSize, n)
	}
	if n%(2*dt.Samples()) != 0 {
		return fmt.Errorf("%w: %d scalars into %s", ErrInvalidSize, n, dt)
	}
	return nil
}

func pairUp[F kdtype.Float, C kdtype.Complex](s []F) []C {
	out := make([]C, len(s)/2)
	for i := range out {
		out[i] = C(complex(float64(s[2*i]), float64(s[2*i+1])))
	}
	return out
}

// SliceType returns the element type of a []T of a numeric Go type, or
// kdtype.Invalid for anything else.
func SliceType(v any) kdtype.ElementType {
	switch v.(type) {
	case []int8:
		return kdtype.Int8
	case []int16:
		return kdtype.Int16
	case []int32:
		return kdtype.Int32
	case []int64:
		return kdtype.Int64
	case []uint8:
		return kdtype.Uint8
	case []uint16:
		return kdtype.Uint16
	case []uint32:
		return kdtype.Uint32
	case []uint64:
		return kdtype.Uint64
	case []float32:
		return kdtype.Float32
	case []float64:
		return kdtype.Float64
	case []complex64:
		return kdtype.Complex64
	case []complex128:
		return kdtype.Complex128
	}
	return kdtype.Invalid
}
