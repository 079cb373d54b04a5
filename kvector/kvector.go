// Package kvector produces the deterministic test vectors fed into blocks
// under test, one per element type.
//
// Integer vectors are ramps that straddle zero for signed types and start
// above zero for unsigned ones. Float vectors are evenly spaced over
// [10, 20]. Complex vectors pair up an evenly spaced real sequence of
// twice the length.
package kvector

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"

	"github.com/birdayz/kflow/kdtype"
)

const (
	spanLow  = 10.0
	spanHigh = 20.0

	// FloatLen is the sample count of float and complex vectors.
	FloatLen = 123
)

var (
	mu      sync.Mutex
	vectors = make(map[kdtype.ElementType]any)
	scalars = make(map[kdtype.ElementType]any)
)

// For returns the test vector of T. The result is a fresh copy owned by the
// caller.
func For[T kdtype.Number]() []T {
	return Generate(kdtype.Of[T]()).([]T)
}

// Generate returns the test vector of t as a []T for the Go type of t. The
// result is a fresh copy owned by the caller. Generate panics for an invalid
// element type.
func Generate(t kdtype.ElementType) any {
	mu.Lock()
	defer mu.Unlock()

	v, ok := vectors[t]
	if !ok {
		v = build(t)
		vectors[t] = v
	}
	return clone(v)
}

// Scalars returns the real-valued scalar sequence behind the test vector of
// t: for complex types the 2*FloatLen interleaved (re, im) components, for
// all other types the vector itself.
func Scalars(t kdtype.ElementType) any {
	if !t.IsComplex() {
		return Generate(t)
	}

	mu.Lock()
	defer mu.Unlock()

	s, ok := scalars[t]
	if !ok {
		s = buildScalars(t.Component(), 2*FloatLen)
		scalars[t] = s
	}
	return clone(s)
}

// Len returns the length of the test vector of t.
func Len(t kdtype.ElementType) int {
	switch t {
	case kdtype.Int8:
		return 11
	case kdtype.Int16, kdtype.Int32, kdtype.Int64:
		return 51
	case kdtype.Uint8:
		return 9
	case kdtype.Uint16, kdtype.Uint32, kdtype.Uint64:
		return 76
	case kdtype.Float32, kdtype.Float64, kdtype.Complex64, kdtype.Complex128:
		return FloatLen
	}
	return 0
}

func build(t kdtype.ElementType) any {
	n := Len(t)
	switch t {
	case kdtype.Int8:
		return ramp[int8](-5, n)
	case kdtype.Int16:
		return ramp[int16](-25, n)
	case kdtype.Int32:
		return ramp[int32](-25, n)
	case kdtype.Int64:
		return ramp[int64](-25, n)
	case kdtype.Uint8:
		return ramp[uint8](5, n)
	case kdtype.Uint16:
		return ramp[uint16](25, n)
	case kdtype.Uint32:
		return ramp[uint32](25, n)
	case kdtype.Uint64:
		return ramp[uint64](25, n)
	case kdtype.Float32, kdtype.Float64:
		return buildScalars(t, n)
	case kdtype.Complex64:
		return pairs[complex64](span(2 * n))
	case kdtype.Complex128:
		return pairs[complex128](span(2 * n))
	}
	panic(fmt.Sprintf("kvector: no test vector for %v", t))
}

func buildScalars(t kdtype.ElementType, n int) any {
	if t == kdtype.Float32 {
		return convert[float32](span(n))
	}
	return span(n)
}

func ramp[T constraints.Integer](start, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(start + i)
	}
	return out
}

// span returns n evenly spaced samples over [spanLow, spanHigh], both ends
// included.
func span(n int) []float64 {
	return floats.Span(make([]float64, n), spanLow, spanHigh)
}

func convert[T constraints.Float](in []float64) []T {
	out := make([]T, len(in))
	for i, f := range in {
		out[i] = T(f)
	}
	return out
}

func pairs[C constraints.Complex](in []float64) []C {
	out := make([]C, len(in)/2)
	for i := range out {
		out[i] = C(complex(in[2*i], in[2*i+1]))
	}
	return out
}

func clone(v any) any {
	src := reflect.ValueOf(v)
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(dst, src)
	return dst.Interface()
}
