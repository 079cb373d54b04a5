package blocks

import (
	"fmt"
	"reflect"

	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kdtype"
)

// kernel is an element-wise scalar operation, given once per type family.
// Integers are widened to 64 bits and truncated back, which matches the
// wrapping arithmetic of the narrow types. A nil function means the family
// is not supported.
type kernel struct {
	signed   func(int64) int64
	unsigned func(uint64) uint64
	float    func(float64) float64
	complex  func(complex128) complex128
}

func (k kernel) supports(t kdtype.ElementType) bool {
	switch {
	case t.IsSigned():
		return k.signed != nil
	case t.IsUnsigned():
		return k.unsigned != nil
	case t.IsFloat():
		return k.float != nil
	case t.IsComplex():
		return k.complex != nil
	}
	return false
}

// check returns kblock.ErrUnsupportedType if k has no function for dt.
func (k kernel) check(dt kdtype.DType) error {
	if !k.supports(dt.Type) {
		return fmt.Errorf("%w: %s", kblock.ErrUnsupportedType, dt)
	}
	return nil
}

// apply maps k over every scalar of in, in order, into a new chunk.
func (k kernel) apply(in kbuffer.Chunk) kbuffer.Chunk {
	dt := in.DType()
	switch s := in.Raw().(type) {
	case []int8:
		return kbuffer.MustFromSlice(dt, mapInts(s, k.signed))
	case []int16:
		return kbuffer.MustFromSlice(dt, mapInts(s, k.signed))
	case []int32:
		return kbuffer.MustFromSlice(dt, mapInts(s, k.signed))
	case []int64:
		return kbuffer.MustFromSlice(dt, mapInts(s, k.signed))
	case []uint8:
		return kbuffer.MustFromSlice(dt, mapUints(s, k.unsigned))
	case []uint16:
		return kbuffer.MustFromSlice(dt, mapUints(s, k.unsigned))
	case []uint32:
		return kbuffer.MustFromSlice(dt, mapUints(s, k.unsigned))
	case []uint64:
		return kbuffer.MustFromSlice(dt, mapUints(s, k.unsigned))
	case []float32:
		return kbuffer.MustFromSlice(dt, mapFloats(s, k.float))
	case []float64:
		return kbuffer.MustFromSlice(dt, mapFloats(s, k.float))
	case []complex64:
		return kbuffer.MustFromSlice(dt, mapComplex(s, k.complex))
	case []complex128:
		return kbuffer.MustFromSlice(dt, mapComplex(s, k.complex))
	}
	panic(fmt.Sprintf("blocks: cannot apply kernel to %s", in))
}

func mapInts[T kdtype.Signed](in []T, f func(int64) int64) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(f(int64(v)))
	}
	return out
}

func mapUints[T kdtype.Unsigned](in []T, f func(uint64) uint64) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(f(uint64(v)))
	}
	return out
}

func mapFloats[T kdtype.Float](in []T, f func(float64) float64) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(f(float64(v)))
	}
	return out
}

func mapComplex[T kdtype.Complex](in []T, f func(complex128) complex128) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(f(complex128(v)))
	}
	return out
}

// binary is an element-wise operation combining two chunks.
type binary struct {
	signed   func(a, b int64) int64
	unsigned func(a, b uint64) uint64
	float    func(a, b float64) float64
	complex  func(a, b complex128) complex128
}

// apply combines a and b scalar by scalar. Both must have the same dtype
// and length.
func (op binary) apply(a, b kbuffer.Chunk) kbuffer.Chunk {
	dt := a.DType()
	switch s := a.Raw().(type) {
	case []int8:
		return kbuffer.MustFromSlice(dt, zipInts(s, b.Raw().([]int8), op.signed))
	case []int16:
		return kbuffer.MustFromSlice(dt, zipInts(s, b.Raw().([]int16), op.signed))
	case []int32:
		return kbuffer.MustFromSlice(dt, zipInts(s, b.Raw().([]int32), op.signed))
	case []int64:
		return kbuffer.MustFromSlice(dt, zipInts(s, b.Raw().([]int64), op.signed))
	case []uint8:
		return kbuffer.MustFromSlice(dt, zipUints(s, b.Raw().([]uint8), op.unsigned))
	case []uint16:
		return kbuffer.MustFromSlice(dt, zipUints(s, b.Raw().([]uint16), op.unsigned))
	case []uint32:
		return kbuffer.MustFromSlice(dt, zipUints(s, b.Raw().([]uint32), op.unsigned))
	case []uint64:
		return kbuffer.MustFromSlice(dt, zipUints(s, b.Raw().([]uint64), op.unsigned))
	case []float32:
		return kbuffer.MustFromSlice(dt, zipFloats(s, b.Raw().([]float32), op.float))
	case []float64:
		return kbuffer.MustFromSlice(dt, zipFloats(s, b.Raw().([]float64), op.float))
	case []complex64:
		return kbuffer.MustFromSlice(dt, zipComplex(s, b.Raw().([]complex64), op.complex))
	case []complex128:
		return kbuffer.MustFromSlice(dt, zipComplex(s, b.Raw().([]complex128), op.complex))
	}
	panic(fmt.Sprintf("blocks: cannot combine %s", a))
}

func zipInts[T kdtype.Signed](a, b []T, f func(int64, int64) int64) []T {
	out := make([]T, len(a))
	for i := range a {
		out[i] = T(f(int64(a[i]), int64(b[i])))
	}
	return out
}

func zipUints[T kdtype.Unsigned](a, b []T, f func(uint64, uint64) uint64) []T {
	out := make([]T, len(a))
	for i := range a {
		out[i] = T(f(uint64(a[i]), uint64(b[i])))
	}
	return out
}

func zipFloats[T kdtype.Float](a, b []T, f func(float64, float64) float64) []T {
	out := make([]T, len(a))
	for i := range a {
		out[i] = T(f(float64(a[i]), float64(b[i])))
	}
	return out
}

func zipComplex[T kdtype.Complex](a, b []T, f func(complex128, complex128) complex128) []T {
	out := make([]T, len(a))
	for i := range a {
		out[i] = T(f(complex128(a[i]), complex128(b[i])))
	}
	return out
}

// widened holds a typed scalar in the 64-bit domain of its family.
type widened struct {
	i int64
	u uint64
	f float64
	c complex128
}

// widen converts a value of element type t into its widened form.
func widen(t kdtype.ElementType, v any) widened {
	rv := reflect.ValueOf(v)
	switch {
	case t.IsSigned():
		return widened{i: rv.Int()}
	case t.IsUnsigned():
		return widened{u: rv.Uint()}
	case t.IsFloat():
		return widened{f: rv.Float()}
	default:
		return widened{c: rv.Complex()}
	}
}

// typedValue converts v to the Go type of t, wrapping conversion errors as
// kblock.ErrBadArgument.
func typedValue(t kdtype.ElementType, v any) (any, error) {
	out, err := kdtype.Convert(t, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kblock.ErrBadArgument, err)
	}
	return out, nil
}

// goType returns the Go type of element type t.
func goType(t kdtype.ElementType) reflect.Type {
	return reflect.TypeOf(kdtype.MustConvert(t, 0))
}

// typedGetter builds a func() T for the Go type T of t, so the accessor has
// the same signature a hand written typed block would register.
func typedGetter(t kdtype.ElementType, get func() any) any {
	ft := reflect.FuncOf(nil, []reflect.Type{goType(t)}, false)
	return reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{reflect.ValueOf(get())}
	}).Interface()
}

// typedSetter builds a func(T) error for the Go type T of t.
func typedSetter(t kdtype.ElementType, set func(any) error) any {
	ft := reflect.FuncOf([]reflect.Type{goType(t)}, []reflect.Type{errorType}, false)
	return reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		err := set(args[0].Interface())
		return []reflect.Value{reflect.ValueOf(&err).Elem()}
	}).Interface()
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
