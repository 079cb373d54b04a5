// Package kbuffer holds the engine-native buffer type moved between block
// ports and the adapters that turn typed Go slices into buffers and back.
package kbuffer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/birdayz/kflow/kdtype"
)

// Sentinel errors for common failure cases.
var (
	ErrInvalidSize  = errors.New("kbuffer: sample count not divisible by dimension")
	ErrTypeMismatch = errors.New("kbuffer: element type mismatch")
	ErrOutOfBounds  = errors.New("kbuffer: element range out of bounds")
)

// Chunk is a contiguous run of elements of a single DType. The backing
// storage is a Go slice of the element type holding Elements()*Samples()
// values in element order.
//
// A Chunk is a value; copies share the backing storage. Use Clone to get an
// independent copy.
type Chunk struct {
	dtype kdtype.DType
	data  any
}

// New allocates a zeroed Chunk holding n elements of dt.
func New(dt kdtype.DType, n int) Chunk {
	if n < 0 {
		panic(fmt.Sprintf("kbuffer: negative element count %d", n))
	}
	return Chunk{dtype: dt, data: makeScalars(dt.Type, n*dt.Samples())}
}

// DType returns the element dtype of c.
func (c Chunk) DType() kdtype.DType {
	return c.dtype
}

// Elements returns the number of elements in c.
func (c Chunk) Elements() int {
	if c.data == nil || c.dtype.Samples() == 0 {
		return 0
	}
	return reflect.ValueOf(c.data).Len() / c.dtype.Samples()
}

// Len returns the number of values in c.
func (c Chunk) Len() int {
	if c.data == nil {
		return 0
	}
	return reflect.ValueOf(c.data).Len()
}

// Size returns the size of c in bytes.
func (c Chunk) Size() int {
	return c.Elements() * c.dtype.Size()
}

// IsZero reports whether c is the zero Chunk.
func (c Chunk) IsZero() bool {
	return c.data == nil
}

// Raw returns the backing scalar slice, typed as []T for the Go type T of
// the element type. The slice aliases c.
func (c Chunk) Raw() any {
	return c.data
}

// Slice returns the elements [from, to) of c. The result aliases c.
func (c Chunk) Slice(from, to int) (Chunk, error) {
	if from < 0 || to < from || to > c.Elements() {
		return Chunk{}, fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfBounds, from, to, c.Elements())
	}
	n := c.dtype.Samples()
	v := reflect.ValueOf(c.data).Slice(from*n, to*n)
	return Chunk{dtype: c.dtype, data: v.Interface()}, nil
}

// Clone returns a deep copy of c.
func (c Chunk) Clone() Chunk {
	if c.data == nil {
		return c
	}
	src := reflect.ValueOf(c.data)
	dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
	reflect.Copy(dst, src)
	return Chunk{dtype: c.dtype, data: dst.Interface()}
}

// Append returns a new Chunk holding the elements of c followed by the
// elements of others. All chunks must share the same dtype; zero chunks are
// skipped.
func Append(c Chunk, others ...Chunk) (Chunk, error) {
	dt := c.dtype
	total := c.Len()
	for _, o := range others {
		if o.IsZero() {
			continue
		}
		if dt.IsZero() {
			dt = o.dtype
		}
		if o.dtype != dt {
			return Chunk{}, fmt.Errorf("%w: cannot append %s to %s", ErrTypeMismatch, o.dtype, dt)
		}
		total += o.Len()
	}
	if dt.IsZero() {
		return Chunk{}, nil
	}

	out := reflect.ValueOf(makeScalars(dt.Type, total))
	n := 0
	for _, part := range append([]Chunk{c}, others...) {
		if part.IsZero() {
			continue
		}
		n += reflect.Copy(out.Slice(n, total), reflect.ValueOf(part.data))
	}
	return Chunk{dtype: dt, data: out.Interface()}, nil
}

func (c Chunk) String() string {
	return fmt.Sprintf("Chunk(%s x %d)", c.dtype, c.Elements())
}

func makeScalars(t kdtype.ElementType, n int) any {
	switch t {
	case kdtype.Int8:
		return make([]int8, n)
	case kdtype.Int16:
		return make([]int16, n)
	case kdtype.Int32:
		return make([]int32, n)
	case kdtype.Int64:
		return make([]int64, n)
	case kdtype.Uint8:
		return make([]uint8, n)
	case kdtype.Uint16:
		return make([]uint16, n)
	case kdtype.Uint32:
		return make([]uint32, n)
	case kdtype.Uint64:
		return make([]uint64, n)
	case kdtype.Float32:
		return make([]float32, n)
	case kdtype.Float64:
		return make([]float64, n)
	case kdtype.Complex64:
		return make([]complex64, n)
	case kdtype.Complex128:
		return make([]complex128, n)
	}
	panic(fmt.Sprintf("kbuffer: unsupported element type %v", t))
}
