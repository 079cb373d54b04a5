package kdtype

import (
	"fmt"
	"strconv"
	"strings"
)

// DType is the type of the elements flowing through a port: an element
// type and the number of scalars per element.
//
// For complex types the dimension counts real components, so complex64[2]
// is one (re, im) sample per element. Dimension 1 is the scalar complex
// element and also holds one sample.
type DType struct {
	Type      ElementType
	Dimension int
}

// New creates a DType, validating both fields.
func New(t ElementType, dimension int) (DType, error) {
	if !t.Valid() {
		return DType{}, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	if dimension < 1 {
		return DType{}, fmt.Errorf("%w: got %d", ErrInvalidDimension, dimension)
	}
	if t.IsComplex() && dimension > 1 && dimension%2 != 0 {
		return DType{}, fmt.Errorf("%w: complex dimension %d is not a whole number of (re, im) pairs", ErrInvalidDimension, dimension)
	}
	return DType{Type: t, Dimension: dimension}, nil
}

// MustNew is like New but panics on error.
func MustNew(t ElementType, dimension int) DType {
	d, err := New(t, dimension)
	if err != nil {
		panic(err)
	}
	return d
}

// Scalar returns the one-dimensional DType of t.
func Scalar(t ElementType) DType {
	return DType{Type: t, Dimension: 1}
}

// Samples returns the number of values of the element type that make up
// one element.
func (d DType) Samples() int {
	if d.Type.IsComplex() && d.Dimension > 1 {
		return d.Dimension / 2
	}
	return d.Dimension
}

// Size returns the size of one element in bytes.
func (d DType) Size() int {
	return d.Type.Size() * d.Samples()
}

// IsZero reports whether d is the zero DType.
func (d DType) IsZero() bool {
	return d == DType{}
}

// String renders d as "float32" or, for vector elements, "float32[4]".
func (d DType) String() string {
	if d.Dimension <= 1 {
		return d.Type.String()
	}
	return fmt.Sprintf("%s[%d]", d.Type, d.Dimension)
}

// Parse parses the output of DType.String.
func Parse(s string) (DType, error) {
	s = strings.TrimSpace(s)
	name, dim := s, 1
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return DType{}, fmt.Errorf("kdtype: malformed dtype %q", s)
		}
		n, err := strconv.Atoi(s[i+1 : len(s)-1])
		if err != nil {
			return DType{}, fmt.Errorf("kdtype: malformed dimension in %q: %w", s, err)
		}
		name, dim = s[:i], n
	}
	t, err := ParseElementType(name)
	if err != nil {
		return DType{}, err
	}
	return New(t, dim)
}
