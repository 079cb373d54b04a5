// Package kdtype describes the element types carried by block ports.
//
// An ElementType is one of the twelve numeric scalar types the engine can
// move between blocks. A DType pairs an ElementType with a dimension, the
// number of scalars that make up one element on a port.
package kdtype

import (
	"errors"
	"fmt"
	"strings"
)

// ElementType is a numeric scalar type.
type ElementType int

const (
	Invalid ElementType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
)

// Sentinel errors for common failure cases.
var (
	ErrUnknownType       = errors.New("kdtype: unknown element type")
	ErrInvalidDimension  = errors.New("kdtype: dimension must be >= 1")
	ErrIncompatibleValue = errors.New("kdtype: value incompatible with element type")
	ErrOutOfRange        = errors.New("kdtype: value outside element type range")
)

// All lists every supported element type in matrix order: signed and
// unsigned integers by width, then floats, then complex types.
var All = []ElementType{
	Int8, Int16, Int32, Int64,
	Uint8, Uint16, Uint32, Uint64,
	Float32, Float64,
	Complex64, Complex128,
}

var names = map[ElementType]string{
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	Uint8:      "uint8",
	Uint16:     "uint16",
	Uint32:     "uint32",
	Uint64:     "uint64",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
}

func (t ElementType) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("ElementType(%d)", int(t))
}

// Valid reports whether t is one of the supported element types.
func (t ElementType) Valid() bool {
	_, ok := names[t]
	return ok
}

// Size returns the size of one scalar in bytes.
func (t ElementType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		return 0
	}
}

func (t ElementType) IsSigned() bool {
	return t >= Int8 && t <= Int64
}

func (t ElementType) IsUnsigned() bool {
	return t >= Uint8 && t <= Uint64
}

func (t ElementType) IsInteger() bool {
	return t.IsSigned() || t.IsUnsigned()
}

func (t ElementType) IsFloat() bool {
	return t == Float32 || t == Float64
}

func (t ElementType) IsComplex() bool {
	return t == Complex64 || t == Complex128
}

// Component returns the real scalar type backing a complex type, and t
// itself for every other type.
func (t ElementType) Component() ElementType {
	switch t {
	case Complex64:
		return Float32
	case Complex128:
		return Float64
	default:
		return t
	}
}

// ParseElementType parses the name of an element type. Names are the Go
// type names; the "complex_float32" and "complex_float64" spellings are
// accepted as aliases.
func ParseElementType(s string) (ElementType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "complex_float32":
		return Complex64, nil
	case "complex_float64":
		return Complex128, nil
	}
	for t, n := range names {
		if n == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// MustParseElementType is like ParseElementType but panics on error.
func MustParseElementType(s string) ElementType {
	t, err := ParseElementType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ElementType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *ElementType) UnmarshalText(text []byte) error {
	parsed, err := ParseElementType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
