package kdtype

import (
	"fmt"
	"math"
)

// Convert converts a loosely typed value, as decoded from YAML or written
// as a Go literal, into a value of the Go type of t. Integers convert to
// any type that can hold them exactly; floats convert to float and complex
// types; complex values, or two-element [re, im] lists, convert only to
// complex types. Values outside the range of t are rejected.
func Convert(t ElementType, v any) (any, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}

	switch x := v.(type) {
	case int:
		return fromInt(t, int64(x))
	case int8:
		return fromInt(t, int64(x))
	case int16:
		return fromInt(t, int64(x))
	case int32:
		return fromInt(t, int64(x))
	case int64:
		return fromInt(t, x)
	case uint:
		return fromUint(t, uint64(x))
	case uint8:
		return fromUint(t, uint64(x))
	case uint16:
		return fromUint(t, uint64(x))
	case uint32:
		return fromUint(t, uint64(x))
	case uint64:
		return fromUint(t, x)
	case float32:
		return fromFloat(t, float64(x))
	case float64:
		return fromFloat(t, x)
	case complex64:
		return fromComplex(t, complex128(x))
	case complex128:
		return fromComplex(t, x)
	case []any:
		c, err := complexFromParts(x)
		if err != nil {
			return nil, err
		}
		return fromComplex(t, c)
	}
	return nil, fmt.Errorf("%w: %v (%T) for %s", ErrIncompatibleValue, v, v, t)
}

// MustConvert is like Convert but panics on error.
func MustConvert(t ElementType, v any) any {
	out, err := Convert(t, v)
	if err != nil {
		panic(err)
	}
	return out
}

func complexFromParts(parts []any) (complex128, error) {
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: complex value needs [re, im], got %d parts", ErrIncompatibleValue, len(parts))
	}
	var re, im float64
	for i, p := range parts {
		var f float64
		switch x := p.(type) {
		case int:
			f = float64(x)
		case int64:
			f = float64(x)
		case float64:
			f = x
		default:
			return 0, fmt.Errorf("%w: complex part %v (%T)", ErrIncompatibleValue, p, p)
		}
		if i == 0 {
			re = f
		} else {
			im = f
		}
	}
	return complex(re, im), nil
}

func signedBounds(t ElementType) (int64, int64) {
	switch t {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func unsignedMax(t ElementType) uint64 {
	switch t {
	case Uint8:
		return math.MaxUint8
	case Uint16:
		return math.MaxUint16
	case Uint32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

func fromInt(t ElementType, i int64) (any, error) {
	switch {
	case t.IsSigned():
		lo, hi := signedBounds(t)
		if i < lo || i > hi {
			return nil, outOfRange(i, t)
		}
		return castSigned(t, i), nil
	case t.IsUnsigned():
		if i < 0 || uint64(i) > unsignedMax(t) {
			return nil, outOfRange(i, t)
		}
		return castUnsigned(t, uint64(i)), nil
	default:
		return fromFloat(t, float64(i))
	}
}

func fromUint(t ElementType, u uint64) (any, error) {
	switch {
	case t.IsSigned():
		_, hi := signedBounds(t)
		if u > uint64(hi) {
			return nil, outOfRange(u, t)
		}
		return castSigned(t, int64(u)), nil
	case t.IsUnsigned():
		if u > unsignedMax(t) {
			return nil, outOfRange(u, t)
		}
		return castUnsigned(t, u), nil
	default:
		return fromFloat(t, float64(u))
	}
}

func fromFloat(t ElementType, f float64) (any, error) {
	switch t {
	case Float32:
		if err := checkFloat32(f, t); err != nil {
			return nil, err
		}
		return float32(f), nil
	case Float64:
		return f, nil
	case Complex64, Complex128:
		return fromComplex(t, complex(f, 0))
	}
	return nil, fmt.Errorf("%w: float %v for %s", ErrIncompatibleValue, f, t)
}

func fromComplex(t ElementType, c complex128) (any, error) {
	switch t {
	case Complex64:
		if err := checkFloat32(real(c), t); err != nil {
			return nil, err
		}
		if err := checkFloat32(imag(c), t); err != nil {
			return nil, err
		}
		return complex64(c), nil
	case Complex128:
		return c, nil
	}
	return nil, fmt.Errorf("%w: complex %v for %s", ErrIncompatibleValue, c, t)
}

func checkFloat32(f float64, t ElementType) error {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	if math.Abs(f) > math.MaxFloat32 {
		return outOfRange(f, t)
	}
	return nil
}

func outOfRange(v any, t ElementType) error {
	return fmt.Errorf("%w: %v does not fit %s", ErrOutOfRange, v, t)
}

func castSigned(t ElementType, i int64) any {
	switch t {
	case Int8:
		return int8(i)
	case Int16:
		return int16(i)
	case Int32:
		return int32(i)
	default:
		return i
	}
}

func castUnsigned(t ElementType, u uint64) any {
	switch t {
	case Uint8:
		return uint8(u)
	case Uint16:
		return uint16(u)
	case Uint32:
		return uint32(u)
	default:
		return u
	}
}
