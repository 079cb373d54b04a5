package kdtype

// Signed is the set of signed integer element types.
type Signed interface {
	int8 | int16 | int32 | int64
}

// Unsigned is the set of unsigned integer element types.
type Unsigned interface {
	uint8 | uint16 | uint32 | uint64
}

// Integer is the set of integer element types.
type Integer interface {
	Signed | Unsigned
}

// Float is the set of floating-point element types.
type Float interface {
	float32 | float64
}

// Complex is the set of complex element types.
type Complex interface {
	complex64 | complex128
}

// Number is the set of Go types that have an ElementType. The set is closed
// (no ~ approximations) so that Of is total over it.
type Number interface {
	Integer | Float | Complex
}

// Of returns the ElementType of T.
func Of[T Number]() ElementType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	case complex128:
		return Complex128
	}
	return Invalid
}

// TypeOf returns the ElementType of the dynamic type of v, or Invalid.
func TypeOf(v any) ElementType {
	switch v.(type) {
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	case complex128:
		return Complex128
	}
	return Invalid
}
