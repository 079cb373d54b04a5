package kdtype

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestElementTypeNames(t *testing.T) {
	assert.Equal(t, 12, len(All))
	for _, et := range All {
		parsed, err := ParseElementType(et.String())
		assert.NoError(t, err)
		assert.Equal(t, et, parsed)
	}

	t.Run("aliases", func(t *testing.T) {
		assert.Equal(t, Complex64, MustParseElementType("complex_float32"))
		assert.Equal(t, Complex128, MustParseElementType(" Complex_Float64 "))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseElementType("int128")
		assert.True(t, errors.Is(err, ErrUnknownType))
	})
}

func TestElementTypeFamilies(t *testing.T) {
	tests := []struct {
		typ      ElementType
		size     int
		signed   bool
		unsigned bool
		float    bool
		complex  bool
	}{
		{Int8, 1, true, false, false, false},
		{Int64, 8, true, false, false, false},
		{Uint8, 1, false, true, false, false},
		{Uint32, 4, false, true, false, false},
		{Float32, 4, false, false, true, false},
		{Float64, 8, false, false, true, false},
		{Complex64, 8, false, false, false, true},
		{Complex128, 16, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.size, tt.typ.Size())
			assert.Equal(t, tt.signed, tt.typ.IsSigned())
			assert.Equal(t, tt.unsigned, tt.typ.IsUnsigned())
			assert.Equal(t, tt.float, tt.typ.IsFloat())
			assert.Equal(t, tt.complex, tt.typ.IsComplex())
		})
	}
	assert.Equal(t, Float32, Complex64.Component())
	assert.Equal(t, Float64, Complex128.Component())
	assert.Equal(t, Int16, Int16.Component())
}

func TestOf(t *testing.T) {
	assert.Equal(t, Int8, Of[int8]())
	assert.Equal(t, Uint64, Of[uint64]())
	assert.Equal(t, Float32, Of[float32]())
	assert.Equal(t, Complex128, Of[complex128]())
	assert.Equal(t, Complex64, TypeOf(complex64(1)))
	assert.Equal(t, Invalid, TypeOf("nope"))
}

func TestDType(t *testing.T) {
	d, err := New(Complex64, 2)
	assert.NoError(t, err)
	assert.Equal(t, 8, d.Size())
	assert.Equal(t, 1, d.Samples())
	assert.Equal(t, "complex64[2]", d.String())
	assert.Equal(t, 1, Scalar(Complex128).Samples())
	assert.Equal(t, 2, MustNew(Complex128, 4).Samples())
	assert.Equal(t, 3, MustNew(Int32, 3).Samples())
	assert.Equal(t, "int16", Scalar(Int16).String())

	parsed, err := Parse("complex64[2]")
	assert.NoError(t, err)
	assert.Equal(t, d, parsed)

	parsed, err = Parse("uint8")
	assert.NoError(t, err)
	assert.Equal(t, Scalar(Uint8), parsed)

	_, err = New(Float32, 0)
	assert.True(t, errors.Is(err, ErrInvalidDimension))

	_, err = New(Complex64, 3)
	assert.True(t, errors.Is(err, ErrInvalidDimension))

	_, err = Parse("float32[x]")
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		typ  ElementType
		in   any
		want any
		err  error
	}{
		{"int to int8", Int8, 5, int8(5), nil},
		{"negative int to int16", Int16, -25, int16(-25), nil},
		{"int8 overflow", Int8, 200, nil, ErrOutOfRange},
		{"negative to unsigned", Uint16, -1, nil, ErrOutOfRange},
		{"int to uint16", Uint16, 100, uint16(100), nil},
		{"uint64 max", Uint64, uint64(1<<64 - 1), uint64(1<<64 - 1), nil},
		{"int to float32", Float32, 5, float32(5), nil},
		{"float to float64", Float64, 2.5, 2.5, nil},
		{"float to int rejected", Int32, 2.5, nil, ErrIncompatibleValue},
		{"float32 overflow", Float32, 1e300, nil, ErrOutOfRange},
		{"int to complex64", Complex64, 5, complex64(5), nil},
		{"parts to complex128", Complex128, []any{10, 20.5}, complex(10, 20.5), nil},
		{"parts to float rejected", Float64, []any{1, 2}, nil, ErrIncompatibleValue},
		{"complex to int rejected", Int64, complex(1, 1), nil, ErrIncompatibleValue},
		{"string rejected", Int64, "5", nil, ErrIncompatibleValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.typ, tt.in)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextMarshalling(t *testing.T) {
	var et ElementType
	assert.NoError(t, et.UnmarshalText([]byte("uint32")))
	assert.Equal(t, Uint32, et)

	text, err := Complex128.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "complex128", string(text))

	_, err = Invalid.MarshalText()
	assert.Error(t, err)
}
