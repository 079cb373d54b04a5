package kcheck

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kdtype"
)

func TestCompareChunk(t *testing.T) {
	i16 := kbuffer.MustFromSlice(kdtype.Scalar(kdtype.Int16), []int16{1, 2, 3})
	f32 := kbuffer.MustFromSlice(kdtype.MustNew(kdtype.Float32, 2), []float32{1, 2, 3, 4})
	c128 := kbuffer.MustFromSlice(kdtype.Scalar(kdtype.Complex128), []complex128{1 + 1i, 2 - 2i})

	tests := []struct {
		name     string
		chunk    kbuffer.Chunk
		expected any
		err      error
	}{
		{name: "ints equal", chunk: i16, expected: []int16{1, 2, 3}},
		{name: "ints differ", chunk: i16, expected: []int16{1, 2, 4}, err: &MismatchError{}},
		{name: "length", chunk: i16, expected: []int16{1, 2}, err: ErrLengthMismatch},
		{name: "type", chunk: i16, expected: []int32{1, 2, 3}, err: ErrTypeMismatch},
		{name: "not a slice", chunk: i16, expected: 1, err: ErrTypeMismatch},
		{name: "floats within epsilon", chunk: f32, expected: []float32{1, 2, 3, 4.0000005}},
		{name: "floats beyond epsilon", chunk: f32, expected: []float32{1, 2, 3, 4.001}, err: &MismatchError{}},
		{name: "complex within epsilon", chunk: c128, expected: []complex128{1 + 1i, 2 - 2.0000000001i}},
		{name: "complex beyond epsilon", chunk: c128, expected: []complex128{1 + 1i, 2 - 2.1i}, err: &MismatchError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompareChunk(tt.chunk, tt.expected, DefaultEpsilon)
			switch want := tt.err.(type) {
			case nil:
				assert.NoError(t, err)
			case *MismatchError:
				var got *MismatchError
				assert.True(t, errors.As(err, &got), "%v", err)
			default:
				assert.IsError(t, err, want)
			}
		})
	}
}

func TestCompareChunkReportsFirstMismatch(t *testing.T) {
	c := kbuffer.MustFromSlice(kdtype.MustNew(kdtype.Uint8, 2), []uint8{1, 2, 3, 4})
	err := CompareChunk(c, []uint8{1, 2, 9, 8}, 0)

	var m *MismatchError
	assert.True(t, errors.As(err, &m))
	assert.Equal(t, 2, m.Index)
	assert.Equal(t, any(uint8(9)), m.Expected)
	assert.Equal(t, any(uint8(3)), m.Actual)
}
