package blocks

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/goleak"

	"github.com/birdayz/kflow"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kdtype"
	"github.com/birdayz/kflow/kvector"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// run feeds inputs into b and returns what arrived on each output port.
func run(t *testing.T, b kblock.Block, inputs map[string]kbuffer.Chunk) map[string]kbuffer.Chunk {
	t.Helper()
	topo := kflow.New()
	defer func() { assert.NoError(t, topo.Close()) }()

	for _, p := range b.InputPortInfo() {
		feeder, err := NewFeederSource(p.DType)
		assert.NoError(t, err)
		assert.NoError(t, feeder.(*FeederSource).FeedBuffer(inputs[p.Name]))
		assert.NoError(t, topo.Connect(feeder, "0", b, p.Name))
	}
	collectors := map[string]*CollectorSink{}
	for _, p := range b.OutputPortInfo() {
		c, err := NewCollectorSink(p.DType)
		assert.NoError(t, err)
		collectors[p.Name] = c.(*CollectorSink)
		assert.NoError(t, topo.Connect(b, p.Name, c, "0"))
	}

	assert.NoError(t, topo.Commit())
	assert.True(t, topo.WaitInactive(10*time.Millisecond, 5*time.Second))
	assert.NoError(t, topo.Err())

	out := map[string]kbuffer.Chunk{}
	for name, c := range collectors {
		out[name] = c.GetBuffer()
	}
	return out
}

func mustMake(t *testing.T, path string, dt kdtype.DType, args ...any) kblock.Block {
	t.Helper()
	b, err := kblock.Make(path, dt, args...)
	assert.NoError(t, err)
	return b
}

func TestRegistered(t *testing.T) {
	paths := kblock.DefaultRegistry.Paths()
	for path := range factories {
		assert.True(t, slices.Contains(paths, path), path)
	}
}

func TestSquare(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Int16)
	in := kbuffer.MustFromSlice(dt, []int16{-3, -2, 0, 4, 300})
	out := run(t, mustMake(t, SquarePath, dt), map[string]kbuffer.Chunk{"0": in})
	// 300*300 wraps around like int16 arithmetic
	assert.Equal(t, []int16{9, 4, 0, 16, 24464}, kbuffer.View[int16](out["0"]))
}

func TestNegative(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Complex128)
	in := kbuffer.MustFromSlice(dt, []complex128{1 + 2i, -3i})
	out := run(t, mustMake(t, NegativePath, dt), map[string]kbuffer.Chunk{"0": in})
	assert.Equal(t, []complex128{-1 - 2i, 3i}, kbuffer.View[complex128](out["0"]))

	_, err := kblock.Make(NegativePath, kdtype.Scalar(kdtype.Uint8))
	assert.True(t, errors.Is(err, kblock.ErrUnsupportedType))
}

func TestCumSumLanes(t *testing.T) {
	dt := kdtype.MustNew(kdtype.Float64, 2)
	in := kbuffer.MustFromSlice(dt, []float64{1, 10, 2, 20, 3, 30})
	out := run(t, mustMake(t, CumSumPath, dt), map[string]kbuffer.Chunk{"0": in})
	assert.Equal(t, []float64{1, 10, 3, 30, 6, 60}, kbuffer.View[float64](out["0"]))
}

func TestDecimate(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Int8)
	b := mustMake(t, DecimatePath, dt, 2)
	in := kbuffer.MustFromSlice(dt, kvector.For[int8]())
	out := run(t, b, map[string]kbuffer.Chunk{"0": in})
	assert.Equal(t, []int8{-5, -3, -1, 1, 3, 5}, kbuffer.View[int8](out["0"]))

	_, err := b.Call("setFactor", 0)
	assert.True(t, errors.Is(err, kblock.ErrBadArgument))
	_, err = kblock.Make(DecimatePath, dt, 0)
	assert.True(t, errors.Is(err, kblock.ErrBadArgument))
}

func TestScaleFactorRoundTrip(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Uint32)
	b := mustMake(t, ScalePath, dt, uint32(2))

	got, err := kblock.CallAs[uint32](b, "getFactor")
	assert.NoError(t, err)
	assert.Equal(t, uint32(2), got)

	_, err = b.Call("setFactor", uint32(3))
	assert.NoError(t, err)
	got, err = kblock.CallAs[uint32](b, "getFactor")
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), got)

	out := run(t, b, map[string]kbuffer.Chunk{"0": kbuffer.MustFromSlice(dt, []uint32{1, 2, 3})})
	assert.Equal(t, []uint32{3, 6, 9}, kbuffer.View[uint32](out["0"]))

	_, err = b.Call("setFactor", 3)
	assert.True(t, errors.Is(err, kblock.ErrCallArguments))

	_, err = kblock.Make(ScalePath, dt, -1)
	assert.True(t, errors.Is(err, kblock.ErrBadArgument))
}

func TestAddChannels(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Complex64)
	b := mustMake(t, AddPath, dt, 3)

	n, err := kblock.CallAs[int](b, "getNumChannels")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, len(b.InputPortInfo()))

	vec := kvector.For[complex64]()
	in := kbuffer.MustFromSlice(dt, vec)
	out := run(t, b, map[string]kbuffer.Chunk{"0": in, "1": in, "2": in})
	got := kbuffer.View[complex64](out["0"])
	assert.Equal(t, len(vec), len(got))
	for i, v := range vec {
		assert.Equal(t, 3*v, got[i])
	}
}

func TestMultiplyDefaultChannels(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Int32)
	b := mustMake(t, MultiplyPath, dt)
	in := kbuffer.MustFromSlice(dt, []int32{1, 2, 3})
	out := run(t, b, map[string]kbuffer.Chunk{"0": in, "1": in})
	assert.Equal(t, []int32{1, 4, 9}, kbuffer.View[int32](out["0"]))
}

func TestSplitComplex(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Complex64)
	b := mustMake(t, SplitComplexPath, dt)
	assert.Equal(t, []kblock.PortInfo{
		{Name: "re", DType: kdtype.Scalar(kdtype.Float32)},
		{Name: "im", DType: kdtype.Scalar(kdtype.Float32)},
	}, b.OutputPortInfo())

	out := run(t, b, map[string]kbuffer.Chunk{"0": kbuffer.MustFromSlice(dt, []complex64{1 + 2i, 3 + 4i})})
	assert.Equal(t, []float32{1, 3}, kbuffer.View[float32](out["re"]))
	assert.Equal(t, []float32{2, 4}, kbuffer.View[float32](out["im"]))

	_, err := kblock.Make(SplitComplexPath, kdtype.Scalar(kdtype.Float32))
	assert.True(t, errors.Is(err, kblock.ErrUnsupportedType))

	t.Run("vector", func(t *testing.T) {
		dt := kdtype.MustNew(kdtype.Complex128, 4)
		b := mustMake(t, SplitComplexPath, dt)
		part := kdtype.MustNew(kdtype.Float64, 2)
		assert.Equal(t, []kblock.PortInfo{{Name: "re", DType: part}, {Name: "im", DType: part}}, b.OutputPortInfo())

		out := run(t, b, map[string]kbuffer.Chunk{"0": kbuffer.MustFromSlice(dt, []complex128{1 + 2i, 3 + 4i, 5 + 6i, 7 + 8i})})
		assert.Equal(t, 2, out["re"].Elements())
		assert.Equal(t, []float64{1, 3, 5, 7}, kbuffer.View[float64](out["re"]))
		assert.Equal(t, []float64{2, 4, 6, 8}, kbuffer.View[float64](out["im"]))
	})
}

func allEqual[T kdtype.Number](t *testing.T, c kbuffer.Chunk, want T) {
	t.Helper()
	v := kbuffer.View[T](c)
	assert.True(t, len(v) > 0)
	for _, x := range v {
		assert.Equal(t, want, x)
	}
}

func TestSingleOutputSources(t *testing.T) {
	t.Run("ones", func(t *testing.T) {
		out := run(t, mustMake(t, OnesPath, kdtype.Scalar(kdtype.Float32)), nil)
		allEqual(t, out["0"], float32(1))
		assert.Equal(t, kblock.DefaultChunkElements, out["0"].Elements())
	})

	t.Run("zeros", func(t *testing.T) {
		out := run(t, mustMake(t, ZerosPath, kdtype.MustNew(kdtype.Int64, 4)), nil)
		allEqual(t, out["0"], int64(0))
	})

	t.Run("full", func(t *testing.T) {
		dt := kdtype.Scalar(kdtype.Uint16)
		b := mustMake(t, FullPath, dt, 100)

		got, err := kblock.CallAs[uint16](b, "getFillValue")
		assert.NoError(t, err)
		assert.Equal(t, uint16(100), got)
		allEqual(t, run(t, b, nil)["0"], uint16(100))

		_, err = b.Call("setFillValue", uint16(200))
		assert.NoError(t, err)
		got, err = kblock.CallAs[uint16](b, "getFillValue")
		assert.NoError(t, err)
		assert.Equal(t, uint16(200), got)

		// the same block emits again in a fresh topology
		allEqual(t, run(t, b, nil)["0"], uint16(200))
	})

	t.Run("full setter reports errors", func(t *testing.T) {
		b := mustMake(t, FullPath, kdtype.Scalar(kdtype.Int8), 5)
		err := b.(*FillSource).SetFillValue(300)
		assert.True(t, errors.Is(err, kblock.ErrBadArgument))
		got, err := kblock.CallAs[int8](b, "getFillValue")
		assert.NoError(t, err)
		assert.Equal(t, int8(5), got)

		errRejected := errors.New("rejected")
		base := kblock.NewBase()
		base.RegisterCall("setX", typedSetter(kdtype.Float32, func(any) error { return errRejected }))
		_, err = base.Call("setX", float32(1))
		assert.IsError(t, err, errRejected)
		base.RegisterCall("setY", typedSetter(kdtype.Float32, func(any) error { return nil }))
		_, err = base.Call("setY", float32(1))
		assert.NoError(t, err)
	})

	t.Run("full complex", func(t *testing.T) {
		dt := kdtype.Scalar(kdtype.Complex128)
		b := mustMake(t, FullPath, dt, []any{1, 2})
		allEqual(t, run(t, b, nil)["0"], complex(1, 2))
	})

	t.Run("full rejects out of range", func(t *testing.T) {
		_, err := kblock.Make(FullPath, kdtype.Scalar(kdtype.Int8), 200)
		assert.True(t, errors.Is(err, kblock.ErrBadArgument))
		_, err = kblock.Make(FullPath, kdtype.Scalar(kdtype.Int8))
		assert.True(t, errors.Is(err, kblock.ErrBadArgument))
	})

	t.Run("repeat", func(t *testing.T) {
		b := mustMake(t, OnesPath, kdtype.Scalar(kdtype.Int8), true)
		repeat, err := kblock.CallAs[bool](b, "getRepeat")
		assert.NoError(t, err)
		assert.True(t, repeat)
	})
}

func TestFeederAndCollector(t *testing.T) {
	dt := kdtype.Scalar(kdtype.Int8)
	feeder := mustMake(t, FeederSourcePath, dt)
	collector := mustMake(t, CollectorSinkPath, dt)

	_, err := feeder.Call("feedBuffer", kbuffer.MustFromSlice(kdtype.Scalar(kdtype.Int16), []int16{1}))
	assert.True(t, errors.Is(err, kblock.ErrTypeMismatch))

	vec := kvector.For[int8]()
	_, err = feeder.Call("feedBuffer", kbuffer.MustFromSlice(dt, vec[:5]))
	assert.NoError(t, err)
	_, err = feeder.Call("feedBuffer", kbuffer.MustFromSlice(dt, vec[5:]))
	assert.NoError(t, err)

	topo := kflow.New()
	assert.NoError(t, topo.Connect(feeder, "0", collector, "0"))
	assert.NoError(t, topo.Commit())
	assert.True(t, topo.WaitInactive(10*time.Millisecond, 5*time.Second))
	assert.NoError(t, topo.Close())

	n, err := kblock.CallAs[int](collector, "elements")
	assert.NoError(t, err)
	assert.Equal(t, 11, n)
	buf, err := kblock.CallAs[kbuffer.Chunk](collector, "getBuffer")
	assert.NoError(t, err)
	assert.Equal(t, vec, kbuffer.Values[int8](buf))

	_, err = collector.Call("clear")
	assert.NoError(t, err)
	n, _ = kblock.CallAs[int](collector, "elements")
	assert.Equal(t, 0, n)

	_, err = kblock.Make(FeederSourcePath, dt, 1)
	assert.True(t, errors.Is(err, kblock.ErrBadArgument))
}
