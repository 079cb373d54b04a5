package kcheck

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/goleak"

	"github.com/birdayz/kflow/blocks"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kdtype"
	"github.com/birdayz/kflow/kvector"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCatalog(t *testing.T) {
	RunTests(t, MustParseMatrix(blocks.CatalogYAML))
}

func TestPureSourceFeeder(t *testing.T) {
	h := New()
	res := h.Check("feeder", func(c *Checker) {
		dt := kdtype.Scalar(kdtype.Int8)
		feeder := c.Make(blocks.FeederSourcePath, dt)
		_, err := feeder.Call("feedBuffer", kbuffer.MustFromSlice(dt, kvector.For[int8]()))
		assert.NoError(t, err)

		out := c.Execute(feeder)
		assert.Equal(t, 11, out["0"].Elements())
		c.Compare(out["0"], []int8{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4, 5})
	})
	assert.True(t, res.Passed(), "%v", res.Err())
}

func TestFloatTransformDrains(t *testing.T) {
	h := New()
	res := h.Check("square", func(c *Checker) {
		out := c.Execute(c.Make(blocks.SquarePath, kdtype.Scalar(kdtype.Float32)))
		assert.Equal(t, kvector.FloatLen, out["0"].Elements())

		want := kvector.For[float32]()
		for i, v := range want {
			want[i] = v * v
		}
		c.Compare(out["0"], want)
	})
	assert.True(t, res.Passed(), "%v", res.Err())
}

func TestChannelCount(t *testing.T) {
	h := New()
	tc := Case{Spec: BlockSpec{Path: blocks.AddPath, Types: TypeSet{kdtype.Complex64}, NChans: true}, Type: kdtype.Complex64}
	res := h.RunCase(tc)
	assert.True(t, res.Passed(), "%v", res.Err())
	assert.Equal(t, "numeric/add/complex64", res.Name)

	res = h.Check("channels", func(c *Checker) {
		b := c.Make(blocks.AddPath, kdtype.Scalar(kdtype.Complex64), DefaultChannels)
		c.CheckChannels(b, 3)
		assert.Equal(t, 3, len(b.InputPortInfo()))
	})
	assert.True(t, res.Passed(), "%v", res.Err())
}

func TestParameterRoundTrip(t *testing.T) {
	h := New()
	fill := Param{Name: "FillValue", Type: ParamBlockType, TestValue1: 100, TestValue2: 200}

	res := h.Check("full", func(c *Checker) {
		dt := kdtype.Scalar(kdtype.Uint16)
		first, err := fill.Value(dt.Type, fill.TestValue1)
		assert.NoError(t, err)
		second, err := fill.Value(dt.Type, fill.TestValue2)
		assert.NoError(t, err)
		assert.Equal(t, any(uint16(100)), first)

		b := c.Make(blocks.FullPath, dt, first)
		c.RoundTrip(b, fill.Name, first, second)

		out := c.Execute(b)
		v := kbuffer.View[uint16](out["0"])
		assert.True(t, len(v) > 0)
		for _, x := range v {
			assert.Equal(t, uint16(200), x)
		}
	})
	assert.True(t, res.Passed(), "%v", res.Err())

	t.Run("out of range", func(t *testing.T) {
		tc := Case{Spec: BlockSpec{Path: blocks.FullPath, Types: TypeSet{kdtype.Int8}, Params: []Param{fill}}, Type: kdtype.Int8}
		res := h.RunCase(tc)
		assert.Equal(t, 1, len(res.Failures))
		assert.Equal(t, KindContract, res.Failures[0].Kind)
		assert.Contains(t, res.Failures[0].Message, "200")
	})

	t.Run("getter mismatch", func(t *testing.T) {
		res := h.Check("mismatch", func(c *Checker) {
			b := c.Make(blocks.ScalePath, kdtype.Scalar(kdtype.Int32), int32(2))
			c.RoundTrip(b, "Factor", int32(5), int32(3))
		})
		assert.Equal(t, 1, len(res.Failures))
		assert.Equal(t, KindAssertion, res.Failures[0].Kind)
		assert.Equal(t, any(int32(5)), res.Failures[0].Expected)
		assert.Equal(t, any(int32(2)), res.Failures[0].Actual)
		assert.Contains(t, res.Failures[0].Location, "kcheck_test.go")
	})
}

func TestComplexVectorPacking(t *testing.T) {
	assert.Equal(t, 246, len(kvector.Scalars(kdtype.Complex64).([]float32)))
	want := kvector.For[complex64]()

	h := New()
	for _, dt := range []kdtype.DType{kdtype.Scalar(kdtype.Complex64), kdtype.MustNew(kdtype.Complex64, 2)} {
		t.Run(dt.String(), func(t *testing.T) {
			chunk, err := testChunk(dt)
			assert.NoError(t, err)
			assert.Equal(t, 123, chunk.Elements())

			res := h.Check(dt.String(), func(c *Checker) {
				collector := c.Make(blocks.CollectorSinkPath, dt)
				c.Execute(collector)
				got, err := kblock.CallAs[kbuffer.Chunk](collector, "getBuffer")
				assert.NoError(t, err)
				assert.Equal(t, dt, got.DType())
				assert.Equal(t, 123, got.Elements())
				assert.Equal(t, want, kbuffer.Values[complex64](got))
			})
			assert.True(t, res.Passed(), "%v", res.Err())
		})
	}

	_, err := testChunk(kdtype.MustNew(kdtype.Complex64, 4))
	assert.IsError(t, err, kbuffer.ErrInvalidSize)

	res := h.Check("uneven", func(c *Checker) {
		c.Execute(c.Make(blocks.CollectorSinkPath, kdtype.MustNew(kdtype.Complex64, 4)))
	})
	assert.Equal(t, 1, len(res.Failures))
	assert.Equal(t, KindContract, res.Failures[0].Kind)
}

// silentBlock consumes its input and never produces output.
type silentBlock struct {
	*kblock.Base
	in *kblock.InputPort
}

func newSilentBlock(dt kdtype.DType, args ...any) (kblock.Block, error) {
	b := &silentBlock{Base: kblock.NewBase()}
	b.in = b.SetupInput("0", dt)
	b.SetupOutput("0", dt)
	return b, nil
}

func (b *silentBlock) Work(context.Context) error {
	if n := b.in.Elements(); n > 0 {
		b.in.Consume(n)
	}
	return nil
}

// advertisingBlock passes input "0" through to output "0" and advertises
// input ports beyond the ones it has.
type advertisingBlock struct {
	*kblock.Base
	in    *kblock.InputPort
	out   *kblock.OutputPort
	extra []string
}

func newAdvertisingBlock(extra ...string) kblock.Factory {
	return func(dt kdtype.DType, args ...any) (kblock.Block, error) {
		b := &advertisingBlock{Base: kblock.NewBase(), extra: extra}
		b.in = b.SetupInput("0", dt)
		b.out = b.SetupOutput("0", dt)
		return b, nil
	}
}

func (b *advertisingBlock) InputPortInfo() []kblock.PortInfo {
	ports := b.Base.InputPortInfo()
	for _, name := range b.extra {
		ports = append(ports, kblock.PortInfo{Name: name, DType: b.in.Info().DType})
	}
	return ports
}

func (b *advertisingBlock) Work(context.Context) error {
	n := min(b.in.Elements(), b.out.Space())
	if n == 0 {
		return nil
	}
	in, err := b.in.Buffer().Slice(0, n)
	if err != nil {
		return err
	}
	if err := b.out.Post(in.Clone()); err != nil {
		return err
	}
	b.in.Consume(n)
	return nil
}

func testRegistry(t *testing.T) *kblock.Registry {
	t.Helper()
	r := kblock.NewRegistry()
	assert.NoError(t, blocks.Register(r))
	assert.NoError(t, r.Register("/test/silent", newSilentBlock))
	assert.NoError(t, r.Register("/test/shadowed", newAdvertisingBlock("0")))
	assert.NoError(t, r.Register("/test/phantom", newAdvertisingBlock("aux")))
	return r
}

func TestEngineRejection(t *testing.T) {
	h := New(WithRegistry(testRegistry(t)))
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "connect refused", path: "/test/shadowed", want: `connect /test/shadowed(uint32) input "0" (uint32)`},
		{name: "commit refused", path: "/test/phantom", want: "commit /test/phantom(uint32)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.RunCase(Case{Spec: BlockSpec{Path: tt.path, Types: TypeSet{kdtype.Uint32}}, Type: kdtype.Uint32})
			assert.False(t, res.Passed())
			assert.Equal(t, 1, len(res.Failures))
			assert.Equal(t, KindEngine, res.Failures[0].Kind)
			assert.Contains(t, res.Failures[0].Message, tt.want)
			assert.Contains(t, res.Failures[0].Message, tt.path)
			assert.Contains(t, res.Failures[0].Message, "uint32")
			assert.NoError(t, res.TeardownErr)
		})
	}

	t.Run("commit failure names the missing port", func(t *testing.T) {
		res := h.Check("missing port", func(c *Checker) {
			b := c.Make("/test/phantom", kdtype.Scalar(kdtype.Int8))
			c.Execute(b)
		})
		assert.Equal(t, KindEngine, res.Failures[0].Kind)
		assert.Contains(t, res.Failures[0].Message, "port not found")
		assert.Contains(t, res.Failures[0].Message, "aux")
	})
}

func TestMatrixCollectsFailures(t *testing.T) {
	m := MustParseMatrix([]byte(`
blocks:
  - path: /test/silent
    types: [int8]
  - path: /numeric/square
    types: [int8, float64]
  - path: /numeric/cumsum
    types: [int8]
    skip: true
  - path: /test/unknown
    types: [float64]
`))
	h := New(WithRegistry(testRegistry(t)))
	report := h.RunMatrix(m)

	var names []string
	for _, res := range report.Results {
		names = append(names, res.Name)
	}
	assert.Equal(t, []string{
		"test/silent/int8",
		"numeric/square/int8",
		"numeric/cumsum/int8",
		"numeric/square/float64",
		"test/unknown/float64",
	}, names)

	assert.Equal(t, 2, report.Failed())
	assert.Equal(t, 1, report.Skipped())
	assert.Equal(t, KindAssertion, report.Results[0].Failures[0].Kind)
	assert.True(t, report.Results[1].Passed())
	assert.Equal(t, KindContract, report.Results[4].Failures[0].Kind)
	assert.Error(t, report.Err())

	var buf bytes.Buffer
	n, err := report.WriteTo(&buf)
	assert.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	out := buf.String()
	assert.Contains(t, out, "FAIL test/silent/int8")
	assert.Contains(t, out, "PASS numeric/square/int8")
	assert.Contains(t, out, "SKIP numeric/cumsum/int8")
	assert.Contains(t, out, `output "0" produced no elements`)
	assert.True(t, strings.HasSuffix(out, "5 cases, 2 failed, 1 skipped\n"))
}

func TestVerdictIsRepeatable(t *testing.T) {
	h := New(WithRegistry(testRegistry(t)))
	for _, path := range []string{blocks.CumSumPath, "/test/silent"} {
		tc := Case{Spec: BlockSpec{Path: path, Types: TypeSet{kdtype.Int16}}, Type: kdtype.Int16}
		first := h.RunCase(tc)
		second := h.RunCase(tc)
		assert.Equal(t, first.Passed(), second.Passed(), path)
	}
}

func TestCheckRecoversPanics(t *testing.T) {
	h := New()
	reached := false
	res := h.Check("panic", func(c *Checker) {
		kbuffer.View[int8](kbuffer.New(kdtype.Scalar(kdtype.Int16), 1))
		reached = true
	})
	assert.False(t, reached)
	assert.Equal(t, 1, len(res.Failures))
	assert.Equal(t, KindContract, res.Failures[0].Kind)

	res = h.Check("fatal", func(c *Checker) {
		c.Fatalf(KindEngine, "stop")
		reached = true
	})
	assert.False(t, reached)
	assert.Equal(t, KindEngine, res.Failures[0].Kind)

	res = h.Check("errorf", func(c *Checker) {
		c.Errorf("first")
		c.Errorf("second")
		reached = true
	})
	assert.True(t, reached)
	assert.Equal(t, 2, len(res.Failures))
}
