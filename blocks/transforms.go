package blocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kdtype"
)

// Transform is a block with input "0" and output "0" of the same dtype that
// runs every input chunk through a function.
type Transform struct {
	*kblock.Base
	in  *kblock.InputPort
	out *kblock.OutputPort

	mu      sync.Mutex
	process func(kbuffer.Chunk) (kbuffer.Chunk, error)
}

func newTransform(dt kdtype.DType, process func(kbuffer.Chunk) (kbuffer.Chunk, error)) *Transform {
	t := &Transform{Base: kblock.NewBase(), process: process}
	t.in = t.SetupInput("0", dt)
	t.out = t.SetupOutput("0", dt)
	return t
}

func newKernelTransform(dt kdtype.DType, k kernel) (*Transform, error) {
	if err := k.check(dt); err != nil {
		return nil, err
	}
	return newTransform(dt, func(c kbuffer.Chunk) (kbuffer.Chunk, error) {
		return k.apply(c), nil
	}), nil
}

func (t *Transform) Work(context.Context) error {
	n := min(t.in.Elements(), t.out.Space(), kblock.DefaultChunkElements)
	if n == 0 {
		return nil
	}
	in, err := t.in.Buffer().Slice(0, n)
	if err != nil {
		return err
	}

	t.mu.Lock()
	out, err := t.process(in)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	if err := t.out.Post(out); err != nil {
		return err
	}
	t.in.Consume(n)
	return nil
}

// NewNegative negates every scalar. Unsigned types are not supported.
func NewNegative(dt kdtype.DType, args ...any) (kblock.Block, error) {
	return newKernelTransform(dt, kernel{
		signed:  func(x int64) int64 { return -x },
		float:   func(x float64) float64 { return -x },
		complex: func(x complex128) complex128 { return -x },
	})
}

// NewSquare squares every scalar.
func NewSquare(dt kdtype.DType, args ...any) (kblock.Block, error) {
	return newKernelTransform(dt, kernel{
		signed:   func(x int64) int64 { return x * x },
		unsigned: func(x uint64) uint64 { return x * x },
		float:    func(x float64) float64 { return x * x },
		complex:  func(x complex128) complex128 { return x * x },
	})
}

// NewCumSum emits the running sum of its input. Each sample lane of a
// vector dtype is summed separately.
func NewCumSum(dt kdtype.DType, args ...any) (kblock.Block, error) {
	dim := dt.Samples()
	if dim < 1 {
		return nil, fmt.Errorf("%w: %s", kdtype.ErrInvalidDimension, dt)
	}
	var (
		lane int
		si   = make([]int64, dim)
		su   = make([]uint64, dim)
		sf   = make([]float64, dim)
		sc   = make([]complex128, dim)
	)
	next := func() int {
		l := lane
		lane = (lane + 1) % dim
		return l
	}
	t, err := newKernelTransform(dt, kernel{
		signed:   func(x int64) int64 { l := next(); si[l] += x; return si[l] },
		unsigned: func(x uint64) uint64 { l := next(); su[l] += x; return su[l] },
		float:    func(x float64) float64 { l := next(); sf[l] += x; return sf[l] },
		complex:  func(x complex128) complex128 { l := next(); sc[l] += x; return sc[l] },
	})
	if err != nil {
		return nil, err
	}
	return &cumSum{Transform: t, reset: func() {
		lane = 0
		clear(si)
		clear(su)
		clear(sf)
		clear(sc)
	}}, nil
}

type cumSum struct {
	*Transform
	reset func()
}

// Activate restarts the running sums.
func (c *cumSum) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return nil
}

// Scale multiplies every scalar by a factor of the element type, given as
// the first constructor argument.
type Scale struct {
	*Transform
	dt     kdtype.DType
	factor any
}

func NewScale(dt kdtype.DType, args ...any) (kblock.Block, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: scale needs a factor", kblock.ErrBadArgument)
	}
	factor, err := typedValue(dt.Type, args[0])
	if err != nil {
		return nil, err
	}

	s := &Scale{dt: dt, factor: factor}
	s.Transform, err = newKernelTransform(dt, kernel{
		signed:   func(x int64) int64 { return x * widen(dt.Type, s.factor).i },
		unsigned: func(x uint64) uint64 { return x * widen(dt.Type, s.factor).u },
		float:    func(x float64) float64 { return x * widen(dt.Type, s.factor).f },
		complex:  func(x complex128) complex128 { return x * widen(dt.Type, s.factor).c },
	})
	if err != nil {
		return nil, err
	}
	s.RegisterCall("getFactor", typedGetter(dt.Type, func() any {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.factor
	}))
	s.RegisterCall("setFactor", typedSetter(dt.Type, func(v any) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.factor = v
		return nil
	}))
	return s, nil
}

// Decimate keeps every factor-th element of its input, starting with the
// first. The factor is the first constructor argument, an int >= 1.
type Decimate struct {
	*Transform
	factor int
	phase  int
}

func NewDecimate(dt kdtype.DType, args ...any) (kblock.Block, error) {
	if err := kblock.RequireType(dt); err != nil {
		return nil, err
	}
	factor, err := kblock.Arg(args, 0, 1)
	if err != nil {
		return nil, err
	}
	if factor < 1 {
		return nil, fmt.Errorf("%w: decimation factor %d < 1", kblock.ErrBadArgument, factor)
	}

	d := &Decimate{factor: factor}
	d.Transform = newTransform(dt, d.decimate)
	d.RegisterCall("getFactor", func() int {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.factor
	})
	d.RegisterCall("setFactor", func(f int) error {
		if f < 1 {
			return fmt.Errorf("%w: decimation factor %d < 1", kblock.ErrBadArgument, f)
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		d.factor = f
		d.phase = 0
		return nil
	})
	return d, nil
}

func (d *Decimate) decimate(in kbuffer.Chunk) (kbuffer.Chunk, error) {
	var keep []kbuffer.Chunk
	for i := 0; i < in.Elements(); i++ {
		if d.phase == 0 {
			e, err := in.Slice(i, i+1)
			if err != nil {
				return kbuffer.Chunk{}, err
			}
			keep = append(keep, e)
		}
		d.phase = (d.phase + 1) % d.factor
	}
	return kbuffer.Append(kbuffer.New(in.DType(), 0), keep...)
}

// Activate restarts the decimation phase.
func (d *Decimate) Activate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phase = 0
	return nil
}
