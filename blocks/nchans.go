package blocks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kdtype"
)

// DefaultChannels is the input count of N-to-one blocks created without an
// explicit channel count.
const DefaultChannels = 2

// Combiner reduces N input ports "0".."N-1" into output port "0" by
// combining aligned elements with a binary operation.
type Combiner struct {
	*kblock.Base
	ins []*kblock.InputPort
	out *kblock.OutputPort
	op  binary
}

func newCombiner(dt kdtype.DType, op binary, args []any) (kblock.Block, error) {
	if err := kblock.RequireType(dt); err != nil {
		return nil, err
	}
	nchans, err := kblock.Arg(args, 0, DefaultChannels)
	if err != nil {
		return nil, err
	}
	if nchans < 1 {
		return nil, fmt.Errorf("%w: channel count %d < 1", kblock.ErrBadArgument, nchans)
	}

	c := &Combiner{Base: kblock.NewBase(), op: op}
	for i := 0; i < nchans; i++ {
		c.ins = append(c.ins, c.SetupInput(strconv.Itoa(i), dt))
	}
	c.out = c.SetupOutput("0", dt)
	c.RegisterCall("getNumChannels", c.NumChannels)
	return c, nil
}

// NewAdd sums its inputs. The optional argument is the channel count.
func NewAdd(dt kdtype.DType, args ...any) (kblock.Block, error) {
	return newCombiner(dt, binary{
		signed:   func(a, b int64) int64 { return a + b },
		unsigned: func(a, b uint64) uint64 { return a + b },
		float:    func(a, b float64) float64 { return a + b },
		complex:  func(a, b complex128) complex128 { return a + b },
	}, args)
}

// NewMultiply multiplies its inputs. The optional argument is the channel
// count.
func NewMultiply(dt kdtype.DType, args ...any) (kblock.Block, error) {
	return newCombiner(dt, binary{
		signed:   func(a, b int64) int64 { return a * b },
		unsigned: func(a, b uint64) uint64 { return a * b },
		float:    func(a, b float64) float64 { return a * b },
		complex:  func(a, b complex128) complex128 { return a * b },
	}, args)
}

// NumChannels returns the number of input ports.
func (c *Combiner) NumChannels() int {
	return len(c.ins)
}

func (c *Combiner) Work(context.Context) error {
	n := min(c.out.Space(), kblock.DefaultChunkElements)
	for _, in := range c.ins {
		n = min(n, in.Elements())
	}
	if n == 0 {
		return nil
	}

	var acc kbuffer.Chunk
	for i, in := range c.ins {
		part, err := in.Buffer().Slice(0, n)
		if err != nil {
			return err
		}
		if i == 0 {
			acc = part.Clone()
			continue
		}
		acc = c.op.apply(acc, part)
	}
	if err := c.out.Post(acc); err != nil {
		return err
	}
	for _, in := range c.ins {
		in.Consume(n)
	}
	return nil
}

// SplitComplex splits a complex input "0" into float outputs "re" and "im".
// Each output element holds one component of every sample of an input
// element.
type SplitComplex struct {
	*kblock.Base
	in     *kblock.InputPort
	re, im *kblock.OutputPort
}

func NewSplitComplex(dt kdtype.DType, args ...any) (kblock.Block, error) {
	if err := kblock.RequireType(dt, kdtype.ElementType.IsComplex); err != nil {
		return nil, err
	}
	part := kdtype.MustNew(dt.Type.Component(), dt.Samples())
	s := &SplitComplex{Base: kblock.NewBase()}
	s.in = s.SetupInput("0", dt)
	s.re = s.SetupOutput("re", part)
	s.im = s.SetupOutput("im", part)
	return s, nil
}

func (s *SplitComplex) Work(context.Context) error {
	n := min(s.in.Elements(), s.re.Space(), s.im.Space(), kblock.DefaultChunkElements)
	if n == 0 {
		return nil
	}
	in, err := s.in.Buffer().Slice(0, n)
	if err != nil {
		return err
	}

	var re, im kbuffer.Chunk
	part := kdtype.MustNew(in.DType().Type.Component(), in.DType().Samples())
	switch v := in.Raw().(type) {
	case []complex64:
		r, i := split[complex64, float32](v)
		re, im = kbuffer.MustFromSlice(part, r), kbuffer.MustFromSlice(part, i)
	case []complex128:
		r, i := split[complex128, float64](v)
		re, im = kbuffer.MustFromSlice(part, r), kbuffer.MustFromSlice(part, i)
	}

	if err := s.re.Post(re); err != nil {
		return err
	}
	if err := s.im.Post(im); err != nil {
		return err
	}
	s.in.Consume(n)
	return nil
}

func split[C kdtype.Complex, F kdtype.Float](in []C) ([]F, []F) {
	re, im := make([]F, len(in)), make([]F, len(in))
	for i, v := range in {
		c := complex128(v)
		re[i], im[i] = F(real(c)), F(imag(c))
	}
	return re, im
}
