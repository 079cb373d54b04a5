package blocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kdtype"
)

// FillSource emits chunks of up to kblock.DefaultChunkElements elements that
// all equal its fill value on output port "0". It emits one chunk per run unless
// repeat is set, in which case it emits whenever there is space.
type FillSource struct {
	*kblock.Base
	out *kblock.OutputPort
	dt  kdtype.DType

	mu      sync.Mutex
	fill    any
	repeat  bool
	emitted bool
}

func newFillSource(dt kdtype.DType, fill any) (*FillSource, error) {
	if err := kblock.RequireType(dt); err != nil {
		return nil, err
	}
	value, err := typedValue(dt.Type, fill)
	if err != nil {
		return nil, err
	}
	s := &FillSource{Base: kblock.NewBase(), dt: dt, fill: value}
	s.out = s.SetupOutput("0", dt)
	s.RegisterCall("getRepeat", s.Repeat)
	s.RegisterCall("setRepeat", s.SetRepeat)
	return s, nil
}

// NewOnes creates a source of ones. The optional argument is the repeat
// flag.
func NewOnes(dt kdtype.DType, args ...any) (kblock.Block, error) {
	return newConstSource(dt, 1, args)
}

// NewZeros creates a source of zeros. The optional argument is the repeat
// flag.
func NewZeros(dt kdtype.DType, args ...any) (kblock.Block, error) {
	return newConstSource(dt, 0, args)
}

func newConstSource(dt kdtype.DType, value int, args []any) (kblock.Block, error) {
	repeat, err := kblock.Arg(args, 0, false)
	if err != nil {
		return nil, err
	}
	s, err := newFillSource(dt, value)
	if err != nil {
		return nil, err
	}
	s.repeat = repeat
	return s, nil
}

// NewFull creates a source of a constant fill value. The first argument is
// the fill value, converted to the element type; the optional second one is
// the repeat flag.
func NewFull(dt kdtype.DType, args ...any) (kblock.Block, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: full needs a fill value", kblock.ErrBadArgument)
	}
	repeat, err := kblock.Arg(args, 1, false)
	if err != nil {
		return nil, err
	}
	s, err := newFillSource(dt, args[0])
	if err != nil {
		return nil, err
	}
	s.repeat = repeat
	s.RegisterCall("getFillValue", typedGetter(dt.Type, s.FillValue))
	s.RegisterCall("setFillValue", typedSetter(dt.Type, s.SetFillValue))
	return s, nil
}

// FillValue returns the fill value as the Go type of the element type.
func (s *FillSource) FillValue() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fill
}

// SetFillValue sets the fill value for chunks emitted from now on.
func (s *FillSource) SetFillValue(v any) error {
	value, err := typedValue(s.dt.Type, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.fill = value
	s.mu.Unlock()
	return nil
}

func (s *FillSource) Repeat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

func (s *FillSource) SetRepeat(repeat bool) {
	s.mu.Lock()
	s.repeat = repeat
	s.mu.Unlock()
	s.Wake()
}

// Activate rearms the source so every run emits.
func (s *FillSource) Activate() error {
	s.mu.Lock()
	s.emitted = false
	s.mu.Unlock()
	return nil
}

func (s *FillSource) Work(context.Context) error {
	s.mu.Lock()
	if s.emitted && !s.repeat {
		s.mu.Unlock()
		return nil
	}
	fill := s.fill
	s.mu.Unlock()

	n := min(s.out.Space(), kblock.DefaultChunkElements)
	if n == 0 {
		return nil
	}
	w := widen(s.dt.Type, fill)
	constant := kernel{
		signed:   func(int64) int64 { return w.i },
		unsigned: func(uint64) uint64 { return w.u },
		float:    func(float64) float64 { return w.f },
		complex:  func(complex128) complex128 { return w.c },
	}
	chunk := constant.apply(kbuffer.New(s.dt, n))

	s.mu.Lock()
	s.emitted = true
	s.mu.Unlock()
	return s.out.Post(chunk)
}
