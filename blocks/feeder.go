package blocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kdtype"
)

// FeederSource emits every buffer fed to it exactly once, in feed order, on
// output port "0".
type FeederSource struct {
	*kblock.Base
	out *kblock.OutputPort

	mu      sync.Mutex
	pending []kbuffer.Chunk
}

// NewFeederSource creates a feeder of dt. It takes no arguments.
func NewFeederSource(dt kdtype.DType, args ...any) (kblock.Block, error) {
	if err := kblock.RequireType(dt); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("%w: feeder takes no arguments", kblock.ErrBadArgument)
	}
	f := &FeederSource{Base: kblock.NewBase()}
	f.out = f.SetupOutput("0", dt)
	f.RegisterCall("feedBuffer", f.FeedBuffer)
	return f, nil
}

// FeedBuffer queues c for emission. c must match the output dtype.
func (f *FeederSource) FeedBuffer(c kbuffer.Chunk) error {
	if c.DType() != f.out.Info().DType {
		return fmt.Errorf("%w: feeding %s into %s feeder", kblock.ErrTypeMismatch, c.DType(), f.out.Info().DType)
	}
	f.mu.Lock()
	f.pending = append(f.pending, c)
	f.mu.Unlock()
	f.Wake()
	return nil
}

func (f *FeederSource) Work(context.Context) error {
	if f.out.Space() == 0 {
		return nil
	}
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return nil
	}
	next := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	return f.out.Post(next)
}

// CollectorSink accumulates everything arriving on input port "0".
type CollectorSink struct {
	*kblock.Base
	in *kblock.InputPort

	mu  sync.Mutex
	buf kbuffer.Chunk
}

// NewCollectorSink creates a collector of dt. It takes no arguments.
func NewCollectorSink(dt kdtype.DType, args ...any) (kblock.Block, error) {
	if err := kblock.RequireType(dt); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("%w: collector takes no arguments", kblock.ErrBadArgument)
	}
	c := &CollectorSink{Base: kblock.NewBase(), buf: kbuffer.New(dt, 0)}
	c.in = c.SetupInput("0", dt)
	c.RegisterCall("getBuffer", c.GetBuffer)
	c.RegisterCall("elements", c.Elements)
	c.RegisterCall("clear", c.Clear)
	return c, nil
}

// GetBuffer returns a copy of everything collected so far.
func (c *CollectorSink) GetBuffer() kbuffer.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Clone()
}

// Elements returns the number of elements collected so far.
func (c *CollectorSink) Elements() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Elements()
}

// Clear drops everything collected so far.
func (c *CollectorSink) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = kbuffer.New(c.in.Info().DType, 0)
}

func (c *CollectorSink) Work(context.Context) error {
	n := c.in.Elements()
	if n == 0 {
		return nil
	}
	in, err := c.in.Buffer().Slice(0, n)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.buf, err = kbuffer.Append(c.buf, in)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.in.Consume(n)
	return nil
}
