package kblock

import (
	"fmt"
	"sync"

	"github.com/birdayz/kflow/kbuffer"
)

const (
	// DefaultCapacity is the number of elements an input port queues before
	// upstream ports report no space.
	DefaultCapacity = 1 << 14

	// DefaultChunkElements is the number of elements transform blocks move
	// per Work call at most.
	DefaultChunkElements = 1024
)

// Binding connects a block to the engine that runs it.
type Binding struct {
	// Wake schedules another Work call of the bound block.
	Wake func()

	// Activity is called whenever data moves through one of the block's
	// ports.
	Activity func()

	// Capacity bounds the input queues of the block, in elements. Zero means
	// DefaultCapacity.
	Capacity int
}

// Bind attaches b to a running engine. A block can be bound to one engine
// at a time; ErrBlockBound is returned otherwise.
func Bind(b Block, binding Binding) error {
	base := b.base()
	if binding.Capacity <= 0 {
		binding.Capacity = DefaultCapacity
	}
	if !base.binding.CompareAndSwap(nil, &binding) {
		return fmt.Errorf("%w: %s", ErrBlockBound, base.path)
	}
	return nil
}

// Unbind detaches b from its engine. Queued input is dropped and every
// subscription of the block's ports is removed. Unbinding an unbound block
// is a no-op.
func Unbind(b Block) {
	base := b.base()
	for _, in := range base.inputs {
		in.reset()
	}
	for _, out := range base.outputs {
		out.mu.Lock()
		out.subscribers = nil
		out.mu.Unlock()
	}
	base.binding.Store(nil)
}

// Bound reports whether b is currently bound.
func Bound(b Block) bool {
	return b.base().binding.Load() != nil
}

// Subscribe delivers everything posted to out into in.
func Subscribe(out *OutputPort, in *InputPort) error {
	if out.info.DType != in.info.DType {
		return fmt.Errorf("%w: %s -> %s", ErrTypeMismatch, out.info, in.info)
	}
	in.mu.Lock()
	in.producer = out.owner
	in.mu.Unlock()

	out.mu.Lock()
	out.subscribers = append(out.subscribers, in)
	out.mu.Unlock()
	return nil
}

func (b *Base) moved(n int) {
	b.transfers.Add(uint64(n))
	if bind := b.binding.Load(); bind != nil && bind.Activity != nil {
		bind.Activity()
	}
}

// Wake schedules another Work call if the block is bound. Blocks call it
// when they gain work from outside their ports, such as a fed buffer.
func (b *Base) Wake() {
	if bind := b.binding.Load(); bind != nil && bind.Wake != nil {
		bind.Wake()
	}
}

func (b *Base) capacity() int {
	if bind := b.binding.Load(); bind != nil {
		return bind.Capacity
	}
	return DefaultCapacity
}

// InputPort queues buffers delivered by the upstream output port.
type InputPort struct {
	info  PortInfo
	owner *Base

	mu       sync.Mutex
	producer *Base
	queue    []kbuffer.Chunk
	elements int
}

func (p *InputPort) Info() PortInfo {
	return p.info
}

// Elements returns the number of queued elements.
func (p *InputPort) Elements() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elements
}

// Buffer returns all queued elements as one contiguous chunk. The chunk
// stays valid after Consume.
func (p *InputPort) Buffer() kbuffer.Chunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch len(p.queue) {
	case 0:
		return kbuffer.Chunk{}
	case 1:
		return p.queue[0]
	}
	merged, err := kbuffer.Append(kbuffer.Chunk{}, p.queue...)
	if err != nil {
		// push only accepts chunks of the port dtype
		panic(err)
	}
	p.queue = []kbuffer.Chunk{merged}
	return merged
}

// Consume removes n elements from the front of the queue.
func (p *InputPort) Consume(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	if n > p.elements {
		p.mu.Unlock()
		panic(fmt.Sprintf("kblock: consume %d of %d elements on %s.%s", n, p.elements, p.owner.path, p.info.Name))
	}
	p.elements -= n
	consumed := n
	for n > 0 {
		head := p.queue[0]
		if head.Elements() <= n {
			n -= head.Elements()
			p.queue = p.queue[1:]
			continue
		}
		rest, _ := head.Slice(n, head.Elements())
		p.queue[0] = rest
		n = 0
	}
	producer := p.producer
	p.mu.Unlock()

	p.owner.moved(consumed)
	if producer != nil {
		producer.Wake()
	}
}

func (p *InputPort) push(c kbuffer.Chunk) {
	p.mu.Lock()
	p.queue = append(p.queue, c)
	p.elements += c.Elements()
	p.mu.Unlock()
	p.owner.Wake()
}

func (p *InputPort) space() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owner.capacity() - p.elements
}

func (p *InputPort) reset() {
	p.mu.Lock()
	p.queue = nil
	p.elements = 0
	p.producer = nil
	p.mu.Unlock()
}

// OutputPort posts buffers to every subscribed input port.
type OutputPort struct {
	info  PortInfo
	owner *Base

	mu          sync.Mutex
	subscribers []*InputPort
}

func (p *OutputPort) Info() PortInfo {
	return p.info
}

// Connected reports whether at least one input port is subscribed.
func (p *OutputPort) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers) > 0
}

// Space returns how many elements the fullest subscriber can still queue.
// It is zero for an unconnected port. Space is advisory: Post never blocks
// and never drops.
func (p *OutputPort) Space() int {
	p.mu.Lock()
	subs := p.subscribers
	p.mu.Unlock()
	if len(subs) == 0 {
		return 0
	}
	space := -1
	for _, in := range subs {
		if s := in.space(); space < 0 || s < space {
			space = s
		}
	}
	return max(space, 0)
}

// Post delivers c to every subscriber. Subscribers after the first receive
// their own copy. Posting an empty chunk is a no-op.
func (p *OutputPort) Post(c kbuffer.Chunk) error {
	if c.Elements() == 0 {
		return nil
	}
	if c.DType() != p.info.DType {
		return fmt.Errorf("%w: posting %s to %s.%s", ErrTypeMismatch, c.DType(), p.owner.path, p.info)
	}
	p.mu.Lock()
	subs := p.subscribers
	p.mu.Unlock()
	if len(subs) == 0 {
		return fmt.Errorf("%w: %s.%s", ErrPortNotConnected, p.owner.path, p.info.Name)
	}

	for i, in := range subs {
		if i > 0 {
			c = c.Clone()
		}
		in.push(c)
	}
	p.owner.moved(c.Elements())
	return nil
}
