// Package kblock defines the block model of the engine: blocks with named,
// typed input and output ports, named call accessors, and a registry that
// creates blocks by logical path.
package kblock

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/birdayz/kflow/kdtype"
)

// Sentinel errors for common failure cases.
var (
	ErrBlockNotFound    = errors.New("kblock: no block registered at path")
	ErrDuplicatePath    = errors.New("kblock: path already registered")
	ErrInvalidPath      = errors.New("kblock: invalid block path")
	ErrUnsupportedType  = errors.New("kblock: unsupported element type")
	ErrBadArgument      = errors.New("kblock: bad constructor argument")
	ErrCallNotFound     = errors.New("kblock: no such call")
	ErrCallArguments    = errors.New("kblock: bad call arguments")
	ErrDuplicatePort    = errors.New("kblock: port already exists")
	ErrBlockBound       = errors.New("kblock: block already bound to a running topology")
	ErrTypeMismatch     = errors.New("kblock: buffer type does not match port")
	ErrPortNotConnected = errors.New("kblock: port not connected")
)

// PortInfo describes one port of a block.
type PortInfo struct {
	Name  string
	DType kdtype.DType
}

func (p PortInfo) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.DType)
}

// Block is a unit of computation with named ports. Implementations embed
// *Base, which provides everything but Work.
type Block interface {
	// Path is the logical registry path the block was created from.
	Path() string

	// DType is the type tag the block was created with. It is zero for
	// blocks not made through a Registry.
	DType() kdtype.DType

	// String names the block by path and type tag.
	String() string

	InputPortInfo() []PortInfo
	OutputPortInfo() []PortInfo

	Input(name string) (*InputPort, bool)
	Output(name string) (*OutputPort, bool)

	// Call invokes a named accessor such as "getFillValue".
	Call(name string, args ...any) (any, error)

	// Transfers counts the elements the block has consumed and produced. The
	// engine compares it before and after Work to detect progress.
	Transfers() uint64

	// Work consumes available input and produces output. It must not block:
	// a block with nothing to do returns nil without touching its ports and
	// is called again when one of its ports changes.
	Work(ctx context.Context) error

	base() *Base
}

// Activator is implemented by blocks that need to prepare before the first
// Work call of a run.
type Activator interface {
	Activate() error
}

// Deactivator is implemented by blocks that need to clean up after the last
// Work call of a run.
type Deactivator interface {
	Deactivate() error
}

// Base carries the ports and calls of a block. Embed it as a pointer and
// create it with NewBase.
type Base struct {
	path    string
	dtype   kdtype.DType
	inputs  []*InputPort
	outputs []*OutputPort
	calls   map[string]reflect.Value

	binding   atomic.Pointer[Binding]
	transfers atomic.Uint64
}

// NewBase returns an empty Base.
func NewBase() *Base {
	return &Base{calls: make(map[string]reflect.Value)}
}

func (b *Base) base() *Base {
	return b
}

func (b *Base) Path() string {
	return b.path
}

// SetPath sets the logical path. The registry sets it on every block it
// makes.
func (b *Base) SetPath(path string) {
	b.path = path
}

func (b *Base) DType() kdtype.DType {
	return b.dtype
}

// String names the block by path and type tag, as in "/numeric/add(int8)".
func (b *Base) String() string {
	if b.dtype.IsZero() {
		return b.path
	}
	return fmt.Sprintf("%s(%s)", b.path, b.dtype)
}

// SetupInput adds an input port. Port names are unique per direction.
func (b *Base) SetupInput(name string, dt kdtype.DType) *InputPort {
	if _, ok := b.Input(name); ok {
		panic(fmt.Errorf("%w: input %q", ErrDuplicatePort, name))
	}
	p := &InputPort{info: PortInfo{Name: name, DType: dt}, owner: b}
	b.inputs = append(b.inputs, p)
	return p
}

// SetupOutput adds an output port.
func (b *Base) SetupOutput(name string, dt kdtype.DType) *OutputPort {
	if _, ok := b.Output(name); ok {
		panic(fmt.Errorf("%w: output %q", ErrDuplicatePort, name))
	}
	p := &OutputPort{info: PortInfo{Name: name, DType: dt}, owner: b}
	b.outputs = append(b.outputs, p)
	return p
}

func (b *Base) InputPortInfo() []PortInfo {
	out := make([]PortInfo, len(b.inputs))
	for i, p := range b.inputs {
		out[i] = p.info
	}
	return out
}

func (b *Base) OutputPortInfo() []PortInfo {
	out := make([]PortInfo, len(b.outputs))
	for i, p := range b.outputs {
		out[i] = p.info
	}
	return out
}

func (b *Base) Input(name string) (*InputPort, bool) {
	i := slices.IndexFunc(b.inputs, func(p *InputPort) bool { return p.info.Name == name })
	if i < 0 {
		return nil, false
	}
	return b.inputs[i], true
}

func (b *Base) Output(name string) (*OutputPort, bool) {
	i := slices.IndexFunc(b.outputs, func(p *OutputPort) bool { return p.info.Name == name })
	if i < 0 {
		return nil, false
	}
	return b.outputs[i], true
}

// Inputs returns the input ports in declaration order.
func (b *Base) Inputs() []*InputPort {
	return b.inputs
}

// Outputs returns the output ports in declaration order.
func (b *Base) Outputs() []*OutputPort {
	return b.outputs
}

func (b *Base) Transfers() uint64 {
	return b.transfers.Load()
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// RegisterCall exposes fn under name for Call. fn must be a function
// returning nothing, a value, an error, or a value and an error.
func (b *Base) RegisterCall(name string, fn any) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("kblock: call %q is %T, not a function", name, fn))
	}
	ft := v.Type()
	switch {
	case ft.IsVariadic(),
		ft.NumOut() > 2,
		ft.NumOut() == 2 && ft.Out(1) != errorType:
		panic(fmt.Sprintf("kblock: call %q has unsupported signature %s", name, ft))
	}
	if b.calls == nil {
		b.calls = make(map[string]reflect.Value)
	}
	b.calls[name] = v
}

// Calls returns the registered call names, sorted.
func (b *Base) Calls() []string {
	names := make([]string, 0, len(b.calls))
	for name := range b.calls {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Call invokes the named call. Arguments must be assignable to the
// parameter types of the registered function.
func (b *Base) Call(name string, args ...any) (any, error) {
	fn, ok := b.calls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrCallNotFound, b.path, name)
	}
	ft := fn.Type()
	if ft.NumIn() != len(args) {
		return nil, fmt.Errorf("%w: %s.%s takes %d arguments, got %d", ErrCallArguments, b.path, name, ft.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := ft.In(i)
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(arg)
		if !av.Type().AssignableTo(pt) {
			return nil, fmt.Errorf("%w: %s.%s argument %d is %s, want %s", ErrCallArguments, b.path, name, i, av.Type(), pt)
		}
		in[i] = av
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// CallAs invokes a call and asserts its result to T.
func CallAs[T any](b Block, name string, args ...any) (T, error) {
	var zero T
	res, err := b.Call(name, args...)
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s.%s returned %T, want %T", ErrCallArguments, b.Path(), name, res, zero)
	}
	return v, nil
}
