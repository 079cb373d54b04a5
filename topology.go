// Package kflow runs topologies of typed dataflow blocks.
//
// A Topology is assembled by connecting block ports, committed to start one
// goroutine per block, observed with WaitInactive and torn down with Close.
package kflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/birdayz/kflow/internal/execution"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kdag"
)

type State string

const (
	StateAssembled State = "ASSEMBLED"
	StateRunning   State = "RUNNING"
	StateTornDown  State = "TORN_DOWN"
)

// Sentinel errors for common failure cases.
var (
	ErrCommitted = errors.New("kflow: topology already committed")
	ErrTornDown  = errors.New("kflow: topology torn down")
)

// Topology is a graph of blocks connected port to port. It is safe for
// concurrent use, but blocks belong to the topology once connected.
type Topology struct {
	mu sync.Mutex

	log      *slog.Logger
	capacity int

	builder *kdag.Builder
	ids     map[kblock.Block]kdag.NodeID
	blocks  map[kdag.NodeID]kblock.Block
	names   map[string]int

	state    State
	runner   *execution.Runner
	closeErr error
}

// New creates an empty topology.
func New(opts ...Option) *Topology {
	t := &Topology{
		log:      NullLogger(),
		capacity: DefaultQueueCapacity,
		builder:  kdag.NewBuilder(),
		ids:      make(map[kblock.Block]kdag.NodeID),
		blocks:   make(map[kdag.NodeID]kblock.Block),
		names:    make(map[string]int),
		state:    StateAssembled,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Topology) changeState(newState State) {
	t.log.Info("Change state", "from", t.state, "to", newState)
	t.state = newState
}

// State returns the current lifecycle state.
func (t *Topology) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Topology) checkAssembled() error {
	switch t.state {
	case StateRunning:
		return ErrCommitted
	case StateTornDown:
		return ErrTornDown
	}
	return nil
}

// Add adds b to the topology without connecting it and returns its node ID.
// Adding a block twice returns the same ID.
func (t *Topology) Add(b kblock.Block) (kdag.NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkAssembled(); err != nil {
		return "", err
	}
	return t.add(b)
}

func (t *Topology) add(b kblock.Block) (kdag.NodeID, error) {
	if id, ok := t.ids[b]; ok {
		return id, nil
	}

	name := strings.TrimPrefix(b.Path(), "/")
	if name == "" {
		name = "block"
	}
	id := kdag.NodeID(fmt.Sprintf("%s#%d", name, t.names[name]))
	t.names[name]++

	if err := t.builder.AddNode(id, toPorts(b.InputPortInfo()), toPorts(b.OutputPortInfo())); err != nil {
		return "", err
	}
	t.ids[b] = id
	t.blocks[id] = b
	return id, nil
}

func toPorts(infos []kblock.PortInfo) []kdag.Port {
	ports := make([]kdag.Port, len(infos))
	for i, info := range infos {
		ports[i] = kdag.Port{Name: info.Name, DType: info.DType}
	}
	return ports
}

// Connect connects output port srcPort of src to input port dstPort of dst.
// Both blocks are added if needed. Ports are matched by name and must have
// identical dtypes; an input port accepts a single connection.
func (t *Topology) Connect(src kblock.Block, srcPort string, dst kblock.Block, dstPort string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkAssembled(); err != nil {
		return err
	}

	from, err := t.add(src)
	if err != nil {
		return err
	}
	to, err := t.add(dst)
	if err != nil {
		return err
	}
	if err := t.builder.Connect(from, srcPort, to, dstPort); err != nil {
		return err
	}
	t.log.Debug("Connected", "from", from, "from_port", srcPort, "to", to, "to_port", dstPort)
	return nil
}

// Commit validates the topology and starts running it.
func (t *Topology) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkAssembled(); err != nil {
		return err
	}

	dag, err := t.builder.Build()
	if err != nil {
		return err
	}

	order := dag.Order()
	units := make([]execution.Unit, len(order))
	for i, id := range order {
		units[i] = execution.Unit{ID: string(id), Block: t.blocks[id]}
	}

	runner := execution.NewRunner(t.log.WithGroup("runner"), t.capacity, units)
	if err := runner.Bind(); err != nil {
		return err
	}
	for _, e := range dag.Edges() {
		out, okOut := t.blocks[e.From].Output(e.FromPort)
		in, okIn := t.blocks[e.To].Input(e.ToPort)
		if !okOut || !okIn {
			_ = runner.Stop()
			return fmt.Errorf("%w: %s has no such port", kdag.ErrPortNotFound, e)
		}
		if err := kblock.Subscribe(out, in); err != nil {
			_ = runner.Stop()
			return fmt.Errorf("subscribe %s: %w", e, err)
		}
	}

	runner.Start(context.Background())
	t.runner = runner
	t.changeState(StateRunning)
	return nil
}

// WaitInactive blocks until no data moved through the topology for at least
// idle, or until timeout elapsed. A zero timeout waits forever. It returns
// true if the topology went inactive. A topology that is not running is
// inactive.
func (t *Topology) WaitInactive(idle, timeout time.Duration) bool {
	t.mu.Lock()
	runner := t.runner
	running := t.state == StateRunning
	t.mu.Unlock()
	if !running {
		return true
	}
	return runner.WaitInactive(idle, timeout)
}

// Err returns the errors raised by blocks while running, or nil.
func (t *Topology) Err() error {
	t.mu.Lock()
	runner := t.runner
	t.mu.Unlock()
	if runner == nil {
		return nil
	}
	return runner.Err()
}

// Close stops every block, drops queued data and releases the blocks so
// they can join another topology. Close is idempotent: later calls return
// the result of the first.
func (t *Topology) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateTornDown {
		return t.closeErr
	}
	if t.runner != nil {
		t.closeErr = t.runner.Stop()
	}
	t.changeState(StateTornDown)
	return t.closeErr
}

// Blocks returns the blocks of the topology keyed by node ID.
func (t *Topology) Blocks() map[kdag.NodeID]kblock.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[kdag.NodeID]kblock.Block, len(t.blocks))
	for id, b := range t.blocks {
		out[id] = b
	}
	return out
}
