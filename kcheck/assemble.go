package kcheck

import (
	"fmt"

	"github.com/birdayz/kflow"
	"github.com/birdayz/kflow/blocks"
	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kdtype"
	"github.com/birdayz/kflow/kvector"
)

// assembly is a block under test wired to one feeder per input port and one
// collector per output port, keyed by port name.
type assembly struct {
	topology   *kflow.Topology
	block      kblock.Block
	feeders    map[string]kblock.Block
	collectors map[string]kblock.Block
}

// pureSource reports whether the block under test has no inputs.
func (a *assembly) pureSource() bool {
	return len(a.feeders) == 0
}

// testChunk returns the test vector of dt's element type packed into dt.
// Complex vectors are packed from their interleaved real scalars.
func testChunk(dt kdtype.DType) (kbuffer.Chunk, error) {
	if dt.Type.IsComplex() {
		return kbuffer.FromInterleaved(dt, kvector.Scalars(dt.Type))
	}
	return kbuffer.ToChunk(dt, kvector.Generate(dt.Type))
}

// assemble wires b into a new topology. On failure the topology is closed
// and the failure is returned.
func (h *Harness) assemble(b kblock.Block) (a *assembly, fail *Failure) {
	a = &assembly{
		topology:   kflow.New(append([]kflow.Option{kflow.WithLog(h.log.WithGroup("topology"))}, h.topologyOpts...)...),
		block:      b,
		feeders:    make(map[string]kblock.Block),
		collectors: make(map[string]kblock.Block),
	}
	defer func() {
		if fail != nil {
			if err := a.topology.Close(); err != nil {
				h.log.Warn("Failed to close topology", "error", err)
			}
		}
	}()

	for _, port := range b.InputPortInfo() {
		chunk, err := testChunk(port.DType)
		if err != nil {
			return a, &Failure{Kind: KindContract, Message: fmt.Sprintf("test vector for %s input %q: %v", b.Path(), port.Name, err)}
		}
		feeder, err := h.registry.Make(blocks.FeederSourcePath, port.DType)
		if err != nil {
			return a, &Failure{Kind: KindContract, Message: fmt.Sprintf("feeder for %s input %q: %v", b.Path(), port.Name, err)}
		}
		if _, err := feeder.Call("feedBuffer", chunk); err != nil {
			return a, &Failure{Kind: KindContract, Message: fmt.Sprintf("feed %s input %q: %v", b.Path(), port.Name, err)}
		}
		if err := a.topology.Connect(feeder, "0", b, port.Name); err != nil {
			return a, &Failure{Kind: KindEngine, Message: fmt.Sprintf("connect %s input %q (%s): %v", b, port.Name, port.DType, err)}
		}
		a.feeders[port.Name] = feeder
	}

	for _, port := range b.OutputPortInfo() {
		collector, err := h.registry.Make(blocks.CollectorSinkPath, port.DType)
		if err != nil {
			return a, &Failure{Kind: KindContract, Message: fmt.Sprintf("collector for %s output %q: %v", b.Path(), port.Name, err)}
		}
		if err := a.topology.Connect(b, port.Name, collector, "0"); err != nil {
			return a, &Failure{Kind: KindEngine, Message: fmt.Sprintf("connect %s output %q (%s): %v", b, port.Name, port.DType, err)}
		}
		a.collectors[port.Name] = collector
	}

	if len(b.InputPortInfo()) == 0 && len(b.OutputPortInfo()) == 0 {
		if _, err := a.topology.Add(b); err != nil {
			return a, &Failure{Kind: KindEngine, Message: fmt.Sprintf("add %s: %v", b, err)}
		}
	}
	return a, nil
}
