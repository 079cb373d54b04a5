package kdag

import (
	"errors"
	"fmt"
)

// Builder constructs a block graph.
//
// IMPORTANT: Builder is NOT safe for concurrent use. All methods must be
// called from a single goroutine. The resulting DAG is immutable and safe
// to use concurrently.
type Builder struct {
	graph *Graph
}

// NewBuilder creates a new DAG builder.
func NewBuilder() *Builder {
	return &Builder{
		graph: NewGraph(),
	}
}

// Build validates and finalizes the DAG.
func (b *Builder) Build() (*DAG, error) {
	if err := b.graph.Validate(); err != nil {
		return nil, err
	}

	order, err := b.graph.topologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to order nodes: %w", err)
	}

	return &DAG{
		graph: b.graph,
		order: order,
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *DAG {
	dag, err := b.Build()
	if err != nil {
		panic(err)
	}
	return dag
}

// GetGraph returns the underlying graph for read-only access.
func (b *Builder) GetGraph() *Graph {
	return b.graph
}

// GetNode returns a node by ID if it exists.
func (b *Builder) GetNode(id NodeID) (*Node, bool) {
	node, ok := b.graph.Nodes[id]
	return node, ok
}

// AddNode adds a block instance with the given ports to the graph.
func (b *Builder) AddNode(id NodeID, inputs, outputs []Port) error {
	node := &Node{
		ID:       id,
		Inputs:   inputs,
		Outputs:  outputs,
		Parents:  []NodeID{},
		Children: []NodeID{},
	}
	return b.graph.AddNode(node)
}

// Connect adds an edge from output port fromPort of from to input port
// toPort of to.
func (b *Builder) Connect(from NodeID, fromPort string, to NodeID, toPort string) error {
	return b.graph.AddEdge(Edge{From: from, FromPort: fromPort, To: to, ToPort: toPort})
}

// MustConnect is like Connect but panics on error.
func (b *Builder) MustConnect(from NodeID, fromPort string, to NodeID, toPort string) {
	must(b.Connect(from, fromPort, to, toPort))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Sentinel errors for common failure cases.
var (
	ErrNodeAlreadyExists = errors.New("node already exists")
	ErrNodeNotFound      = errors.New("node not found")
	ErrCycleDetected     = errors.New("cycle detected in DAG")
	ErrInvalidNodeID     = errors.New("invalid node ID")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrInvalidTopology   = errors.New("invalid topology")
	ErrPortNotFound      = errors.New("port not found")
	ErrPortInUse         = errors.New("input port already connected")
	ErrUnconnectedPort   = errors.New("unconnected input port")
)
