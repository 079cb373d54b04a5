package kdag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/birdayz/kflow/kdtype"
)

// NodeID is a strongly-typed identifier for graph nodes.
// NodeIDs must be non-empty and cannot contain whitespace.
type NodeID string

// Validate checks if the NodeID is valid.
// Returns ErrInvalidNodeID if the ID is empty or contains whitespace.
func (id NodeID) Validate() error {
	if id == "" {
		return fmt.Errorf("%w: NodeID cannot be empty", ErrInvalidNodeID)
	}
	if strings.ContainsAny(string(id), " \t\n\r") {
		return fmt.Errorf("%w: NodeID %q cannot contain whitespace", ErrInvalidNodeID, id)
	}
	return nil
}

// Port is a named, typed endpoint of a node.
type Port struct {
	Name  string
	DType kdtype.DType
}

// Edge connects an output port of one node to an input port of another.
type Edge struct {
	From     NodeID
	FromPort string
	To       NodeID
	ToPort   string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s[%s] -> %s[%s]", e.From, e.FromPort, e.To, e.ToPort)
}

// Node is the build-time representation of a block instance in the graph.
// It contains only metadata needed for validation and graph operations.
type Node struct {
	ID NodeID

	Inputs  []Port
	Outputs []Port

	// Parent edges (incoming)
	Parents []NodeID

	// Child edges (outgoing)
	Children []NodeID
}

// Input returns the input port with the given name.
func (n *Node) Input(name string) (Port, bool) {
	i := slices.IndexFunc(n.Inputs, func(p Port) bool { return p.Name == name })
	if i < 0 {
		return Port{}, false
	}
	return n.Inputs[i], true
}

// Output returns the output port with the given name.
func (n *Node) Output(name string) (Port, bool) {
	i := slices.IndexFunc(n.Outputs, func(p Port) bool { return p.Name == name })
	if i < 0 {
		return Port{}, false
	}
	return n.Outputs[i], true
}

// ValidateDownstream checks if output port fromPort of this node can feed
// input port toPort of child.
// Returns ErrPortNotFound or ErrTypeMismatch if not.
func (n *Node) ValidateDownstream(fromPort string, child *Node, toPort string) error {
	out, ok := n.Output(fromPort)
	if !ok {
		return fmt.Errorf("%w: %s has no output %q", ErrPortNotFound, n.ID, fromPort)
	}
	in, ok := child.Input(toPort)
	if !ok {
		return fmt.Errorf("%w: %s has no input %q", ErrPortNotFound, child.ID, toPort)
	}

	if out.DType != in.DType {
		return fmt.Errorf("%w: %s[%s] outputs %s but %s[%s] expects %s",
			ErrTypeMismatch, n.ID, fromPort, out.DType, child.ID, toPort, in.DType)
	}

	return nil
}

// Graph is the build-time DAG representation.
// It contains only structural information - no runtime behavior.
type Graph struct {
	Nodes map[NodeID]*Node

	// Edges in insertion order
	Edges []Edge

	// Deterministic node ordering (insertion order)
	NodeOrder []NodeID
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[NodeID]*Node),
		NodeOrder: make([]NodeID, 0),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(node *Node) error {
	if err := node.ID.Validate(); err != nil {
		return err
	}
	if _, exists := g.Nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrNodeAlreadyExists, node.ID)
	}
	g.Nodes[node.ID] = node
	g.NodeOrder = append(g.NodeOrder, node.ID)
	return nil
}

// AddEdge adds a directed edge between two ports.
// Validates port existence, type compatibility and that the input port is
// still free before adding.
func (g *Graph) AddEdge(e Edge) error {
	parent, ok := g.Nodes[e.From]
	if !ok {
		return fmt.Errorf("%w: parent %s", ErrNodeNotFound, e.From)
	}
	child, ok := g.Nodes[e.To]
	if !ok {
		return fmt.Errorf("%w: child %s", ErrNodeNotFound, e.To)
	}

	if err := parent.ValidateDownstream(e.FromPort, child, e.ToPort); err != nil {
		return fmt.Errorf("cannot connect %s: %w", e, err)
	}

	if prev, used := g.InputEdge(e.To, e.ToPort); used {
		return fmt.Errorf("%w: %s[%s] already fed by %s[%s]", ErrPortInUse, e.To, e.ToPort, prev.From, prev.FromPort)
	}

	g.Edges = append(g.Edges, e)
	if !slices.Contains(parent.Children, e.To) {
		parent.Children = append(parent.Children, e.To)
	}
	if !slices.Contains(child.Parents, e.From) {
		child.Parents = append(child.Parents, e.From)
	}
	return nil
}

// InputEdge returns the edge feeding input port of node id, if any.
func (g *Graph) InputEdge(id NodeID, port string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.To == id && e.ToPort == port {
			return e, true
		}
	}
	return Edge{}, false
}

// ReverseTopologicalSort returns nodes in reverse topological order.
// This means children come before parents - useful for bottom-up teardown.
func (g *Graph) ReverseTopologicalSort() ([]NodeID, error) {
	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}

	// Reverse the order
	slices.Reverse(order)
	return order, nil
}
