package kdag

import "slices"

// DAG is a fully built, validated block graph.
type DAG struct {
	graph *Graph
	order []NodeID
}

// Order returns the node IDs in deterministic topological order: every node
// comes after all nodes feeding it.
func (d *DAG) Order() []NodeID {
	return slices.Clone(d.order)
}

// Edges returns all edges in insertion order.
func (d *DAG) Edges() []Edge {
	return slices.Clone(d.graph.Edges)
}

// Sources returns the nodes without input ports, in topological order.
func (d *DAG) Sources() []NodeID {
	var out []NodeID
	for _, id := range d.order {
		if len(d.graph.Nodes[id].Inputs) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Sinks returns the nodes without output ports, in topological order.
func (d *DAG) Sinks() []NodeID {
	var out []NodeID
	for _, id := range d.order {
		if len(d.graph.Nodes[id].Outputs) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// GetGraph returns the underlying graph.
func (d *DAG) GetGraph() *Graph {
	return d.graph
}
