package kdag

import "github.com/birdayz/kflow/kdtype"

var f32 = kdtype.Scalar(kdtype.Float32)

func ports(names ...string) []Port {
	out := make([]Port, len(names))
	for i, n := range names {
		out[i] = Port{Name: n, DType: f32}
	}
	return out
}

// addTestSource adds a node with a single output "0".
func addTestSource(b *Builder, name string) error {
	return b.AddNode(NodeID(name), nil, ports("0"))
}

// addTestProcessor adds a node with input and output "0" fed by parent.
func addTestProcessor(b *Builder, name, parent string) error {
	if err := b.AddNode(NodeID(name), ports("0"), ports("0")); err != nil {
		return err
	}
	return b.Connect(NodeID(parent), "0", NodeID(name), "0")
}

// addTestSink adds a node with a single input "0" fed by parent.
func addTestSink(b *Builder, name, parent string) error {
	if err := b.AddNode(NodeID(name), ports("0"), nil); err != nil {
		return err
	}
	return b.Connect(NodeID(parent), "0", NodeID(name), "0")
}
