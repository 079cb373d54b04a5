// Package kdag provides a Directed Acyclic Graph (DAG) builder for block
// topologies.
//
// # Overview
//
// kdag is the build-time model of a topology. Nodes are block instances
// described only by their named, typed ports; edges connect one output port
// to one input port. The package knows nothing about running blocks: the
// engine builds a DAG, then starts one worker per node in the order the DAG
// reports.
//
// # Basic Usage
//
//	b := kdag.NewBuilder()
//
//	f32 := kdtype.Scalar(kdtype.Float32)
//	b.AddNode("feeder", nil, []kdag.Port{{Name: "0", DType: f32}})
//	b.AddNode("square", []kdag.Port{{Name: "0", DType: f32}}, []kdag.Port{{Name: "0", DType: f32}})
//	b.AddNode("collector", []kdag.Port{{Name: "0", DType: f32}}, nil)
//
//	b.MustConnect("feeder", "0", "square", "0")
//	b.MustConnect("square", "0", "collector", "0")
//
//	dag := b.MustBuild()
//	dag.Order() // [feeder square collector]
//
// # Validation
//
// Connect checks each edge as it is added:
//
//   - both nodes exist (ErrNodeNotFound)
//   - both ports exist (ErrPortNotFound)
//   - the port dtypes are identical, element type and dimension (ErrTypeMismatch)
//   - the input port is not fed yet (ErrPortInUse)
//
// An output port may feed any number of input ports.
//
// Build then validates the whole graph:
//
//   - size limits (MaxNodesPerDAG, MaxDepth, MaxChildrenPerNode)
//   - no cycles (ErrCycleDetected, with the offending path)
//   - every input port is connected (ErrUnconnectedPort)
//
// # Ordering
//
// Order is computed with Kahn's algorithm, breaking ties by NodeID, so the
// same graph always yields the same order.
package kdag
