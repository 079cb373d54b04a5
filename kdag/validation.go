package kdag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Validation limits to prevent pathological cases
const (
	MaxNodesPerDAG     = 10000
	MaxDepth           = 500
	MaxChildrenPerNode = 1000
)

// Validate performs all topology validations.
// This includes size limits, cycle detection and unconnected input detection.
// Returns early on first error for better UX.
func (g *Graph) Validate() error {
	// Check size limits
	if len(g.Nodes) > MaxNodesPerDAG {
		return fmt.Errorf("%w: node count %d exceeds maximum %d",
			ErrInvalidTopology, len(g.Nodes), MaxNodesPerDAG)
	}

	// 1. Cycle detection using DFS
	if err := g.detectCycles(); err != nil {
		return fmt.Errorf("DAG validation failed: %w", err)
	}

	// 2. Every input port is fed
	if err := g.validateInputsConnected(); err != nil {
		return fmt.Errorf("DAG validation failed: %w", err)
	}

	return nil
}

// detectCycles uses Depth-First Search (DFS) to find cycles in the DAG.
// Returns ErrCycleDetected if any cycle is found.
// Time complexity: O(V + E) where V is vertices and E is edges.
func (g *Graph) detectCycles() error {
	visited := make(map[NodeID]bool, len(g.Nodes))
	recStack := make(map[NodeID]bool, len(g.Nodes))

	var dfs func(NodeID, []NodeID, int) error
	dfs = func(nodeID NodeID, path []NodeID, depth int) error {
		if depth > MaxDepth {
			return fmt.Errorf("%w: maximum depth %d exceeded", ErrInvalidTopology, MaxDepth)
		}

		visited[nodeID] = true
		recStack[nodeID] = true
		path = append(path, nodeID)

		node := g.Nodes[nodeID]
		if len(node.Children) > MaxChildrenPerNode {
			return fmt.Errorf("%w: node %s has %d children, exceeds maximum %d",
				ErrInvalidTopology, nodeID, len(node.Children), MaxChildrenPerNode)
		}

		for _, childID := range node.Children {
			if !visited[childID] {
				if err := dfs(childID, path, depth+1); err != nil {
					return err
				}
			} else if recStack[childID] {
				cyclePath := append(path, childID)
				pathStr := make([]string, len(cyclePath))
				for i, id := range cyclePath {
					pathStr[i] = string(id)
				}
				return fmt.Errorf("%w: %s", ErrCycleDetected, strings.Join(pathStr, " -> "))
			}
		}

		recStack[nodeID] = false
		return nil
	}

	// Walk in insertion order so the reported cycle is stable
	for _, nodeID := range g.NodeOrder {
		if !visited[nodeID] {
			if err := dfs(nodeID, nil, 0); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateInputsConnected checks that every input port has an edge.
// Returns ErrUnconnectedPort listing the free ports otherwise.
func (g *Graph) validateInputsConnected() error {
	var free []string
	for _, nodeID := range g.NodeOrder {
		for _, in := range g.Nodes[nodeID].Inputs {
			if _, ok := g.InputEdge(nodeID, in.Name); !ok {
				free = append(free, fmt.Sprintf("%s[%s]", nodeID, in.Name))
			}
		}
	}

	if len(free) > 0 {
		slices.Sort(free) // Deterministic error message
		return fmt.Errorf("%w: %s", ErrUnconnectedPort, strings.Join(free, ", "))
	}

	return nil
}

// insertSorted inserts an item into a sorted slice maintaining sort order.
// Time complexity: O(log n + n) for binary search + insert.
func insertSorted(slice []NodeID, item NodeID) []NodeID {
	idx := sort.Search(len(slice), func(i int) bool {
		return slice[i] >= item
	})
	return slices.Insert(slice, idx, item)
}

// topologicalSort creates a deterministic topological ordering using Kahn's algorithm.
// Time complexity: O(V log V + E) where V is vertices and E is edges.
// The log V factor comes from maintaining sorted order for determinism.
func (g *Graph) topologicalSort() ([]NodeID, error) {
	inDegree := make(map[NodeID]int, len(g.Nodes))
	for nodeID := range g.Nodes {
		inDegree[nodeID] = 0
	}
	for _, node := range g.Nodes {
		for _, childID := range node.Children {
			inDegree[childID]++
		}
	}

	// Queue of nodes with no incoming edges, kept sorted
	queue := make([]NodeID, 0, len(g.Nodes)/4)
	for nodeID, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, nodeID)
		}
	}
	slices.Sort(queue)

	result := make([]NodeID, 0, len(g.Nodes))
	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		result = append(result, nodeID)

		children := slices.Clone(g.Nodes[nodeID].Children)
		slices.Sort(children)

		for _, childID := range children {
			inDegree[childID]--
			if inDegree[childID] == 0 {
				queue = insertSorted(queue, childID)
			}
		}
	}

	// If we didn't process all nodes, there must be a cycle
	if len(result) != len(g.Nodes) {
		return nil, fmt.Errorf("%w: topological sort failed", ErrCycleDetected)
	}

	return result, nil
}
