// internal/dependency/graph.go
package dependency

import (
	"infometis/internal/api"
)

// NodeID is the unique identifier for a node inside a dependency graph.
// Components use their registry name.
type NodeID string

// Node represents a component together with its dependency list.
type Node struct {
	ID           NodeID
	FriendlyName string
	DependsOn    []NodeID
}

// Graph answers dependency queries. It is *not* thread-safe by itself;
// callers must synchronise if they write concurrently.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds (or replaces) a node in the graph. Replacing keeps the
// original insertion position.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	if _, exists := g.nodes[n.ID]; !exists {
		g.order = append(g.order, n.ID)
	}
	// Copy to avoid external mutations
	copied := n
	copied.DependsOn = append([]NodeID(nil), n.DependsOn...)
	g.nodes[n.ID] = &copied
}

// Get returns a pointer to the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Dependencies returns a slice of immediate dependency IDs for the given node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns all node IDs that have a direct dependency on the given
// node, in insertion order.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, nid := range g.order {
		for _, dep := range g.nodes[nid].DependsOn {
			if dep == id {
				res = append(res, nid)
				break
			}
		}
	}
	return res
}

type color int

const (
	white color = iota
	grey
	black
)

type frame struct {
	id   NodeID
	next int
}

// TopologicalSort returns every node ordered so that each node comes after
// all of its dependencies. Roots are visited in insertion order and
// dependencies in their listed order, which makes the result deterministic.
//
// The walk is an iterative depth-first search with a three-colour visited
// set, so deep chains cannot exhaust the stack. A back edge fails with
// api.CyclicDependencyError; a dependency missing from the graph fails with
// api.UnresolvedDependencyError.
func (g *Graph) TopologicalSort() ([]NodeID, error) {
	colors := make(map[NodeID]color, len(g.nodes))
	result := make([]NodeID, 0, len(g.order))

	for _, root := range g.order {
		if colors[root] != white {
			continue
		}

		stack := []*frame{{id: root}}
		colors[root] = grey

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			deps := g.nodes[top.id].DependsOn

			if top.next >= len(deps) {
				stack = stack[:len(stack)-1]
				colors[top.id] = black
				result = append(result, top.id)
				continue
			}

			dep := deps[top.next]
			top.next++

			if _, ok := g.nodes[dep]; !ok {
				return nil, &api.UnresolvedDependencyError{Component: string(top.id), Dependency: string(dep)}
			}

			switch colors[dep] {
			case white:
				colors[dep] = grey
				stack = append(stack, &frame{id: dep})
			case grey:
				return nil, &api.CyclicDependencyError{Cycle: cyclePath(stack, dep)}
			}
		}
	}

	return result, nil
}

// cyclePath extracts the cycle closed by an edge to dep from the DFS stack.
func cyclePath(stack []*frame, dep NodeID) []string {
	start := 0
	for i, f := range stack {
		if f.id == dep {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, string(f.id))
	}
	return append(path, string(dep))
}
