package dependency

import (
	"errors"
	"fmt"
	"testing"

	"infometis/internal/api"
)

func TestNew(t *testing.T) {
	g := New()
	if g == nil {
		t.Fatal("New() returned nil")
	}
	if g.nodes == nil {
		t.Fatal("nodes map not initialized")
	}
	if g.Len() != 0 {
		t.Fatalf("expected empty graph, got %d nodes", g.Len())
	}
}

func TestAddNode(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []Node
		expected int
	}{
		{
			name:     "add single node",
			nodes:    []Node{{ID: "k0s", FriendlyName: "k0s cluster"}},
			expected: 1,
		},
		{
			name: "add chain",
			nodes: []Node{
				{ID: "k0s"},
				{ID: "traefik", DependsOn: []NodeID{"k0s"}},
				{ID: "nifi", DependsOn: []NodeID{"traefik"}},
			},
			expected: 3,
		},
		{
			name: "replace existing node",
			nodes: []Node{
				{ID: "nifi", FriendlyName: "NiFi"},
				{ID: "nifi", FriendlyName: "NiFi Updated", DependsOn: []NodeID{"traefik"}},
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, node := range tt.nodes {
				g.AddNode(node)
			}
			if g.Len() != tt.expected {
				t.Errorf("expected %d nodes, got %d", tt.expected, g.Len())
			}
			lastNode := tt.nodes[len(tt.nodes)-1]
			if node := g.Get(lastNode.ID); node == nil {
				t.Errorf("node %s not found", lastNode.ID)
			} else if node.FriendlyName != lastNode.FriendlyName {
				t.Errorf("node friendly name mismatch: expected %s, got %s",
					lastNode.FriendlyName, node.FriendlyName)
			}
		})
	}
}

func TestAddNodeCopiesDependencies(t *testing.T) {
	g := New()
	deps := []NodeID{"k0s"}
	g.AddNode(Node{ID: "traefik", DependsOn: deps})
	deps[0] = "mutated"

	if got := g.Dependencies("traefik"); got[0] != "k0s" {
		t.Errorf("graph shares caller slice, got %v", got)
	}
}

func TestDependenciesAndDependents(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "k0s"})
	g.AddNode(Node{ID: "traefik", DependsOn: []NodeID{"k0s"}})
	g.AddNode(Node{ID: "kafka", DependsOn: []NodeID{"traefik"}})
	g.AddNode(Node{ID: "flink", DependsOn: []NodeID{"kafka"}})
	g.AddNode(Node{ID: "ksqldb", DependsOn: []NodeID{"kafka", "k0s"}})

	if deps := g.Dependencies("nonexistent"); len(deps) != 0 {
		t.Errorf("expected no dependencies for unknown node, got %v", deps)
	}
	if deps := g.Dependencies("ksqldb"); fmt.Sprint(deps) != "[kafka k0s]" {
		t.Errorf("unexpected dependencies of ksqldb: %v", deps)
	}

	tests := []struct {
		nodeID   NodeID
		expected string
	}{
		{"k0s", "[traefik ksqldb]"},
		{"kafka", "[flink ksqldb]"},
		{"flink", "[]"},
	}
	for _, tt := range tests {
		t.Run(string(tt.nodeID), func(t *testing.T) {
			if got := fmt.Sprint(g.Dependents(tt.nodeID)); got != tt.expected {
				t.Errorf("expected dependents %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestTopologicalSort(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []Node
		expected string
	}{
		{
			name: "linear chain",
			nodes: []Node{
				{ID: "k0s"},
				{ID: "traefik", DependsOn: []NodeID{"k0s"}},
				{ID: "nifi", DependsOn: []NodeID{"traefik"}},
			},
			expected: "[k0s traefik nifi]",
		},
		{
			name: "dependents listed before dependencies",
			nodes: []Node{
				{ID: "nifi", DependsOn: []NodeID{"traefik"}},
				{ID: "traefik", DependsOn: []NodeID{"k0s"}},
				{ID: "k0s"},
			},
			expected: "[k0s traefik nifi]",
		},
		{
			name: "diamond",
			nodes: []Node{
				{ID: "grafana", DependsOn: []NodeID{"elasticsearch", "prometheus"}},
				{ID: "elasticsearch", DependsOn: []NodeID{"traefik"}},
				{ID: "prometheus", DependsOn: []NodeID{"traefik"}},
				{ID: "traefik"},
			},
			expected: "[traefik elasticsearch prometheus grafana]",
		},
		{
			name:     "independent nodes keep insertion order",
			nodes:    []Node{{ID: "b"}, {ID: "a"}, {ID: "c"}},
			expected: "[b a c]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			order, err := g.TopologicalSort()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fmt.Sprint(order); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
			assertDependenciesFirst(t, g, order)
		})
	}
}

func TestTopologicalSortDetectsCycles(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		cycle string
	}{
		{
			name:  "self loop",
			nodes: []Node{{ID: "a", DependsOn: []NodeID{"a"}}},
			cycle: "a -> a",
		},
		{
			name: "two node cycle",
			nodes: []Node{
				{ID: "a", DependsOn: []NodeID{"b"}},
				{ID: "b", DependsOn: []NodeID{"a"}},
			},
			cycle: "a -> b -> a",
		},
		{
			name: "cycle below an acyclic prefix",
			nodes: []Node{
				{ID: "root"},
				{ID: "x", DependsOn: []NodeID{"root", "y"}},
				{ID: "y", DependsOn: []NodeID{"z"}},
				{ID: "z", DependsOn: []NodeID{"x"}},
			},
			cycle: "x -> y -> z -> x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			_, err := g.TopologicalSort()
			var cycleErr *api.CyclicDependencyError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("expected CyclicDependencyError, got %v", err)
			}
			if got := cycleErr.Error(); got != "cyclic dependency: "+tt.cycle {
				t.Errorf("unexpected cycle message %q", got)
			}
		})
	}
}

func TestTopologicalSortUnresolvedDependency(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "nifi", DependsOn: []NodeID{"traefik"}})

	_, err := g.TopologicalSort()
	var unresolved *api.UnresolvedDependencyError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedDependencyError, got %v", err)
	}
	if unresolved.Component != "nifi" || unresolved.Dependency != "traefik" {
		t.Errorf("unexpected error fields: %+v", unresolved)
	}
}

func TestTopologicalSortDeepChain(t *testing.T) {
	g := New()
	const depth = 10000
	for i := 0; i < depth; i++ {
		n := Node{ID: NodeID(fmt.Sprintf("n%d", i))}
		if i > 0 {
			n.DependsOn = []NodeID{NodeID(fmt.Sprintf("n%d", i-1))}
		}
		g.AddNode(n)
	}

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != depth || order[0] != "n0" || order[depth-1] != NodeID(fmt.Sprintf("n%d", depth-1)) {
		t.Errorf("unexpected order boundaries: first=%s last=%s len=%d", order[0], order[len(order)-1], len(order))
	}
}

func assertDependenciesFirst(t *testing.T, g *Graph, order []NodeID) {
	t.Helper()
	pos := make(map[NodeID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, id := range order {
		for _, dep := range g.Dependencies(id) {
			if pos[dep] >= pos[id] {
				t.Errorf("%s appears before its dependency %s", id, dep)
			}
		}
	}
}
