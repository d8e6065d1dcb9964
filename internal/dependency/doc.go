// Package dependency provides the dependency graph used to order component
// deployments in infometis.
//
// # Core Concepts
//
// Graph: a directed graph where each node is a component and edges point from
// a component to the components it depends on. Nodes remember their insertion
// order so every query answers deterministically.
//
// Node: a component in the graph with:
//   - ID: unique identifier (the registry name of the component)
//   - FriendlyName: human-readable name
//   - DependsOn: components that must be deployed first
//
// # Ordering Rules
//
//  1. A component is deployed only after all of its dependencies.
//  2. Removal walks the deployment order in reverse.
//  3. Cycles and dependencies on components outside the graph are errors,
//     never silently skipped.
//
// # Typical Hierarchy
//
//	k0s (cluster container)
//	    ↓
//	traefik (ingress)
//	    ↓
//	nifi, kafka, elasticsearch, prometheus
//	    ↓
//	registry, flink, ksqldb, grafana
//
// # Usage Example
//
//	graph := dependency.New()
//	graph.AddNode(dependency.Node{ID: "k0s", FriendlyName: "k0s cluster"})
//	graph.AddNode(dependency.Node{ID: "traefik", DependsOn: []dependency.NodeID{"k0s"}})
//	graph.AddNode(dependency.Node{ID: "nifi", DependsOn: []dependency.NodeID{"traefik"}})
//
//	order, err := graph.TopologicalSort()
//	// order: [k0s traefik nifi]
//
// # Thread Safety
//
// Graph is not thread-safe. The orchestrator builds a fresh graph per stack
// deployment and never shares it.
package dependency
