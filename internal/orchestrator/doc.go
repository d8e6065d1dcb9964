// Package orchestrator deploys stacks of platform components.
//
// A stack is a named list of components with dependencies. The orchestrator
// resolves each component through the registry, orders them with the
// dependency graph and deploys them strictly one after another, since a
// later component may need an endpoint the earlier one just created.
//
// # Stack Lifecycle
//
//	deploying -> deployed | degraded | failed -> removed
//
//   - deployed: every component deployed and reported ready.
//   - degraded: every component deployed, at least one is not ready yet.
//   - failed: a component failed. Components deployed before it have been
//     cleaned up in reverse order, best-effort.
//   - removed: CleanupStack removed every component. The stack leaves the
//     live list but stays in History.
//
// There is no update path: deploying the same spec again creates a new
// stack with a new id.
//
// # Status Aggregation
//
// GetStackStatus asks every component for its status and folds the
// answers: healthy iff all are healthy, degraded if any failed, pending
// otherwise. Concurrent requests for the same stack share one round of
// queries.
//
// # Concurrency
//
// Operations that change the cluster hold a lock keyed by the cluster name,
// so two stacks never deploy onto the same cluster at once. Waiting for the
// lock honours the caller's context. Rollback and cleanup keep running
// after the caller's context is cancelled, bounded by Config.CleanupTimeout.
// A shared status query likewise outlives the caller that started it,
// bounded by Config.StatusTimeout.
//
// # Persistence
//
// Stacks are kept in a store.StackStore. Without Config.Store an in-memory
// store is used and history is lost when the process exits; the CLI opens
// the SQLite store by default. PruneHistory deletes removed stacks.
package orchestrator
