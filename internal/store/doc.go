// Package store persists stack deployments for the orchestrator.
//
// Two implementations exist: MemoryStore, the default, which forgets every
// stack when the process exits, and the SQLite store in the sqlite
// subpackage, which keeps live stacks and history across restarts.
//
// The storetest subpackage holds the behaviour suite both implementations
// run in their tests.
package store
