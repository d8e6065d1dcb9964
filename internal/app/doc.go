// Package app wires infometis together.
//
// NewApplication initializes logging, loads the configuration directory and
// builds the Services: the docker executor, container runtime, image cache,
// lazy cluster client, manifest renderer, component registry with the
// catalog, stack store (memory or SQLite) and the orchestrator on top.
//
// The CLI commands use the services directly. NewServer and NewConsole build
// the HTTP API and the interactive console over the same orchestrator.
package app
