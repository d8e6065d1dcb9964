// Package logging provides the structured logging helpers used across
// infometis.
//
// Every log line carries a subsystem name (Orchestrator, Deployer, ImageCache,
// Server, ...) so output from concurrent operations can be told apart.
// The package wraps a single process-wide zap logger.
//
// # Modes
//
//   - InitForCLI: console encoding with short timestamps, written to stderr by
//     default. Used by every CLI command and the interactive console.
//   - InitForServer: JSON encoding, used by the HTTP server.
//
// Both modes also install a matching logr sink for controller-runtime, so
// messages from the Kubernetes client end up in the same stream.
//
// Until one of the Init functions is called all output is discarded, which
// keeps unit tests quiet.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("Orchestrator", "deploying %s to %s", component, cluster)
//	logging.Error("Deployer", err, "failed to apply %s", object)
package logging
