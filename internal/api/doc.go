// Package api holds the types shared between infometis packages: component and
// stack specifications, deployment records, status reports, the Deployer
// contract and the error taxonomy.
//
// The package does not import any other internal package, so every layer
// (registry, deployer, orchestrator, server, console) can depend on it without
// creating cycles.
//
// # Deployer Contract
//
// Every platform component (ingress controller, workflow engine, search
// engine, broker trio, metrics stack, ...) is driven through the same
// interface:
//
//	type Deployer interface {
//	    Name() string
//	    Deploy(ctx context.Context, cfg map[string]any) (*DeploymentResult, error)
//	    Cleanup(ctx context.Context) error
//	    GetStatus(ctx context.Context) (*StatusReport, error)
//	    Validate(ctx context.Context) (*ValidationReport, error)
//	}
//
// Deploy returns an error only for fatal failures (prerequisites, images,
// manifest application). A component that is applied but not yet ready is
// reported through DeploymentResult.Success=false plus warnings.
//
// # Errors
//
// All errors are concrete types so callers can match them with errors.As or
// the Is* helpers:
//
//	if api.IsStackNotFound(err) {
//	    // 404
//	}
package api
