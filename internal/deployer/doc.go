// Package deployer implements the component deployers of infometis.
//
// Two deployers exist:
//
//   - ClusterDeployer runs k0s in a privileged container and exports the
//     admin kubeconfig with the server rewritten to the published API port.
//   - ManifestDeployer deploys every other component from a Definition: an
//     embedded manifest, default images, prerequisites and the workloads
//     whose readiness defines component readiness.
//
// # Deployment State Machine
//
// ManifestDeployer.Deploy walks these phases:
//
//	NotStarted -> CheckingPrerequisites -> EnsuringImages -> Applying
//	    -> WaitingReady -> Verified | VerifiedWithWarnings
//
// Any phase may end in Failed. Prerequisite, image and apply failures are
// returned as errors; objects created by a partially failed apply are
// deleted before returning. A readiness timeout is not an error: the result
// carries Success=false and a warning, and the orchestrator decides.
//
// # Catalog
//
// Catalog holds the definitions of the platform components. RegisterCatalog
// installs a factory for each of them, plus the k0s cluster, into a
// registry:
//
//	deps := deployer.Dependencies{Cluster: client, Images: cache, Archive: cache, Renderer: r, Runtime: rt}
//	if err := deployer.RegisterCatalog(reg, deps); err != nil {
//		return err
//	}
package deployer
