// Package cluster is the Kubernetes client used by the component deployers.
//
// It wraps a controller-runtime client and works on unstructured objects, so
// any manifest can be applied without generated types. Apply is
// create-or-update and reports what it created, which lets a deployer undo
// a partially applied manifest. Deleting absent objects is not an error.
//
// The client connects lazily. The kubeconfig is written by the k0s cluster
// deployer, so it usually does not exist when the process starts.
package cluster
