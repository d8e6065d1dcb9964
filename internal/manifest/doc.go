// Package manifest renders the Kubernetes manifests of the platform
// components.
//
// Manifests are embedded text/template files with the sprig function
// library and a helm style include helper. Rendering yields a
// multi-document YAML stream that Decode turns into unstructured objects in
// document order. Deployers apply them in that order and delete them in
// reverse.
package manifest
