// Package registry holds the component registry: a name to factory table the
// orchestrator uses to build a deployer for each component of a stack.
//
// Names are unique. A second registration under an existing name is rejected
// with api.DuplicateComponentError rather than replacing the first factory.
// Resolving an unknown name fails with api.UnknownComponentError.
//
// The registry is safe for concurrent use.
package registry
