package api

import (
	"errors"
	"fmt"
	"strings"
)

// PrerequisiteError reports a missing upstream dependency of a component,
// such as an absent namespace, service or cluster access.
type PrerequisiteError struct {
	Component string
	// Missing names the dependency that was not found, e.g. "namespace/infometis".
	Missing string
	Err     error
}

func (e *PrerequisiteError) Error() string {
	msg := fmt.Sprintf("%s: prerequisite %s not satisfied", e.Component, e.Missing)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PrerequisiteError) Unwrap() error { return e.Err }

// ImageUnavailableError reports an image that is neither cached nor fetchable.
type ImageUnavailableError struct {
	Image string
	Err   error
}

func (e *ImageUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image %s unavailable: %v", e.Image, e.Err)
	}
	return fmt.Sprintf("image %s unavailable", e.Image)
}

func (e *ImageUnavailableError) Unwrap() error { return e.Err }

// ManifestApplyError reports that the cluster rejected a manifest. Stderr
// carries the underlying tool output or API message.
type ManifestApplyError struct {
	Component string
	Object    string
	Stderr    string
	Err       error
}

func (e *ManifestApplyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: applying manifest", e.Component)
	if e.Object != "" {
		fmt.Fprintf(&b, " (%s)", e.Object)
	}
	b.WriteString(" failed")
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\n%s", strings.TrimSpace(e.Stderr))
	}
	return b.String()
}

func (e *ManifestApplyError) Unwrap() error { return e.Err }

// ReadinessTimeoutError reports a resource that did not become ready in time.
// It is non-fatal: deployers turn it into a warning.
type ReadinessTimeoutError struct {
	Component string
	Resource  string
	Timeout   string
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s not ready after %s", e.Component, e.Resource, e.Timeout)
}

// UnknownComponentError is returned when resolving an unregistered component.
type UnknownComponentError struct {
	Name string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("component %s is not registered", e.Name)
}

// DuplicateComponentError is returned when registering a name twice.
type DuplicateComponentError struct {
	Name string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("component %s already registered", e.Name)
}

// StackNotFoundError is returned for unknown stack ids.
type StackNotFoundError struct {
	ID string
}

func (e *StackNotFoundError) Error() string {
	return fmt.Sprintf("stack %s not found", e.ID)
}

// CyclicDependencyError reports a dependency cycle. Cycle lists the names
// along the cycle, first element repeated at the end.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
}

// UnresolvedDependencyError reports a dependency that is not part of the
// component list.
type UnresolvedDependencyError struct {
	Component  string
	Dependency string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("component %s depends on %s, which is not part of the stack", e.Component, e.Dependency)
}

// UnsupportedEnvironmentError is returned when a component cannot run in the
// requested environment.
type UnsupportedEnvironmentError struct {
	Component   string
	Environment Environment
}

func (e *UnsupportedEnvironmentError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("unsupported environment %q", e.Environment)
	}
	return fmt.Sprintf("component %s does not support environment %q", e.Component, e.Environment)
}

// DeployError wraps the failure of one component inside a stack deployment.
type DeployError struct {
	StackID   string
	Component string
	Err       error
	// RollbackErr joins the cleanup failures hit while rolling back.
	RollbackErr error
}

func (e *DeployError) Error() string {
	msg := fmt.Sprintf("stack %s: deploying %s failed: %v", e.StackID, e.Component, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback: %v)", e.RollbackErr)
	}
	return msg
}

func (e *DeployError) Unwrap() error { return e.Err }

// IsPrerequisite reports whether err is or wraps a PrerequisiteError.
func IsPrerequisite(err error) bool {
	var target *PrerequisiteError
	return errors.As(err, &target)
}

// IsImageUnavailable reports whether err is or wraps an ImageUnavailableError.
func IsImageUnavailable(err error) bool {
	var target *ImageUnavailableError
	return errors.As(err, &target)
}

// IsManifestApply reports whether err is or wraps a ManifestApplyError.
func IsManifestApply(err error) bool {
	var target *ManifestApplyError
	return errors.As(err, &target)
}

// IsReadinessTimeout reports whether err is or wraps a ReadinessTimeoutError.
func IsReadinessTimeout(err error) bool {
	var target *ReadinessTimeoutError
	return errors.As(err, &target)
}

// IsUnknownComponent reports whether err is or wraps an UnknownComponentError.
func IsUnknownComponent(err error) bool {
	var target *UnknownComponentError
	return errors.As(err, &target)
}

// IsDuplicateComponent reports whether err is or wraps a DuplicateComponentError.
func IsDuplicateComponent(err error) bool {
	var target *DuplicateComponentError
	return errors.As(err, &target)
}

// IsStackNotFound reports whether err is or wraps a StackNotFoundError.
func IsStackNotFound(err error) bool {
	var target *StackNotFoundError
	return errors.As(err, &target)
}

// IsCyclicDependency reports whether err is or wraps a CyclicDependencyError.
func IsCyclicDependency(err error) bool {
	var target *CyclicDependencyError
	return errors.As(err, &target)
}

// IsUnresolvedDependency reports whether err is or wraps an UnresolvedDependencyError.
func IsUnresolvedDependency(err error) bool {
	var target *UnresolvedDependencyError
	return errors.As(err, &target)
}

// IsUnsupportedEnvironment reports whether err is or wraps an UnsupportedEnvironmentError.
func IsUnsupportedEnvironment(err error) bool {
	var target *UnsupportedEnvironmentError
	return errors.As(err, &target)
}

// IsNotFound reports the "not found" class of errors: unknown stacks and
// unknown components.
func IsNotFound(err error) bool {
	return IsStackNotFound(err) || IsUnknownComponent(err)
}
