package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorPredicatesThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"prerequisite", &PrerequisiteError{Component: "nifi", Missing: "namespace/infometis"}, IsPrerequisite},
		{"image", &ImageUnavailableError{Image: "apache/nifi:1.23.2"}, IsImageUnavailable},
		{"manifest", &ManifestApplyError{Component: "nifi"}, IsManifestApply},
		{"readiness", &ReadinessTimeoutError{Component: "nifi", Resource: "statefulset/nifi", Timeout: "5m0s"}, IsReadinessTimeout},
		{"unknown", &UnknownComponentError{Name: "foo"}, IsUnknownComponent},
		{"duplicate", &DuplicateComponentError{Name: "foo"}, IsDuplicateComponent},
		{"stack", &StackNotFoundError{ID: "abc"}, IsStackNotFound},
		{"cycle", &CyclicDependencyError{Cycle: []string{"a", "b", "a"}}, IsCyclicDependency},
		{"unresolved", &UnresolvedDependencyError{Component: "a", Dependency: "z"}, IsUnresolvedDependency},
		{"environment", &UnsupportedEnvironmentError{Environment: "podman"}, IsUnsupportedEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(wrapped))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestDeployErrorUnwrapsComponentFailure(t *testing.T) {
	cause := &ManifestApplyError{Component: "traefik", Stderr: "admission webhook denied"}
	err := &DeployError{StackID: "s1", Component: "traefik", Err: cause, RollbackErr: errors.New("k0s: boom")}

	assert.True(t, IsManifestApply(err))
	assert.Contains(t, err.Error(), "deploying traefik failed")
	assert.Contains(t, err.Error(), "rollback: k0s: boom")
	assert.Contains(t, err.Error(), "admission webhook denied")
}

func TestCyclicDependencyErrorMessage(t *testing.T) {
	err := &CyclicDependencyError{Cycle: []string{"a", "b", "a"}}
	assert.Equal(t, "cyclic dependency: a -> b -> a", err.Error())
}

func TestParseEnvironment(t *testing.T) {
	env, err := ParseEnvironment("")
	require.NoError(t, err)
	assert.Equal(t, EnvironmentAuto, env)

	env, err = ParseEnvironment("kubernetes")
	require.NoError(t, err)
	assert.Equal(t, EnvironmentKubernetes, env)

	_, err = ParseEnvironment("podman")
	assert.True(t, IsUnsupportedEnvironment(err))
}

func TestMergeConfig(t *testing.T) {
	base := map[string]any{"replicas": 1, "image": "a"}
	override := map[string]any{"image": "b"}

	merged := MergeConfig(base, override)

	assert.Equal(t, map[string]any{"replicas": 1, "image": "b"}, merged)
	assert.Equal(t, "a", base["image"], "base must not be mutated")
}
