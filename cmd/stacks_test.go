package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
	"infometis/internal/config"
)

func testStack(id, name string, state api.StackState) *api.StackDeployment {
	return &api.StackDeployment{
		ID:         id,
		Name:       name,
		Spec:       api.StackSpec{Name: name, Components: []api.ComponentSpec{{Name: "kafka"}}},
		Components: []*api.ComponentDeployment{{Component: "kafka", Status: api.ComponentDeployed}},
		DeployedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:     state,
	}
}

func TestStacks_Empty(t *testing.T) {
	out, err := executeCommand(t, t.TempDir(), "stacks")
	require.NoError(t, err)
	assert.Contains(t, out, "No stacks deployed")
}

func TestStacks_ListAndHistory(t *testing.T) {
	dir := t.TempDir()
	seedStack(t, dir, testStack("stack-1", "streaming", api.StackDeployed))
	seedStack(t, dir, testStack("stack-2", "old", api.StackRemoved))

	out, err := executeCommand(t, dir, "stacks", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "stack-1")
	assert.NotContains(t, out, "stack-2")

	out, err = executeCommand(t, dir, "stacks", "--all", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "stack-1")
	assert.Contains(t, out, "stack-2")

	out, err = executeCommand(t, dir, "stacks", "streaming", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "id: stack-1")
}

func TestStacks_UnknownStack(t *testing.T) {
	_, err := executeCommand(t, t.TempDir(), "stacks", "missing")
	assert.True(t, api.IsStackNotFound(err), "got %v", err)
}

func TestStacks_Definitions(t *testing.T) {
	dir := t.TempDir()
	out, err := executeCommand(t, dir, "stacks", "--definitions")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored stack definitions")

	storage := config.NewStackStorageWithPath(dir)
	require.NoError(t, storage.Save(api.StackSpec{Name: "search", Components: []api.ComponentSpec{{Name: "elasticsearch"}}}))
	require.NoError(t, storage.Save(api.StackSpec{Name: "analytics", Components: []api.ComponentSpec{{Name: "kafka"}}}))

	out, err = executeCommand(t, dir, "stacks", "--definitions")
	require.NoError(t, err)
	assert.Contains(t, out, "1. analytics")
	assert.Contains(t, out, "2. search")
}

func TestStacks_Health(t *testing.T) {
	dir := t.TempDir()
	seedStack(t, dir, testStack("stack-1", "streaming", api.StackDeployed))

	out, err := executeCommand(t, dir, "stacks", "streaming", "--health", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"stackId": "stack-1"`)
	assert.Contains(t, out, `"component": "kafka"`)
}

func TestStacks_Prune(t *testing.T) {
	dir := t.TempDir()
	seedStack(t, dir, testStack("stack-1", "streaming", api.StackDeployed))
	seedStack(t, dir, testStack("stack-2", "old", api.StackRemoved))

	out, err := executeCommand(t, dir, "stacks", "--prune")
	require.NoError(t, err)
	assert.Contains(t, out, "1 removed stacks pruned")

	out, err = executeCommand(t, dir, "stacks", "--all", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "stack-1")
	assert.NotContains(t, out, "stack-2")
}
