package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
	"infometis/internal/app"
	"infometis/internal/config"
)

func TestDeploy_InvalidEnvironment(t *testing.T) {
	_, err := executeCommand(t, t.TempDir(), "deploy", "kafka", "--env", "mainframe")
	assert.True(t, api.IsUnsupportedEnvironment(err), "got %v", err)
}

func TestDeploy_ComponentAndStack(t *testing.T) {
	_, err := executeCommand(t, t.TempDir(), "deploy", "kafka", "--stack", "streaming")
	assert.ErrorContains(t, err, "cannot be combined")
}

func TestDeploy_UnknownComponent(t *testing.T) {
	out, err := executeCommand(t, t.TempDir(), "deploy", "hadoop")
	assert.True(t, api.IsUnknownComponent(err), "got %v", err)
	assert.Contains(t, out, "hadoop deployment failed")
}

func TestDeploy_MissingConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, err := executeCommand(t, dir, "deploy", "kafka", "--config", filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestDeploy_UnknownStoredStack(t *testing.T) {
	_, err := executeCommand(t, t.TempDir(), "deploy", "--stack", "streaming")
	assert.Error(t, err)
}

func TestResolveStack(t *testing.T) {
	dir := t.TempDir()
	application := &app.Application{Services: &app.Services{Stacks: config.NewStackStorageWithPath(dir)}}

	spec, err := resolveStack(application, "")
	require.NoError(t, err)
	assert.Equal(t, app.DefaultStackName, spec.Name)
	assert.Equal(t, "k0s", spec.Components[0].Name)

	file := filepath.Join(dir, "analytics.yaml")
	require.NoError(t, os.WriteFile(file, []byte("components:\n  - name: kafka\n  - name: ksqldb\n    dependencies: [kafka]\n"), 0o644))
	spec, err = resolveStack(application, file)
	require.NoError(t, err)
	assert.Equal(t, "analytics", spec.Name)
	assert.Len(t, spec.Components, 2)

	require.NoError(t, application.Services.Stacks.Save(api.StackSpec{
		Name:       "search",
		Components: []api.ComponentSpec{{Name: "elasticsearch"}},
	}))
	spec, err = resolveStack(application, "search")
	require.NoError(t, err)
	assert.Equal(t, "elasticsearch", spec.Components[0].Name)
}
