package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
)

func TestLoadStackSpec(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "data-platform.yaml")
	writeFile(t, yamlPath, `
components:
  - name: k0s
    environment: standalone
  - name: traefik
    dependencies: [k0s]
  - name: nifi
    dependencies: [traefik]
    config:
      replicas: 2
networking:
  - component: nifi
    path: /nifi
    service: nifi-service
    port: 8080
`)
	spec, err := LoadStackSpec(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "data-platform", spec.Name)
	require.Len(t, spec.Components, 3)
	assert.Equal(t, api.EnvironmentStandalone, spec.Components[0].Environment)
	assert.Equal(t, []string{"traefik"}, spec.Components[2].Dependencies)
	assert.Equal(t, 2, spec.Components[2].Config["replicas"])
	require.Len(t, spec.Networking, 1)
	assert.Equal(t, 8080, spec.Networking[0].Port)

	jsonPath := filepath.Join(dir, "other.json")
	writeFile(t, jsonPath, `{"name": "streaming", "components": [{"name": "kafka"}]}`)
	spec, err = LoadStackSpec(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "streaming", spec.Name)
	assert.Equal(t, "kafka", spec.Components[0].Name)
}

func TestLoadStackSpec_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		content   string
		errorType ErrorType
	}{
		{"no components", "name: empty\n", ErrorTypeValidation},
		{"unnamed component", "components:\n  - dependencies: [k0s]\n", ErrorTypeValidation},
		{"malformed", "components: {", ErrorTypeParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "stack.yaml")
			writeFile(t, path, tt.content)
			_, err := LoadStackSpec(path)
			assert.True(t, IsConfigurationError(err, tt.errorType), "got %v", err)
		})
	}

	_, err := LoadStackSpec(filepath.Join(dir, "missing.yaml"))
	assert.True(t, IsConfigurationError(err, ErrorTypeIO))
}

func TestLoadEnvironmentConfig(t *testing.T) {
	dir := t.TempDir()

	envPath := filepath.Join(dir, "nifi.env")
	writeFile(t, envPath, "# nifi settings\nNIFI_WEB_HTTP_PORT=8080\nSINGLE_USER_CREDENTIALS_USERNAME=admin\n")
	cfg, err := LoadEnvironmentConfig(envPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"NIFI_WEB_HTTP_PORT":               "8080",
		"SINGLE_USER_CREDENTIALS_USERNAME": "admin",
	}, cfg)

	jsonPath := filepath.Join(dir, "nifi.json")
	writeFile(t, jsonPath, `{"replicas": 2, "image": "apache/nifi:1.24.0"}`)
	cfg, err = LoadEnvironmentConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg["replicas"])
	assert.Equal(t, "apache/nifi:1.24.0", cfg["image"])

	_, err = LoadEnvironmentConfig(filepath.Join(dir, "missing.env"))
	assert.True(t, IsConfigurationError(err, ErrorTypeIO))
}

func TestLoadComponentImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "kafka.json"), `{"name": "kafka", "version": "7.5.0", "images": ["confluentinc/cp-kafka:7.5.0"]}`)
	writeFile(t, filepath.Join(dir, "grafana.json"), `{"images": ["grafana/grafana:10.2.0"]}`)
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")

	images, err := LoadComponentImages(dir)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "grafana", images[0].Name)
	assert.Equal(t, ComponentImages{Name: "kafka", Version: "7.5.0", Images: []string{"confluentinc/cp-kafka:7.5.0"}}, images[1])

	images, err = LoadComponentImages(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, images)

	writeFile(t, filepath.Join(dir, "broken.json"), "{")
	_, err = LoadComponentImages(dir)
	assert.True(t, IsConfigurationError(err, ErrorTypeParse))
}
