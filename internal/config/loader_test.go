package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfigDir, EnvKubeconfig, EnvCacheDir, EnvStoreDriver, EnvStorePath, EnvServerPort, EnvClusterImage} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "infometis", cfg.Cluster.Name)
	assert.Equal(t, DefaultClusterImage, cfg.Cluster.Image)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "kubeconfig"), cfg.Cluster.Kubeconfig)
	assert.Equal(t, filepath.Join(dir, "cache"), cfg.Cache.Dir)
	assert.Equal(t, filepath.Join(dir, "stacks.db"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(dir, "images"), cfg.Deploy.ImagesDir)
	assert.Equal(t, DefaultTransferTimeout, cfg.Cache.TransferTimeout)
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), `
cluster:
  name: lab
  apiPort: 16443
cache:
  dir: /var/cache/infometis
store:
  driver: sqlite
  path: data/stacks.db
deploy:
  pollInterval: 2s
  readinessTimeouts:
    elasticsearch: 5m
components:
  nifi:
    replicas: 2
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "lab", cfg.Cluster.Name)
	assert.Equal(t, 16443, cfg.Cluster.APIPort)
	// Unset fields keep their defaults.
	assert.Equal(t, "infometis", cfg.Cluster.Namespace)
	assert.Equal(t, "/var/cache/infometis", cfg.Cache.Dir)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "data", "stacks.db"), cfg.Store.Path)
	assert.Equal(t, 2*time.Second, cfg.Deploy.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Deploy.ReadinessTimeouts["elasticsearch"])
	assert.Equal(t, map[string]any{"replicas": 2}, cfg.ComponentConfig("nifi"))
	assert.Nil(t, cfg.ComponentConfig("kafka"))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "server:\n  port: 9000\n")

	t.Setenv(EnvServerPort, "9100")
	t.Setenv(EnvStoreDriver, StoreMemory)
	t.Setenv(EnvKubeconfig, "/tmp/kube/config")
	t.Setenv(EnvClusterImage, "k0sproject/k0s:v1.31.1-k0s.0")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "/tmp/kube/config", cfg.Cluster.Kubeconfig)
	assert.Equal(t, "k0sproject/k0s:v1.31.1-k0s.0", cfg.Cluster.Image)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errorType ErrorType
	}{
		{
			name:      "malformed yaml",
			content:   "cluster: [unterminated",
			errorType: ErrorTypeParse,
		},
		{
			name:      "wrong type",
			content:   "cluster:\n  apiPort: lots\n",
			errorType: ErrorTypeParse,
		},
		{
			name:      "invalid values",
			content:   "store:\n  driver: postgres\n",
			errorType: ErrorTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "config.yaml"), tt.content)

			_, err := LoadConfig(dir)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err, tt.errorType), "got %v", err)
		})
	}
}

func TestGetDefaultConfigPathOrPanic(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	orig := osUserHomeDir
	t.Cleanup(func() { osUserHomeDir = orig })
	osUserHomeDir = func() (string, error) { return "/home/test", nil }

	assert.Equal(t, "/home/test/.config/infometis", GetDefaultConfigPathOrPanic())

	t.Setenv(EnvConfigDir, "/etc/infometis")
	assert.Equal(t, "/etc/infometis", GetDefaultConfigPathOrPanic())
}

func TestExpandHome(t *testing.T) {
	orig := osUserHomeDir
	t.Cleanup(func() { osUserHomeDir = orig })
	osUserHomeDir = func() (string, error) { return "/home/test", nil }

	assert.Equal(t, "/home/test/cache", expandHome("~/cache"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "relative", expandHome("relative"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "INFOMETIS_TEST_DOTENV=from-file\nINFOMETIS_TEST_PRESET=from-file\n")

	t.Setenv("INFOMETIS_TEST_PRESET", "from-env")
	t.Cleanup(func() { os.Unsetenv("INFOMETIS_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("INFOMETIS_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("INFOMETIS_TEST_PRESET"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
