package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"infometis/internal/api"
	"infometis/internal/cluster"
	"infometis/internal/config"
	"infometis/internal/deployer"
	"infometis/internal/executor"
	"infometis/internal/store"
	"infometis/internal/store/sqlite"
	"infometis/pkg/logging"
)

type scriptedReader struct{ lines []string }

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}
func (r *scriptedReader) SetPrompt(string) {}
func (r *scriptedReader) Close() error     { return nil }

func testConfig(t *testing.T) (config.InfometisConfig, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.GetDefaultConfig()
	cfg.Cluster.Kubeconfig = filepath.Join(dir, "kubeconfig")
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Store.Path = filepath.Join(dir, "stacks.db")
	cfg.Deploy.ImagesDir = filepath.Join(dir, "images")
	return cfg, dir
}

func testOptions() Options {
	return Options{
		Runner:     executor.NewFakeRunner(),
		KubeClient: fake.NewClientBuilder().WithScheme(cluster.NewScheme()).Build(),
	}
}

func TestInitializeServices(t *testing.T) {
	cfg, dir := testConfig(t)

	services, err := InitializeServices(context.Background(), cfg, dir, testOptions())
	require.NoError(t, err)
	defer services.Close()

	assert.Equal(t, deployer.Names(), services.Registry.List())
	assert.Equal(t, deployer.Names(), services.Orchestrator.Components())
	assert.Len(t, services.Images, len(deployer.AllImages(cfg.Cluster.Image, nil)))
	assert.Equal(t, cfg.Cluster.Image, services.Images[0])

	status, err := services.Orchestrator.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "infometis", status.Cluster)
}

func TestInitializeServices_ImageOverrides(t *testing.T) {
	cfg, dir := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Deploy.ImagesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Deploy.ImagesDir, "kafka.json"),
		[]byte(`{"name": "kafka", "version": "7.6.1", "images": ["confluentinc/cp-kafka:7.6.1"]}`), 0o644))

	services, err := InitializeServices(context.Background(), cfg, dir, testOptions())
	require.NoError(t, err)
	defer services.Close()

	assert.Contains(t, services.Images, "confluentinc/cp-kafka:7.6.1")
	assert.NotContains(t, services.Images, "confluentinc/cp-kafka:7.5.0")
}

func TestInitializeServices_ComponentDefaults(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Components = map[string]map[string]any{"grafana": {"image": "grafana/grafana:10.4.0"}}

	services, err := InitializeServices(context.Background(), cfg, dir, testOptions())
	require.NoError(t, err)
	defer services.Close()

	d, err := services.Registry.Resolve("grafana", api.EnvironmentKubernetes, nil)
	require.NoError(t, err)
	assert.Equal(t, "grafana/grafana:10.4.0", d.(api.MethodReporter).Image())

	d, err = services.Registry.Resolve("grafana", api.EnvironmentKubernetes, map[string]any{"image": "grafana/grafana:11.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "grafana/grafana:11.0.0", d.(api.MethodReporter).Image())
}

func TestInitializeServices_DefaultStoreIsSQLite(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Store.Path = filepath.Join(dir, "data", "stacks.db")

	services, err := InitializeServices(context.Background(), cfg, dir, testOptions())
	require.NoError(t, err)
	defer services.Close()

	assert.IsType(t, &sqlite.StackStore{}, services.Store)
	assert.FileExists(t, cfg.Store.Path)
}

func TestInitializeServices_MemoryStore(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Store.Driver = config.StoreMemory

	services, err := InitializeServices(context.Background(), cfg, dir, testOptions())
	require.NoError(t, err)
	defer services.Close()

	assert.IsType(t, &store.MemoryStore{}, services.Store)
	assert.NoFileExists(t, cfg.Store.Path)
}

func TestInitializeServices_Errors(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Store.Driver = "postgres"
	_, err := InitializeServices(context.Background(), cfg, dir, testOptions())
	assert.ErrorContains(t, err, "unknown store driver")

	cfg, dir = testConfig(t)
	cfg.Cluster.Runtime = "lxc"
	_, err = InitializeServices(context.Background(), cfg, dir, testOptions())
	assert.ErrorContains(t, err, "unsupported container runtime")
}

func TestNewApplication(t *testing.T) {
	for _, key := range []string{config.EnvKubeconfig, config.EnvCacheDir, config.EnvStoreDriver, config.EnvStorePath, config.EnvServerPort, config.EnvClusterImage} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()

	application, err := NewApplication(context.Background(), NewConfig(dir, logging.LevelError, io.Discard), testOptions())
	require.NoError(t, err)
	defer application.Close()

	assert.Equal(t, dir, application.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "kubeconfig"), application.Services.Config.Cluster.Kubeconfig)

	srv, err := application.NewServer()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/components", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "elasticsearch")

	var out bytes.Buffer
	c, err := application.NewConsole(&scriptedReader{lines: []string{"4", "b", "q"}}, &out, false)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, out.String(), "Deploy stack infometis")
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: -1\n"), 0o644))

	_, err := NewApplication(context.Background(), NewConfig(dir, logging.LevelError, io.Discard), testOptions())
	assert.Error(t, err)
	assert.True(t, config.IsConfigurationError(err, config.ErrorTypeValidation))
}
