package deployer

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"

	"infometis/internal/api"
	"infometis/internal/containerizer"
	"infometis/internal/executor"
)

const k0sAdminKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://172.17.0.2:6443
    certificate-authority-data: ""
  name: local
contexts:
- context:
    cluster: local
    namespace: default
    user: user
  name: Default
current-context: Default
users:
- name: user
  user:
    token: abc
`

const (
	inspectCmd    = "docker inspect -f {{.State.Running}} infometis-k0s"
	nodesCmd      = "docker exec infometis-k0s k0s kubectl get nodes --no-headers"
	kubeconfigCmd = "docker exec infometis-k0s k0s kubeconfig admin"
)

func newTestClusterDeployer(t *testing.T, runner *executor.FakeRunner) (*ClusterDeployer, string, *int) {
	t.Helper()
	return newArchiveClusterDeployer(t, runner, nil)
}

func newArchiveClusterDeployer(t *testing.T, runner *executor.FakeRunner, archive ImageArchive) (*ClusterDeployer, string, *int) {
	t.Helper()
	kubeconfig := filepath.Join(t.TempDir(), "kube", "config")
	reloads := 0
	d := NewClusterDeployer(ClusterConfig{
		ContainerName: "infometis-k0s",
		Image:         "k0sproject/k0s:v1.30.0-k0s.0",
		Ports:         []string{"80:80"},
		APIPort:       16443,
		Kubeconfig:    kubeconfig,
		ReadyTimeout:  100 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
	}, containerizer.NewDockerRuntime(runner), archive, func() { reloads++ })
	return d, kubeconfig, &reloads
}

func readyRunner() *executor.FakeRunner {
	return executor.NewFakeRunner().
		On(inspectCmd, executor.FakeResponse{ExitCode: 1, Stderr: "Error: No such object: infometis-k0s"}).
		On(nodesCmd, executor.FakeResponse{Stdout: "infometis-k0s   Ready   control-plane   1m   v1.30.0+k0s\n"}).
		On(kubeconfigCmd, executor.FakeResponse{Stdout: k0sAdminKubeconfig})
}

func TestClusterDeployerDeploy(t *testing.T) {
	runner := readyRunner()
	d, kubeconfig, reloads := newTestClusterDeployer(t, runner)

	assert.Equal(t, "k0s", d.Name())
	assert.Equal(t, MethodContainer, d.Method())
	assert.Equal(t, "k0sproject/k0s:v1.30.0-k0s.0", d.Image())

	result, err := d.Deploy(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "https://localhost:16443", result.Endpoints["api"])

	assert.True(t, runner.Called("docker rm -f infometis-k0s"))
	assert.True(t, runner.Called("docker run -d --name infometis-k0s --hostname infometis-k0s --privileged -p 16443:6443 -p 80:80 -v /var/lib/k0s k0sproject/k0s:v1.30.0-k0s.0 k0s controller --enable-worker --no-taints"),
		"calls: %v", runner.Calls())

	cfg, err := clientcmd.LoadFromFile(kubeconfig)
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:16443", cfg.Clusters["local"].Server)
	assert.Equal(t, 1, *reloads)
}

func TestClusterDeployerReusesRunningContainer(t *testing.T) {
	runner := readyRunner().On(inspectCmd, executor.FakeResponse{Stdout: "true\n"})
	d, _, _ := newTestClusterDeployer(t, runner)

	_, err := d.Deploy(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, runner.Called("docker run"))
	assert.False(t, runner.Called("docker rm"))
}

func TestClusterDeployerImageUnavailable(t *testing.T) {
	runner := readyRunner().
		On("docker image inspect", executor.FakeResponse{ExitCode: 1, Stderr: "No such image"}).
		On("docker pull", executor.FakeResponse{ExitCode: 1, Stderr: "manifest unknown"})
	d, _, _ := newTestClusterDeployer(t, runner)

	_, err := d.Deploy(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, api.IsImageUnavailable(err))
	assert.False(t, runner.Called("docker run"))
}

// fakeArchive maps images onto cached tarball paths.
type fakeArchive map[string]string

func (a fakeArchive) Path(image string) (string, bool) {
	path, ok := a[image]
	return path, ok
}

func TestClusterDeployerLoadsCachedImage(t *testing.T) {
	const tarball = "/cache/k0sproject_k0s_v1.30.0-k0s.0.tar"
	archive := fakeArchive{"k0sproject/k0s:v1.30.0-k0s.0": tarball}

	t.Run("cached tarball is loaded", func(t *testing.T) {
		runner := readyRunner().
			On("docker image inspect", executor.FakeResponse{ExitCode: 1, Stderr: "No such image"}).
			On("docker pull", executor.FakeResponse{ExitCode: 1, Stderr: "dial tcp: no such host"})
		d, _, _ := newArchiveClusterDeployer(t, runner, archive)

		result, err := d.Deploy(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, runner.Called("docker load -i "+tarball))
		assert.False(t, runner.Called("docker pull"))
		assert.True(t, runner.Called("docker run"))
	})

	t.Run("failed load falls back to pull", func(t *testing.T) {
		runner := readyRunner().
			On("docker image inspect", executor.FakeResponse{ExitCode: 1, Stderr: "No such image"}).
			On("docker load", executor.FakeResponse{ExitCode: 1, Stderr: "unexpected EOF"})
		d, _, _ := newArchiveClusterDeployer(t, runner, archive)

		_, err := d.Deploy(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, runner.Called("docker load"))
		assert.True(t, runner.Called("docker pull k0sproject/k0s:v1.30.0-k0s.0"))
	})

	t.Run("load and pull both fail", func(t *testing.T) {
		runner := readyRunner().
			On("docker image inspect", executor.FakeResponse{ExitCode: 1, Stderr: "No such image"}).
			On("docker load", executor.FakeResponse{ExitCode: 1, Stderr: "unexpected EOF"}).
			On("docker pull", executor.FakeResponse{ExitCode: 1, Stderr: "dial tcp: no such host"})
		d, _, _ := newArchiveClusterDeployer(t, runner, archive)

		_, err := d.Deploy(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, api.IsImageUnavailable(err))
		assert.False(t, runner.Called("docker run"))
	})

	t.Run("local image needs neither", func(t *testing.T) {
		runner := readyRunner()
		d, _, _ := newArchiveClusterDeployer(t, runner, archive)

		_, err := d.Deploy(context.Background(), nil)
		require.NoError(t, err)
		assert.False(t, runner.Called("docker load"))
		assert.False(t, runner.Called("docker pull"))
	})
}

func TestClusterDeployerNodeNotReadyIsAWarning(t *testing.T) {
	runner := readyRunner().On(nodesCmd, executor.FakeResponse{Stdout: "infometis-k0s   NotReady   control-plane   1m   v1.30.0+k0s\n"})
	d, kubeconfig, _ := newTestClusterDeployer(t, runner)

	result, err := d.Deploy(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "node/infometis-k0s not ready")
	assert.FileExists(t, kubeconfig)
}

func TestClusterDeployerCleanup(t *testing.T) {
	runner := readyRunner()
	d, kubeconfig, reloads := newTestClusterDeployer(t, runner)

	_, err := d.Deploy(context.Background(), nil)
	require.NoError(t, err)

	runner.On(inspectCmd, executor.FakeResponse{Stdout: "true\n"})
	require.NoError(t, d.Cleanup(context.Background()))
	_, statErr := os.Stat(kubeconfig)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 2, *reloads)

	calls := runner.Calls()
	stop := slices.Index(calls, "docker stop infometis-k0s")
	remove := slices.Index(calls[stop+1:], "docker rm -f infometis-k0s")
	require.NotEqual(t, -1, stop, "calls: %v", calls)
	assert.NotEqual(t, -1, remove, "container must be removed after it is stopped")

	// Nothing left: still fine.
	runner.On(inspectCmd, executor.FakeResponse{ExitCode: 1, Stderr: "Error: No such object: infometis-k0s"})
	runner.On("docker rm -f infometis-k0s", executor.FakeResponse{ExitCode: 1, Stderr: "Error: No such container: infometis-k0s"})
	require.NoError(t, d.Cleanup(context.Background()))
}

func TestClusterDeployerGetStatus(t *testing.T) {
	tests := []struct {
		name     string
		inspect  executor.FakeResponse
		nodes    executor.FakeResponse
		expected api.Health
	}{
		{
			name:     "container missing",
			inspect:  executor.FakeResponse{ExitCode: 1, Stderr: "Error: No such object"},
			expected: api.HealthFailed,
		},
		{
			name:     "node ready",
			inspect:  executor.FakeResponse{Stdout: "true"},
			nodes:    executor.FakeResponse{Stdout: "k0s Ready control-plane 1m v1.30.0"},
			expected: api.HealthHealthy,
		},
		{
			name:     "node not ready",
			inspect:  executor.FakeResponse{Stdout: "true"},
			nodes:    executor.FakeResponse{Stdout: "k0s NotReady control-plane 1m v1.30.0"},
			expected: api.HealthPending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := executor.NewFakeRunner().On(inspectCmd, tt.inspect).On(nodesCmd, tt.nodes)
			d, _, _ := newTestClusterDeployer(t, runner)

			report, err := d.GetStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, report.Health)
		})
	}
}

func TestClusterDeployerValidate(t *testing.T) {
	runner := readyRunner()
	d, _, _ := newTestClusterDeployer(t, runner)

	report, err := d.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid, "issues: %v", report.Issues)

	bad := NewClusterDeployer(ClusterConfig{Image: "::"}, containerizer.NewDockerRuntime(runner), nil, nil)
	report, err = bad.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Len(t, report.Issues, 3)

	runner.On("docker info", executor.FakeResponse{ExitCode: 1, Stderr: "Cannot connect to the Docker daemon"})
	report, err = d.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Issues[0], "docker daemon not accessible")
}
