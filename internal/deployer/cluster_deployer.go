package deployer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	"k8s.io/client-go/tools/clientcmd"

	"infometis/internal/api"
	"infometis/internal/containerizer"
	"infometis/internal/poll"
	"infometis/pkg/logging"
)

// MethodContainer is reported for the cluster container.
const MethodContainer = "container"

// ClusterConfig configures the k0s cluster container.
type ClusterConfig struct {
	ContainerName string
	Image         string
	Hostname      string
	// Ports are published host:container pairs; the API port is added
	// automatically.
	Ports      []string
	APIPort    int
	Kubeconfig string
	// ReadyTimeout bounds the wait for the node to report Ready.
	ReadyTimeout time.Duration
	PollInterval time.Duration
}

// ClusterDeployer runs k0s in a privileged container and exports its admin
// kubeconfig.
type ClusterDeployer struct {
	cfg     ClusterConfig
	runtime containerizer.ContainerRuntime
	archive ImageArchive
	// onKubeconfig is called after the kubeconfig changed, so cached
	// clients reconnect.
	onKubeconfig func()
}

// NewClusterDeployer creates the k0s deployer. archive may be nil, then the
// cluster image always comes from the registry.
func NewClusterDeployer(cfg ClusterConfig, runtime containerizer.ContainerRuntime, archive ImageArchive, onKubeconfig func()) *ClusterDeployer {
	if cfg.Hostname == "" {
		cfg.Hostname = cfg.ContainerName
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 6443
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if onKubeconfig == nil {
		onKubeconfig = func() {}
	}
	return &ClusterDeployer{cfg: cfg, runtime: runtime, archive: archive, onKubeconfig: onKubeconfig}
}

func (d *ClusterDeployer) Name() string { return "k0s" }

func (d *ClusterDeployer) Method() string { return MethodContainer }

func (d *ClusterDeployer) Image() string { return d.cfg.Image }

// Deploy starts the cluster container unless it is already running, waits
// for the node and writes the kubeconfig. A node that does not become
// Ready in time is a warning.
func (d *ClusterDeployer) Deploy(ctx context.Context, cfg map[string]any) (*api.DeploymentResult, error) {
	start := time.Now()
	result := &api.DeploymentResult{
		Endpoints: map[string]string{"api": fmt.Sprintf("https://localhost:%d", d.cfg.APIPort)},
	}

	running, err := d.runtime.IsContainerRunning(ctx, d.cfg.ContainerName)
	if err != nil {
		return nil, &api.PrerequisiteError{Component: "k0s", Missing: "container runtime", Err: err}
	}

	if running {
		logging.Info(subsystem, "Cluster container %s already running", d.cfg.ContainerName)
	} else {
		// A stopped container with the same name blocks docker run.
		if err := d.runtime.RemoveContainer(ctx, d.cfg.ContainerName); err != nil {
			return nil, err
		}
		if err := d.ensureImage(ctx); err != nil {
			return nil, err
		}
		if _, err := d.runtime.StartContainer(ctx, d.containerConfig()); err != nil {
			return nil, err
		}
	}

	err = poll.Until(ctx, d.cfg.PollInterval, d.cfg.ReadyTimeout, func(ctx context.Context) (bool, error) {
		return d.nodeReady(ctx), nil
	})
	switch {
	case errors.Is(err, poll.ErrTimeout):
		timeoutErr := &api.ReadinessTimeoutError{Component: "k0s", Resource: "node/" + d.cfg.Hostname, Timeout: d.cfg.ReadyTimeout.String()}
		logging.Warn(subsystem, "%v", timeoutErr)
		result.Warnings = append(result.Warnings, timeoutErr.Error())
	case err != nil:
		return nil, err
	}

	if err := d.writeKubeconfig(ctx); err != nil {
		return nil, err
	}

	result.Success = len(result.Warnings) == 0
	result.Phase = string(PhaseVerified)
	if !result.Success {
		result.Phase = string(PhaseVerifiedWithWarnings)
	}
	result.Duration = time.Since(start)
	logging.Info(subsystem, "Cluster %s ready, kubeconfig at %s", d.cfg.ContainerName, d.cfg.Kubeconfig)
	return result, nil
}

// ensureImage makes the cluster image available to the runtime. A cached
// tarball is loaded first; the registry is the fallback.
func (d *ClusterDeployer) ensureImage(ctx context.Context) error {
	exists, err := d.runtime.ImageExists(ctx, d.cfg.Image)
	if err != nil {
		return &api.ImageUnavailableError{Image: d.cfg.Image, Err: err}
	}
	if exists {
		return nil
	}

	if d.archive != nil {
		if path, ok := d.archive.Path(d.cfg.Image); ok {
			logging.Info(subsystem, "Loading %s from %s", d.cfg.Image, path)
			err := d.runtime.LoadImage(ctx, path)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn(subsystem, "Could not load cached %s, pulling it instead: %v", d.cfg.Image, err)
		}
	}

	if err := d.runtime.PullImage(ctx, d.cfg.Image); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &api.ImageUnavailableError{Image: d.cfg.Image, Err: err}
	}
	return nil
}

func (d *ClusterDeployer) containerConfig() containerizer.ContainerConfig {
	ports := append([]string{fmt.Sprintf("%d:6443", d.cfg.APIPort)}, d.cfg.Ports...)
	return containerizer.ContainerConfig{
		Name:       d.cfg.ContainerName,
		Image:      d.cfg.Image,
		Hostname:   d.cfg.Hostname,
		Privileged: true,
		Ports:      ports,
		Volumes:    []string{"/var/lib/k0s"},
		Command:    []string{"k0s", "controller", "--enable-worker", "--no-taints"},
	}
}

func (d *ClusterDeployer) nodeReady(ctx context.Context) bool {
	out, err := d.runtime.Exec(ctx, d.cfg.ContainerName, "k0s", "kubectl", "get", "nodes", "--no-headers")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "Ready" {
			return true
		}
	}
	return false
}

// writeKubeconfig exports the admin kubeconfig with the server pointed at
// the published API port.
func (d *ClusterDeployer) writeKubeconfig(ctx context.Context) error {
	out, err := d.runtime.Exec(ctx, d.cfg.ContainerName, "k0s", "kubeconfig", "admin")
	if err != nil {
		return &api.PrerequisiteError{Component: "k0s", Missing: "admin kubeconfig", Err: err}
	}
	kubeconfig, err := clientcmd.Load([]byte(out))
	if err != nil {
		return fmt.Errorf("parse k0s kubeconfig: %w", err)
	}
	for _, c := range kubeconfig.Clusters {
		c.Server = fmt.Sprintf("https://localhost:%d", d.cfg.APIPort)
	}

	if err := os.MkdirAll(filepath.Dir(d.cfg.Kubeconfig), 0o700); err != nil {
		return fmt.Errorf("create kubeconfig dir: %w", err)
	}
	if err := clientcmd.WriteToFile(*kubeconfig, d.cfg.Kubeconfig); err != nil {
		return fmt.Errorf("write kubeconfig: %w", err)
	}
	d.onKubeconfig()
	return nil
}

// Cleanup stops k0s, then removes the container and the kubeconfig. Both
// may be absent.
func (d *ClusterDeployer) Cleanup(ctx context.Context) error {
	if running, err := d.runtime.IsContainerRunning(ctx, d.cfg.ContainerName); err == nil && running {
		if err := d.runtime.StopContainer(ctx, d.cfg.ContainerName); err != nil {
			logging.Warn(subsystem, "Could not stop %s, removing it anyway: %v", d.cfg.ContainerName, err)
		}
	}
	logging.Info(subsystem, "Removing cluster container %s", d.cfg.ContainerName)
	if err := d.runtime.RemoveContainer(ctx, d.cfg.ContainerName); err != nil {
		return err
	}
	if err := os.Remove(d.cfg.Kubeconfig); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove kubeconfig: %w", err)
	}
	d.onKubeconfig()
	return nil
}

func (d *ClusterDeployer) GetStatus(ctx context.Context) (*api.StatusReport, error) {
	report := &api.StatusReport{
		Component: "k0s",
		Details:   map[string]string{"container": d.cfg.ContainerName},
	}
	running, err := d.runtime.IsContainerRunning(ctx, d.cfg.ContainerName)
	if err != nil {
		return nil, err
	}
	switch {
	case !running:
		report.Health = api.HealthFailed
		report.Message = "container not running"
	case d.nodeReady(ctx):
		report.Health = api.HealthHealthy
		report.Message = "node ready"
	default:
		report.Health = api.HealthPending
		report.Message = "node not ready"
	}
	return report, nil
}

// pinger is implemented by runtimes that can check their daemon.
type pinger interface {
	Ping(ctx context.Context) error
}

func (d *ClusterDeployer) Validate(ctx context.Context) (*api.ValidationReport, error) {
	report := &api.ValidationReport{Component: "k0s"}
	if d.cfg.ContainerName == "" {
		report.Issues = append(report.Issues, "container name is empty")
	}
	if d.cfg.Kubeconfig == "" {
		report.Issues = append(report.Issues, "kubeconfig path is empty")
	}
	if _, err := name.ParseReference(d.cfg.Image); err != nil {
		report.Issues = append(report.Issues, fmt.Sprintf("image %s: %v", d.cfg.Image, err))
	}
	if p, ok := d.runtime.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			report.Issues = append(report.Issues, err.Error())
		}
	} else if _, err := d.runtime.IsContainerRunning(ctx, d.cfg.ContainerName); err != nil {
		report.Issues = append(report.Issues, fmt.Sprintf("container runtime: %v", err))
	}
	report.Valid = len(report.Issues) == 0
	return report, nil
}
