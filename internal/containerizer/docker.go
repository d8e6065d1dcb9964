package containerizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"infometis/internal/executor"
	"infometis/pkg/logging"
)

const dockerSubsystem = "Docker"

// DockerRuntime implements ContainerRuntime using the Docker CLI
type DockerRuntime struct {
	runner executor.Runner
	binary string
}

// NewDockerRuntime creates a new Docker runtime instance. Availability of
// the daemon is checked lazily by Ping so construction never fails.
func NewDockerRuntime(runner executor.Runner) *DockerRuntime {
	return &DockerRuntime{runner: runner, binary: "docker"}
}

// Ping checks that the binary is installed and the daemon is accessible.
func (d *DockerRuntime) Ping(ctx context.Context) error {
	if looker, ok := d.runner.(executor.PathLooker); ok {
		if err := looker.LookPath(d.binary); err != nil {
			return err
		}
	}
	if _, err := d.run(ctx, true, "info"); err != nil {
		return fmt.Errorf("docker daemon not accessible: %w", err)
	}
	return nil
}

func (d *DockerRuntime) run(ctx context.Context, silent bool, args ...string) (*executor.Result, error) {
	return d.runner.Run(ctx, executor.Command{Name: d.binary, Args: args, Silent: silent})
}

// ImageExists reports whether the image is present locally
func (d *DockerRuntime) ImageExists(ctx context.Context, image string) (bool, error) {
	_, err := d.run(ctx, true, "image", "inspect", image)
	if err == nil {
		return true, nil
	}
	if executor.IsExitError(err) {
		return false, nil
	}
	return false, err
}

// PullImage pulls a container image if not already present
func (d *DockerRuntime) PullImage(ctx context.Context, image string) error {
	logging.Info(dockerSubsystem, "Checking if image %s exists locally", image)

	exists, err := d.ImageExists(ctx, image)
	if err != nil {
		return err
	}
	if exists {
		logging.Debug(dockerSubsystem, "Image %s already exists", image)
		return nil
	}

	logging.Info(dockerSubsystem, "Pulling image %s", image)
	if _, err := d.run(ctx, false, "pull", image); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	return nil
}

// LoadImage loads an image tarball into the local store
func (d *DockerRuntime) LoadImage(ctx context.Context, tarPath string) error {
	if _, err := d.run(ctx, false, "load", "-i", tarPath); err != nil {
		return fmt.Errorf("failed to load image from %s: %w", tarPath, err)
	}
	return nil
}

// SaveImage writes a local image to a tarball
func (d *DockerRuntime) SaveImage(ctx context.Context, image, tarPath string) error {
	if _, err := d.run(ctx, false, "save", "-o", tarPath, image); err != nil {
		return fmt.Errorf("failed to save image %s: %w", image, err)
	}
	return nil
}

// StartContainer starts a container with the given configuration
func (d *DockerRuntime) StartContainer(ctx context.Context, config ContainerConfig) (string, error) {
	args := []string{"run", "-d", "--name", config.Name}

	if config.Hostname != "" {
		args = append(args, "--hostname", config.Hostname)
	}
	if config.Privileged {
		args = append(args, "--privileged")
	}

	// Add environment variables in a stable order
	keys := make([]string, 0, len(config.Env))
	for k := range config.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, config.Env[k]))
	}

	for _, port := range config.Ports {
		args = append(args, "-p", port)
	}

	for _, vol := range config.Volumes {
		args = append(args, "-v", expandPath(vol))
	}

	if config.User != "" {
		args = append(args, "--user", config.User)
	}

	if len(config.Entrypoint) > 0 {
		args = append(args, "--entrypoint", config.Entrypoint[0])
	}

	args = append(args, config.Image)

	// Remaining entrypoint args go after the image, then the command
	if len(config.Entrypoint) > 1 {
		args = append(args, config.Entrypoint[1:]...)
	}
	args = append(args, config.Command...)

	logging.Debug(dockerSubsystem, "Starting container with command: %s %s", d.binary, strings.Join(args, " "))

	res, err := d.run(ctx, true, args...)
	if err != nil {
		return "", fmt.Errorf("failed to start container %s: %w", config.Name, err)
	}

	containerID := strings.TrimSpace(res.Stdout)
	logging.Info(dockerSubsystem, "Started container %s with ID %s", config.Name, shortID(containerID))

	return containerID, nil
}

// StopContainer stops a running container
func (d *DockerRuntime) StopContainer(ctx context.Context, containerID string) error {
	logging.Info(dockerSubsystem, "Stopping container %s", shortID(containerID))

	if _, err := d.run(ctx, false, "stop", containerID); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", shortID(containerID), err)
	}
	return nil
}

// IsContainerRunning checks if a container is running
func (d *DockerRuntime) IsContainerRunning(ctx context.Context, containerID string) (bool, error) {
	res, err := d.run(ctx, true, "inspect", "-f", "{{.State.Running}}", containerID)
	if err != nil {
		if isNoSuchContainer(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container %s: %w", shortID(containerID), err)
	}
	return strings.TrimSpace(res.Stdout) == "true", nil
}

// RemoveContainer removes a container
func (d *DockerRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	logging.Debug(dockerSubsystem, "Removing container %s", shortID(containerID))

	if _, err := d.run(ctx, false, "rm", "-f", containerID); err != nil {
		if isNoSuchContainer(err) {
			return nil
		}
		return fmt.Errorf("failed to remove container %s: %w", shortID(containerID), err)
	}
	return nil
}

// Exec runs a command inside the container
func (d *DockerRuntime) Exec(ctx context.Context, containerID string, args ...string) (string, error) {
	full := append([]string{"exec", containerID}, args...)
	res, err := d.run(ctx, true, full...)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// CopyTo copies a host file into the container
func (d *DockerRuntime) CopyTo(ctx context.Context, containerID, src, dst string) error {
	if _, err := d.run(ctx, false, "cp", src, containerID+":"+dst); err != nil {
		return fmt.Errorf("failed to copy %s into %s: %w", src, shortID(containerID), err)
	}
	return nil
}

func shortID(containerID string) string {
	if len(containerID) > 12 {
		return containerID[:12]
	}
	return containerID
}

func isNoSuchContainer(err error) bool {
	return executor.IsExitError(err) && strings.Contains(strings.ToLower(err.Error()), "no such")
}

// expandPath expands tilde in paths to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
