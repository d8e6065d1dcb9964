package containerizer

import (
	"context"
)

// ContainerRuntime defines the interface for container runtime operations
type ContainerRuntime interface {
	// ImageExists reports whether the image is present in the local store
	ImageExists(ctx context.Context, image string) (bool, error)

	// PullImage pulls a container image if not already present
	PullImage(ctx context.Context, image string) error

	// LoadImage loads an image tarball into the local store
	LoadImage(ctx context.Context, tarPath string) error

	// SaveImage writes an image from the local store to a tarball
	SaveImage(ctx context.Context, image, tarPath string) error

	// StartContainer starts a container with the given configuration
	StartContainer(ctx context.Context, config ContainerConfig) (string, error)

	// StopContainer stops a running container
	StopContainer(ctx context.Context, containerID string) error

	// IsContainerRunning checks if a container is running. A missing
	// container is reported as not running without error.
	IsContainerRunning(ctx context.Context, containerID string) (bool, error)

	// RemoveContainer removes a container. A missing container is not an error.
	RemoveContainer(ctx context.Context, containerID string) error

	// Exec runs a command inside a running container and returns its stdout
	Exec(ctx context.Context, containerID string, args ...string) (string, error)

	// CopyTo copies a host file into the container
	CopyTo(ctx context.Context, containerID, src, dst string) error
}

// ContainerConfig holds configuration for starting a container
type ContainerConfig struct {
	Name       string            // Container name
	Image      string            // Container image
	Hostname   string            // Hostname inside the container
	Privileged bool              // Run with --privileged (needed by k0s)
	Env        map[string]string // Environment variables
	Ports      []string          // Port mappings (host:container)
	Volumes    []string          // Volume mounts (host:container or anonymous)
	Entrypoint []string          // Entrypoint override
	Command    []string          // Arguments passed after the image
	User       string            // User to run as
}
