package containerizer

import (
	"fmt"
	"strings"

	"infometis/internal/executor"
)

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// NewContainerRuntime creates a new container runtime based on the specified type
func NewContainerRuntime(runtimeType string, runner executor.Runner) (ContainerRuntime, error) {
	rt := RuntimeType(strings.ToLower(runtimeType))

	switch rt {
	case RuntimeTypeDocker, "":
		// Default to Docker if not specified
		return NewDockerRuntime(runner), nil
	case RuntimeTypePodman:
		// podman accepts the same CLI surface for everything used here
		return &DockerRuntime{runner: runner, binary: "podman"}, nil
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", runtimeType)
	}
}
