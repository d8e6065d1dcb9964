// Package containerizer provides the container runtime used to run the k0s
// cluster container and to move images around.
//
// # Core Components
//
// ContainerRuntime: Interface that abstracts container operations
//   - ImageExists, PullImage, LoadImage, SaveImage: local image store
//   - StartContainer, StopContainer, RemoveContainer: container lifecycle
//   - IsContainerRunning: state query, missing containers are "not running"
//   - Exec, CopyTo: reach into a running container
//
// DockerRuntime: Implementation on top of the docker CLI
//   - Runs every command through executor.Runner
//   - Works with podman as well, selected through NewContainerRuntime
//
// # Container Configuration
//
// Containers are configured with:
//   - Image and Command: what to run
//   - Hostname and Privileged: required by the k0s controller
//   - Ports: Port mappings between host and container
//   - Env: Environment variables
//   - Volumes: Volume mounts for persistent data
//
// # Example
//
//	rt := containerizer.NewDockerRuntime(executor.New())
//	id, err := rt.StartContainer(ctx, containerizer.ContainerConfig{
//	    Name:       "infometis",
//	    Image:      "docker.io/k0sproject/k0s:v1.29.1-k0s.0",
//	    Hostname:   "infometis",
//	    Privileged: true,
//	    Ports:      []string{"6443:6443", "80:80"},
//	    Volumes:    []string{"/var/lib/k0s"},
//	    Command:    []string{"k0s", "controller", "--enable-worker", "--no-taints"},
//	})
package containerizer
