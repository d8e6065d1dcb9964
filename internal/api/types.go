package api

import (
	"context"
	"time"
)

// Environment selects how a component is run.
type Environment string

const (
	EnvironmentKubernetes    Environment = "kubernetes"
	EnvironmentDockerCompose Environment = "docker-compose"
	EnvironmentStandalone    Environment = "standalone"
	EnvironmentAuto          Environment = "auto"
)

// ParseEnvironment converts user input into an Environment. An empty string
// means EnvironmentAuto.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case "", EnvironmentAuto:
		return EnvironmentAuto, nil
	case EnvironmentKubernetes, EnvironmentDockerCompose, EnvironmentStandalone:
		return Environment(s), nil
	default:
		return "", &UnsupportedEnvironmentError{Environment: Environment(s)}
	}
}

// ComponentSpec describes one component of a stack. It is immutable once a
// deployment starts.
type ComponentSpec struct {
	Name         string         `json:"name" yaml:"name"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Environment  Environment    `json:"environment,omitempty" yaml:"environment,omitempty"`
	Config       map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Route exposes a component service through the ingress controller once the
// whole stack is deployed.
type Route struct {
	Component string `json:"component" yaml:"component"`
	Host      string `json:"host,omitempty" yaml:"host,omitempty"`
	Path      string `json:"path" yaml:"path"`
	Service   string `json:"service" yaml:"service"`
	Port      int    `json:"port" yaml:"port"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// StackSpec is the input of a stack deployment.
type StackSpec struct {
	Name       string          `json:"name" yaml:"name"`
	Components []ComponentSpec `json:"components" yaml:"components"`
	// Config is merged under every component's own config.
	Config     map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Networking []Route        `json:"networking,omitempty" yaml:"networking,omitempty"`
}

// ComponentStatus is the lifecycle state of one component inside a stack.
type ComponentStatus string

const (
	ComponentPending   ComponentStatus = "pending"
	ComponentDeploying ComponentStatus = "deploying"
	ComponentDeployed  ComponentStatus = "deployed"
	ComponentFailed    ComponentStatus = "failed"
	ComponentRemoved   ComponentStatus = "removed"
)

// ComponentDeployment records one component deployment attempt. Only Status
// changes after creation.
type ComponentDeployment struct {
	Component   string            `json:"component"`
	Method      string            `json:"method"`
	Image       string            `json:"image,omitempty"`
	Environment Environment       `json:"environment"`
	Result      *DeploymentResult `json:"result,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	Status      ComponentStatus   `json:"status"`
	Error       string            `json:"error,omitempty"`
}

// StackState is the lifecycle state of a stack deployment.
type StackState string

const (
	StackDeploying StackState = "deploying"
	StackDeployed  StackState = "deployed"
	StackDegraded  StackState = "degraded"
	StackFailed    StackState = "failed"
	StackRemoved   StackState = "removed"
)

// StackDeployment is created by a stack deployment. Components are kept in
// deployment order; removal walks them in reverse.
type StackDeployment struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Cluster    string                 `json:"cluster,omitempty"`
	Spec       StackSpec              `json:"spec"`
	Components []*ComponentDeployment `json:"components"`
	DeployedAt time.Time              `json:"deployedAt"`
	Status     StackState             `json:"status"`
	Error      string                 `json:"error,omitempty"`
}

// Component returns the spec of the named component, if present.
func (s *StackDeployment) Component(name string) (ComponentSpec, bool) {
	for _, c := range s.Spec.Components {
		if c.Name == name {
			return c, true
		}
	}
	return ComponentSpec{}, false
}

// DeploymentResult is returned by Deployer.Deploy.
type DeploymentResult struct {
	Success   bool              `json:"success"`
	Warnings  []string          `json:"warnings,omitempty"`
	Phase     string            `json:"phase,omitempty"`
	Endpoints map[string]string `json:"endpoints,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
}

// Health is the folded health of a component or a stack.
type Health string

const (
	HealthHealthy Health = "healthy"
	HealthPending Health = "pending"
	HealthFailed  Health = "failed"
	// HealthDegraded is only used for stacks.
	HealthDegraded Health = "degraded"
)

// PodState is a short summary of one pod.
type PodState struct {
	Name   string `json:"name"`
	Phase  string `json:"phase"`
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// StatusReport is returned by Deployer.GetStatus.
type StatusReport struct {
	Component string            `json:"component"`
	Health    Health            `json:"health"`
	Message   string            `json:"message,omitempty"`
	Pods      []PodState        `json:"pods,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// ValidationReport is returned by Deployer.Validate.
type ValidationReport struct {
	Component string   `json:"component"`
	Valid     bool     `json:"valid"`
	Issues    []string `json:"issues,omitempty"`
}

// StackStatus aggregates the status of every component of a stack.
type StackStatus struct {
	StackID    string         `json:"stackId"`
	Name       string         `json:"name"`
	Status     Health         `json:"status"`
	Components []StatusReport `json:"components"`
	CheckedAt  time.Time      `json:"checkedAt"`
}

// Deployer deploys, removes and inspects one platform component.
type Deployer interface {
	Name() string
	Deploy(ctx context.Context, cfg map[string]any) (*DeploymentResult, error)
	// Cleanup removes everything the component created. Absent resources
	// are not an error.
	Cleanup(ctx context.Context) error
	GetStatus(ctx context.Context) (*StatusReport, error)
	Validate(ctx context.Context) (*ValidationReport, error)
}

// MethodReporter is implemented by deployers that can name their deployment
// method and primary image for ComponentDeployment records.
type MethodReporter interface {
	Method() string
	Image() string
}

// DeployerFactory builds a Deployer for an environment and config.
type DeployerFactory func(env Environment, cfg map[string]any) (Deployer, error)

// MergeConfig returns a new map holding base overlaid with override.
func MergeConfig(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
