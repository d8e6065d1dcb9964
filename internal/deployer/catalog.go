package deployer

import (
	"fmt"
	"time"

	"infometis/internal/api"
	"infometis/internal/containerizer"
	"infometis/internal/manifest"
)

// ClusterComponent is the name of the cluster container component.
const ClusterComponent = "k0s"

const (
	platformNamespace = "infometis"
	systemNamespace   = "kube-system"
)

// Catalog returns the definitions of the components deployed onto the
// cluster, in catalog order.
func Catalog() []Definition {
	return []Definition{
		{
			Name:             "traefik",
			Description:      "Ingress controller",
			Namespace:        systemNamespace,
			Manifest:         "traefik",
			Images:           map[string]string{"traefik": "traefik:v2.10"},
			PrimaryImage:     "traefik",
			DependsOn:        []string{ClusterComponent},
			Targets:          []Target{{Kind: "Deployment", Name: "traefik"}},
			Selector:         map[string]string{"app": "traefik"},
			ReadinessTimeout: 120 * time.Second,
			Endpoints:        map[string]string{"dashboard": "http://localhost:8082/dashboard/"},
		},
		{
			Name:            "nifi",
			Description:     "Apache NiFi workflow engine",
			Namespace:       platformNamespace,
			CreateNamespace: true,
			Manifest:        "nifi",
			Images:          map[string]string{"nifi": "apache/nifi:1.23.2"},
			PrimaryImage:    "nifi",
			DependsOn:       []string{"traefik"},
			Prerequisites: []Prerequisite{
				{Kind: "IngressClass", Group: "networking.k8s.io", Name: "traefik"},
			},
			Targets:          []Target{{Kind: "StatefulSet", Name: "nifi"}},
			Selector:         map[string]string{"app": "nifi"},
			ReadinessTimeout: 300 * time.Second,
			Endpoints:        map[string]string{"ui": "http://localhost/nifi"},
		},
		{
			Name:            "registry",
			Description:     "NiFi Registry flow versioning",
			Namespace:       platformNamespace,
			CreateNamespace: true,
			Manifest:        "registry",
			Images:          map[string]string{"registry": "apache/nifi-registry:1.23.2"},
			PrimaryImage:    "registry",
			DependsOn:       []string{"nifi"},
			Prerequisites: []Prerequisite{
				{Kind: "Service", Namespace: platformNamespace, Name: "nifi-service"},
			},
			Targets:          []Target{{Kind: "Deployment", Name: "nifi-registry"}},
			Selector:         map[string]string{"app": "registry"},
			ReadinessTimeout: 180 * time.Second,
			Endpoints:        map[string]string{"ui": "http://localhost/nifi-registry"},
		},
		{
			Name:            "kafka",
			Description:     "Kafka broker with REST proxy and UI",
			Namespace:       platformNamespace,
			CreateNamespace: true,
			Manifest:        "kafka",
			Images: map[string]string{
				"kafka":      "confluentinc/cp-kafka:7.5.0",
				"rest-proxy": "confluentinc/cp-kafka-rest:7.5.0",
				"kafka-ui":   "provectuslabs/kafka-ui:v0.7.1",
			},
			PrimaryImage: "kafka",
			DependsOn:    []string{"traefik"},
			Targets: []Target{
				{Kind: "StatefulSet", Name: "kafka"},
				{Kind: "Deployment", Name: "kafka-rest-proxy"},
				{Kind: "Deployment", Name: "kafka-ui"},
			},
			Selector:         map[string]string{"app.kubernetes.io/name": "kafka"},
			ReadinessTimeout: 300 * time.Second,
			Endpoints: map[string]string{
				"ui":        "http://localhost/kafka-ui",
				"rest":      "http://localhost/kafka",
				"bootstrap": "kafka-service.infometis.svc.cluster.local:9092",
			},
		},
		{
			Name:             "elasticsearch",
			Description:      "Elasticsearch search engine",
			Namespace:        platformNamespace,
			CreateNamespace:  true,
			Manifest:         "elasticsearch",
			Images:           map[string]string{"elasticsearch": "docker.elastic.co/elasticsearch/elasticsearch:8.15.0"},
			PrimaryImage:     "elasticsearch",
			DependsOn:        []string{"traefik"},
			Targets:          []Target{{Kind: "StatefulSet", Name: "elasticsearch"}},
			Selector:         map[string]string{"app": "elasticsearch"},
			ReadinessTimeout: 300 * time.Second,
			Endpoints:        map[string]string{"api": "http://localhost/elasticsearch"},
		},
		{
			Name:            "grafana",
			Description:     "Grafana dashboards",
			Namespace:       platformNamespace,
			CreateNamespace: true,
			Manifest:        "grafana",
			Images:          map[string]string{"grafana": "grafana/grafana:10.2.0"},
			PrimaryImage:    "grafana",
			DependsOn:       []string{"elasticsearch", "prometheus"},
			Prerequisites: []Prerequisite{
				{Kind: "Service", Namespace: platformNamespace, Name: "prometheus-service"},
				{Kind: "Service", Namespace: platformNamespace, Name: "elasticsearch-service"},
			},
			Targets:          []Target{{Kind: "Deployment", Name: "grafana"}},
			Selector:         map[string]string{"app": "grafana"},
			ReadinessTimeout: 180 * time.Second,
			Endpoints:        map[string]string{"ui": "http://localhost/grafana"},
		},
		{
			Name:             "prometheus",
			Description:      "Prometheus metrics stack",
			Namespace:        platformNamespace,
			CreateNamespace:  true,
			Manifest:         "prometheus",
			Images:           map[string]string{"prometheus": "prom/prometheus:v2.47.0"},
			PrimaryImage:     "prometheus",
			DependsOn:        []string{"traefik"},
			Targets:          []Target{{Kind: "Deployment", Name: "prometheus"}},
			Selector:         map[string]string{"app": "prometheus"},
			ReadinessTimeout: 180 * time.Second,
			Endpoints:        map[string]string{"ui": "http://localhost/prometheus"},
		},
		{
			Name:            "flink",
			Description:     "Apache Flink stream processing",
			Namespace:       platformNamespace,
			CreateNamespace: true,
			Manifest:        "flink",
			Images:          map[string]string{"flink": "flink:1.18-scala_2.12"},
			PrimaryImage:    "flink",
			DependsOn:       []string{"kafka"},
			Prerequisites: []Prerequisite{
				{Kind: "Service", Namespace: platformNamespace, Name: "kafka-service"},
			},
			Targets: []Target{
				{Kind: "Deployment", Name: "flink-jobmanager"},
				{Kind: "Deployment", Name: "flink-taskmanager"},
			},
			Selector:         map[string]string{"app": "flink"},
			ReadinessTimeout: 240 * time.Second,
			Endpoints:        map[string]string{"ui": "http://localhost/flink"},
		},
		{
			Name:            "ksqldb",
			Description:     "ksqlDB stream SQL engine",
			Namespace:       platformNamespace,
			CreateNamespace: true,
			Manifest:        "ksqldb",
			Images:          map[string]string{"ksqldb": "confluentinc/cp-ksqldb-server:7.5.0"},
			PrimaryImage:    "ksqldb",
			DependsOn:       []string{"kafka"},
			Prerequisites: []Prerequisite{
				{Kind: "Service", Namespace: platformNamespace, Name: "kafka-service"},
			},
			Targets:          []Target{{Kind: "Deployment", Name: "ksqldb-server"}},
			Selector:         map[string]string{"app": "ksqldb"},
			ReadinessTimeout: 240 * time.Second,
			Endpoints:        map[string]string{"api": "http://localhost/ksqldb"},
		},
	}
}

// Names lists every component in catalog order, cluster first.
func Names() []string {
	names := []string{ClusterComponent}
	for _, def := range Catalog() {
		names = append(names, def.Name)
	}
	return names
}

// Lookup returns the definition of a catalog component.
func Lookup(component string) (Definition, bool) {
	for _, def := range Catalog() {
		if def.Name == component {
			return def, true
		}
	}
	return Definition{}, false
}

// DefaultStack builds a stack spec with the catalog dependencies. Without
// components it holds the whole catalog.
func DefaultStack(name string, components ...string) (api.StackSpec, error) {
	if len(components) == 0 {
		components = Names()
	}
	spec := api.StackSpec{Name: name}
	for _, c := range components {
		if c == ClusterComponent {
			spec.Components = append(spec.Components, api.ComponentSpec{Name: c, Environment: api.EnvironmentStandalone})
			continue
		}
		def, ok := Lookup(c)
		if !ok {
			return api.StackSpec{}, &api.UnknownComponentError{Name: c}
		}
		spec.Components = append(spec.Components, api.ComponentSpec{
			Name:         c,
			Dependencies: append([]string(nil), def.DependsOn...),
			Environment:  api.EnvironmentKubernetes,
		})
	}
	return spec, nil
}

// AllImages returns every image reference of the catalog including the
// cluster image, for cache priming.
func AllImages(clusterImage string, overrides map[string]map[string]string) []string {
	images := []string{clusterImage}
	for _, def := range Catalog() {
		resolved := def.ResolveImages(map[string]any{"images": overrides[def.Name]})
		images = append(images, SortedImages(resolved)...)
	}
	return images
}

// Registrar receives component factories.
type Registrar interface {
	Register(name string, factory api.DeployerFactory) error
}

// Dependencies are the collaborators shared by every deployer.
type Dependencies struct {
	Cluster  ClusterClient
	Images   ImageProvider
	Archive  ImageArchive
	Renderer *manifest.Renderer
	Runtime  containerizer.ContainerRuntime
	// ClusterConfig configures the k0s container.
	ClusterConfig ClusterConfig
	// OnKubeconfig runs after the cluster kubeconfig is written or removed.
	OnKubeconfig func()
	// Images per component by logical key, from the component images files.
	ImageOverrides map[string]map[string]string
	// ReadinessTimeouts override the definition defaults per component.
	ReadinessTimeouts map[string]time.Duration
	PollInterval      time.Duration
}

// RegisterCatalog registers the k0s cluster deployer and a manifest
// deployer for every catalog component.
func RegisterCatalog(reg Registrar, deps Dependencies) error {
	if err := reg.Register(ClusterComponent, ClusterFactory(deps)); err != nil {
		return err
	}
	for _, def := range Catalog() {
		if override, ok := deps.ImageOverrides[def.Name]; ok {
			def.Images = def.ResolveImages(map[string]any{"images": override})
		}
		if timeout, ok := deps.ReadinessTimeouts[def.Name]; ok {
			def.ReadinessTimeout = timeout
		}
		if deps.PollInterval > 0 {
			def.PollInterval = deps.PollInterval
		}
		if err := def.Validate(); err != nil {
			return err
		}
		if err := reg.Register(def.Name, ManifestFactory(def, deps)); err != nil {
			return err
		}
	}
	return nil
}

// ManifestFactory builds manifest deployers for def. Only Kubernetes
// (explicit or auto) is supported.
func ManifestFactory(def Definition, deps Dependencies) api.DeployerFactory {
	return func(env api.Environment, cfg map[string]any) (api.Deployer, error) {
		switch env {
		case api.EnvironmentKubernetes, api.EnvironmentAuto, "":
		default:
			return nil, &api.UnsupportedEnvironmentError{Component: def.Name, Environment: env}
		}
		if deps.Cluster == nil || deps.Images == nil || deps.Renderer == nil {
			return nil, fmt.Errorf("component %s: deployer dependencies not configured", def.Name)
		}
		return NewManifestDeployer(def, api.EnvironmentKubernetes, cfg, deps.Cluster, deps.Images, deps.Renderer), nil
	}
}

// ClusterFactory builds the k0s deployer. The cluster runs as a standalone
// container, which auto and kubernetes also resolve to.
func ClusterFactory(deps Dependencies) api.DeployerFactory {
	return func(env api.Environment, cfg map[string]any) (api.Deployer, error) {
		switch env {
		case api.EnvironmentStandalone, api.EnvironmentAuto, api.EnvironmentKubernetes, "":
		default:
			return nil, &api.UnsupportedEnvironmentError{Component: ClusterComponent, Environment: env}
		}
		if deps.Runtime == nil {
			return nil, fmt.Errorf("component %s: container runtime not configured", ClusterComponent)
		}
		clusterCfg := deps.ClusterConfig
		if img, ok := cfg["image"].(string); ok && img != "" {
			clusterCfg.Image = img
		}
		return NewClusterDeployer(clusterCfg, deps.Runtime, deps.Archive, deps.OnKubeconfig), nil
	}
}
