package deployer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"infometis/internal/cluster"
	"infometis/pkg/logging"
)

const (
	// DefaultPollInterval is the readiness polling interval.
	DefaultPollInterval = 5 * time.Second

	MinReadinessTimeout = 60 * time.Second
	MaxReadinessTimeout = 600 * time.Second
)

// Prerequisite is an object that must exist before a component is deployed.
type Prerequisite struct {
	Kind      string
	Group     string
	Version   string
	Namespace string
	Name      string
}

// Ref returns the cluster reference of the prerequisite.
func (p Prerequisite) Ref() cluster.ObjectRef {
	version := p.Version
	if version == "" {
		version = "v1"
	}
	return cluster.ObjectRef{Group: p.Group, Version: version, Kind: p.Kind, Namespace: p.Namespace, Name: p.Name}
}

func (p Prerequisite) String() string {
	if p.Namespace == "" {
		return fmt.Sprintf("%s/%s", strings.ToLower(p.Kind), p.Name)
	}
	return fmt.Sprintf("%s/%s/%s", strings.ToLower(p.Kind), p.Namespace, p.Name)
}

// Target is a workload whose readiness defines component readiness.
type Target struct {
	Kind string // Deployment, StatefulSet or DaemonSet
	Name string
}

// Definition is the per-component data driving the generic manifest
// deployer.
type Definition struct {
	Name        string
	Description string
	Namespace   string
	// CreateNamespace means the component creates its namespace when it is
	// missing. Namespaces are shared between components and a component
	// cleanup never removes one.
	CreateNamespace bool
	// Manifest names the embedded manifest template.
	Manifest string
	// Images maps logical image keys to default references.
	Images map[string]string
	// PrimaryImage is the key replaced by the "image" config override.
	PrimaryImage  string
	DependsOn     []string
	Prerequisites []Prerequisite
	Targets       []Target
	// Selector finds the component pods.
	Selector         map[string]string
	ReadinessTimeout time.Duration
	PollInterval     time.Duration
	// Defaults are template values overridden by component config.
	Defaults  map[string]any
	Endpoints map[string]string
}

// Validate checks the definition itself.
func (d Definition) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("definition has empty name")
	case d.Namespace == "":
		return fmt.Errorf("definition %s has no namespace", d.Name)
	case d.Manifest == "":
		return fmt.Errorf("definition %s has no manifest", d.Name)
	case len(d.Targets) == 0:
		return fmt.Errorf("definition %s has no readiness targets", d.Name)
	case d.ReadinessTimeout < MinReadinessTimeout || d.ReadinessTimeout > MaxReadinessTimeout:
		return fmt.Errorf("definition %s readiness timeout %s outside [%s, %s]",
			d.Name, d.ReadinessTimeout, MinReadinessTimeout, MaxReadinessTimeout)
	}
	if _, ok := d.Images[d.PrimaryImage]; !ok {
		return fmt.Errorf("definition %s primary image %q not in images", d.Name, d.PrimaryImage)
	}
	return nil
}

// ResolveImages applies overrides to the default images. cfg["image"]
// replaces the primary image and cfg["images"] replaces images by key.
func (d Definition) ResolveImages(cfg map[string]any) map[string]string {
	images := make(map[string]string, len(d.Images))
	for k, v := range d.Images {
		images[k] = v
	}
	if img, ok := cfg["image"].(string); ok && img != "" {
		images[d.PrimaryImage] = img
	}
	switch overrides := cfg["images"].(type) {
	case map[string]string:
		for k, v := range overrides {
			if _, known := images[k]; known && v != "" {
				images[k] = v
			}
		}
	case map[string]any:
		for k, v := range overrides {
			if s, ok := v.(string); ok && s != "" {
				if _, known := images[k]; known {
					images[k] = s
				}
			}
		}
	}
	return images
}

// SortedImages returns the references of images in key order.
func SortedImages(images map[string]string) []string {
	keys := make([]string, 0, len(images))
	for k := range images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	refs := make([]string, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, images[k])
	}
	return refs
}

// TargetRef returns the cluster reference of a readiness target.
func (d Definition) TargetRef(t Target) cluster.ObjectRef {
	return cluster.ObjectRef{Group: "apps", Version: "v1", Kind: t.Kind, Namespace: d.Namespace, Name: t.Name}
}

// readinessTimeout returns the timeout, honouring a "readinessTimeout"
// config override clamped to the allowed range. Strings are either Go
// durations or a plain number of seconds.
func (d Definition) readinessTimeout(cfg map[string]any) time.Duration {
	timeout := d.ReadinessTimeout
	switch v := cfg["readinessTimeout"].(type) {
	case time.Duration:
		timeout = v
	case string:
		if parsed, err := time.ParseDuration(v); err == nil {
			timeout = parsed
		} else if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			timeout = time.Duration(secs) * time.Second
		} else {
			logging.Warn(subsystem, "Ignoring readinessTimeout %q for %s, using %s", v, d.Name, timeout)
		}
	case int:
		timeout = time.Duration(v) * time.Second
	case float64:
		timeout = time.Duration(v) * time.Second
	}
	if timeout < MinReadinessTimeout {
		timeout = MinReadinessTimeout
	}
	if timeout > MaxReadinessTimeout {
		timeout = MaxReadinessTimeout
	}
	return timeout
}

func (d Definition) pollInterval() time.Duration {
	if d.PollInterval > 0 {
		return d.PollInterval
	}
	return DefaultPollInterval
}
