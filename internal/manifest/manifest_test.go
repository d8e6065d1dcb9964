package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
)

var componentImages = map[string]map[string]string{
	"traefik":       {"traefik": "traefik:v2.10"},
	"nifi":          {"nifi": "apache/nifi:1.23.2"},
	"registry":      {"registry": "apache/nifi-registry:1.23.2"},
	"kafka":         {"kafka": "confluentinc/cp-kafka:7.5.0", "rest-proxy": "confluentinc/cp-kafka-rest:7.5.0", "kafka-ui": "provectuslabs/kafka-ui:v0.7.1"},
	"elasticsearch": {"elasticsearch": "docker.elastic.co/elasticsearch/elasticsearch:8.15.0"},
	"grafana":       {"grafana": "grafana/grafana:10.2.0"},
	"prometheus":    {"prometheus": "prom/prometheus:v2.47.0"},
	"flink":         {"flink": "flink:1.18-scala_2.12"},
	"ksqldb":        {"ksqldb": "confluentinc/cp-ksqldb-server:7.5.0"},
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

func TestNames(t *testing.T) {
	r := newRenderer(t)
	assert.Equal(t, []string{
		"elasticsearch", "flink", "grafana", "kafka", "ksqldb",
		"nifi", "prometheus", "registry", "routes", "traefik",
	}, r.Names())
	assert.True(t, r.Has("nifi"))
	assert.False(t, r.Has("helpers"))
}

func TestEveryComponentRendersAndDecodes(t *testing.T) {
	r := newRenderer(t)

	for name, images := range componentImages {
		t.Run(name, func(t *testing.T) {
			objs, err := r.Objects(name, Data{Name: name, Namespace: "infometis", Images: images})
			require.NoError(t, err)
			require.NotEmpty(t, objs)

			for _, obj := range objs {
				assert.NotEmpty(t, obj.GetKind())
				assert.NotEmpty(t, obj.GetName())
			}
			raw, err := r.Render(name, Data{Name: name, Namespace: "infometis", Images: images})
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "<no value>")
			for _, image := range images {
				assert.Contains(t, string(raw), image)
			}
		})
	}
}

func TestNifiManifest(t *testing.T) {
	r := newRenderer(t)
	objs, err := r.Objects("nifi", Data{
		Name:      "nifi",
		Namespace: "infometis",
		Images:    componentImages["nifi"],
		Values:    map[string]any{"heapMax": "4g", "host": "nifi.local"},
	})
	require.NoError(t, err)

	kinds := make([]string, 0, len(objs))
	for _, o := range objs {
		kinds = append(kinds, o.GetKind())
	}
	assert.Equal(t, []string{"ConfigMap", "StatefulSet", "Service", "Ingress"}, kinds)

	heap, _, _ := unstructuredString(objs[0].Object, "data", "NIFI_JVM_HEAP_MAX")
	assert.Equal(t, "4g", heap)

	ingress := objs[3]
	assert.Equal(t, "infometis", ingress.GetNamespace())
	rules, _, _ := unstructuredSlice(ingress.Object, "spec", "rules")
	require.Len(t, rules, 1)
	assert.Equal(t, "nifi.local", rules[0].(map[string]any)["host"])
}

func TestTraefikRunsInKubeSystem(t *testing.T) {
	r := newRenderer(t)
	objs, err := r.Objects("traefik", Data{Name: "traefik", Namespace: "kube-system", Images: componentImages["traefik"]})
	require.NoError(t, err)

	for _, o := range objs {
		switch o.GetKind() {
		case "ClusterRole", "ClusterRoleBinding", "IngressClass":
			assert.Empty(t, o.GetNamespace())
		default:
			assert.Equal(t, "kube-system", o.GetNamespace(), o.GetKind())
		}
	}
}

func TestRoutes(t *testing.T) {
	r := newRenderer(t)
	objs, err := r.Objects(RoutesTemplate, Data{
		Namespace: "infometis",
		Routes: []api.Route{
			{Component: "nifi", Path: "/flows", Service: "nifi-service", Port: 8080},
			{Component: "grafana", Host: "grafana.local", Path: "/", Service: "grafana-service", Port: 3000, Namespace: "monitoring"},
		},
	})
	require.NoError(t, err)
	require.Len(t, objs, 2)

	assert.Equal(t, "nifi-route-0", objs[0].GetName())
	assert.Equal(t, "infometis", objs[0].GetNamespace())
	assert.Equal(t, "grafana-route-1", objs[1].GetName())
	assert.Equal(t, "monitoring", objs[1].GetNamespace())

	objs, err = r.Objects(RoutesTemplate, Data{Namespace: "infometis"})
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestRenderUnknown(t *testing.T) {
	r := newRenderer(t)
	_, err := r.Render("cassandra", Data{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDecode(t *testing.T) {
	input := []byte(`
# leading comment only
---
apiVersion: v1
kind: Namespace
metadata:
  name: infometis
---

---
apiVersion: v1
kind: ConfigMap
metadata:
  name: demo
  namespace: infometis
data:
  key: value
`)
	objs, err := Decode(input)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "Namespace", objs[0].GetKind())
	assert.Equal(t, "demo", objs[1].GetName())

	_, err = Decode([]byte("apiVersion: v1\nmetadata:\n  name: nokind\n"))
	assert.Error(t, err)
}
