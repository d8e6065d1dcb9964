package deployer

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"infometis/internal/api"
	"infometis/internal/cluster"
)

// ClusterClient is the part of cluster.Client the deployers use.
type ClusterClient interface {
	NamespaceExists(ctx context.Context, namespace string) (bool, error)
	EnsureNamespace(ctx context.Context, namespace string) error
	Exists(ctx context.Context, ref cluster.ObjectRef) (bool, error)
	Apply(ctx context.Context, objs []*unstructured.Unstructured) ([]cluster.ObjectRef, error)
	Delete(ctx context.Context, ref cluster.ObjectRef) error
	WorkloadReady(ctx context.Context, ref cluster.ObjectRef) (bool, error)
	WaitReady(ctx context.Context, ref cluster.ObjectRef, interval, timeout time.Duration) error
	PodStates(ctx context.Context, namespace string, selector map[string]string) ([]api.PodState, error)
}

// ImageProvider makes images available inside the cluster.
type ImageProvider interface {
	// EnsureInCluster loads the image into the cluster, fetching it into
	// the local cache first when needed.
	EnsureInCluster(ctx context.Context, image string) error
	// Has reports whether the image is in the local cache.
	Has(image string) bool
}

// ImageArchive locates image tarballs kept on the host.
type ImageArchive interface {
	// Path returns the tarball of image when it is cached.
	Path(image string) (string, bool)
}

var (
	_ ClusterClient = (*cluster.Client)(nil)
)
