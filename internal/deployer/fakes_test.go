package deployer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"infometis/internal/api"
	"infometis/internal/cluster"
)

// fakeCluster records calls and answers from scripted state.
type fakeCluster struct {
	mu sync.Mutex

	namespaces map[string]bool
	objects    map[string]bool
	ready      map[string]bool
	pods       []api.PodState

	// failApplyAt makes Apply fail on the object with this index (1-based).
	failApplyAt  int
	applyErr     error
	namespaceErr error
	existsErr    error
	podsErr      error
	deleteErr    error
	// notReady makes WaitReady time out for these targets.
	notReady map[string]bool
	// blockWait makes WaitReady block until ctx is done.
	blockWait bool

	applied []cluster.ObjectRef
	deleted []cluster.ObjectRef
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		namespaces: map[string]bool{"kube-system": true},
		objects:    map[string]bool{},
		ready:      map[string]bool{},
		notReady:   map[string]bool{},
	}
}

func (f *fakeCluster) NamespaceExists(_ context.Context, ns string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.namespaceErr != nil {
		return false, f.namespaceErr
	}
	return f.namespaces[ns], nil
}

func (f *fakeCluster) EnsureNamespace(_ context.Context, ns string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.namespaceErr != nil {
		return f.namespaceErr
	}
	f.namespaces[ns] = true
	return nil
}

func (f *fakeCluster) Exists(_ context.Context, ref cluster.ObjectRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.objects[ref.String()], nil
}

func (f *fakeCluster) Apply(_ context.Context, objs []*unstructured.Unstructured) ([]cluster.ObjectRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var created []cluster.ObjectRef
	for i, obj := range objs {
		ref := cluster.RefOf(obj)
		if f.failApplyAt == i+1 {
			err := f.applyErr
			if err == nil {
				err = errors.New("admission webhook denied the request")
			}
			return created, &cluster.ApplyError{Ref: ref, Err: err}
		}
		f.objects[ref.String()] = true
		f.applied = append(f.applied, ref)
		created = append(created, ref)
	}
	return created, nil
}

func (f *fakeCluster) Delete(_ context.Context, ref cluster.ObjectRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, ref.String())
	if ref.Kind == "Namespace" {
		delete(f.namespaces, ref.Name)
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeCluster) WorkloadReady(_ context.Context, ref cluster.ObjectRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready[ref.String()], nil
}

func (f *fakeCluster) WaitReady(ctx context.Context, ref cluster.ObjectRef, _, timeout time.Duration) error {
	f.mu.Lock()
	block, notReady := f.blockWait, f.notReady[ref.Name]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if notReady {
		return fmt.Errorf("%s %w after %s", ref, cluster.ErrNotReady, timeout)
	}
	f.mu.Lock()
	f.ready[ref.String()] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeCluster) PodStates(context.Context, string, map[string]string) ([]api.PodState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.podsErr != nil {
		return nil, f.podsErr
	}
	return append([]api.PodState(nil), f.pods...), nil
}

func (f *fakeCluster) deletedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.deleted))
	for _, ref := range f.deleted {
		names = append(names, ref.Kind+"/"+ref.Name)
	}
	return names
}

// fakeImages is an ImageProvider with a set of unavailable images.
type fakeImages struct {
	mu          sync.Mutex
	unavailable map[string]bool
	cached      map[string]bool
	ensured     []string
}

func newFakeImages() *fakeImages {
	return &fakeImages{unavailable: map[string]bool{}, cached: map[string]bool{}}
}

func (f *fakeImages) EnsureInCluster(ctx context.Context, image string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, image)
	if f.unavailable[image] {
		return fmt.Errorf("manifest unknown: %s", image)
	}
	return nil
}

func (f *fakeImages) Has(image string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached[image]
}
