package cluster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"infometis/internal/api"
	"infometis/internal/poll"
	"infometis/pkg/logging"
)

const subsystem = "Cluster"

// ObjectRef identifies one Kubernetes object.
type ObjectRef struct {
	Group     string `json:"group,omitempty"`
	Version   string `json:"version"`
	Kind      string `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// RefOf returns the reference of an object.
func RefOf(obj *unstructured.Unstructured) ObjectRef {
	gvk := obj.GroupVersionKind()
	return ObjectRef{
		Group:     gvk.Group,
		Version:   gvk.Version,
		Kind:      gvk.Kind,
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
	}
}

// GVK returns the group/version/kind of the reference.
func (r ObjectRef) GVK() schema.GroupVersionKind {
	return schema.GroupVersionKind{Group: r.Group, Version: r.Version, Kind: r.Kind}
}

func (r ObjectRef) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name)
}

func (r ObjectRef) object() *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(r.GVK())
	u.SetNamespace(r.Namespace)
	u.SetName(r.Name)
	return u
}

// NewScheme returns the scheme holding the built-in Kubernetes types.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	return scheme
}

// Client talks to the k0s cluster. The underlying controller-runtime client
// is built on first use, because the kubeconfig only exists once the
// cluster container has been deployed.
type Client struct {
	kubeconfig string

	mu sync.Mutex
	c  client.Client
}

// New creates a lazy client reading kubeconfigPath.
func New(kubeconfigPath string) *Client {
	return &Client{kubeconfig: kubeconfigPath}
}

// NewWithClient wraps an existing client, such as the controller-runtime
// fake client.
func NewWithClient(c client.Client) *Client {
	return &Client{c: c}
}

func (k *Client) get() (client.Client, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.c != nil {
		return k.c, nil
	}

	if _, err := os.Stat(k.kubeconfig); err != nil {
		return nil, &api.PrerequisiteError{Component: "cluster", Missing: "kubeconfig " + k.kubeconfig, Err: err}
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", k.kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig %s: %w", k.kubeconfig, err)
	}
	cfg.Timeout = 30 * time.Second

	c, err := client.New(cfg, client.Options{Scheme: NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	logging.Debug(subsystem, "Connected to cluster at %s", cfg.Host)
	k.c = c
	return c, nil
}

// Reset drops the cached client so the next call reloads the kubeconfig.
func (k *Client) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.kubeconfig != "" {
		k.c = nil
	}
}

// NamespaceExists reports whether the namespace exists.
func (k *Client) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	return k.Exists(ctx, ObjectRef{Version: "v1", Kind: "Namespace", Name: namespace})
}

// EnsureNamespace creates the namespace unless it exists.
func (k *Client) EnsureNamespace(ctx context.Context, namespace string) error {
	c, err := k.get()
	if err != nil {
		return err
	}
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}}
	if err := c.Create(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %s: %w", namespace, err)
	}
	return nil
}

// Exists reports whether the referenced object exists. An unknown kind
// counts as absent.
func (k *Client) Exists(ctx context.Context, ref ObjectRef) (bool, error) {
	c, err := k.get()
	if err != nil {
		return false, err
	}
	obj := ref.object()
	err = c.Get(ctx, client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, obj)
	switch {
	case err == nil:
		return true, nil
	case apierrors.IsNotFound(err), meta.IsNoMatchError(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to get %s: %w", ref, err)
	}
}

// Apply creates or updates every object in order. It returns the refs of
// the objects it created, also when it stops at an error, so the caller can
// undo a partial apply.
func (k *Client) Apply(ctx context.Context, objs []*unstructured.Unstructured) ([]ObjectRef, error) {
	c, err := k.get()
	if err != nil {
		return nil, err
	}

	var created []ObjectRef
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		ref := RefOf(obj)

		existing := ref.object()
		err := c.Get(ctx, client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, existing)
		switch {
		case apierrors.IsNotFound(err):
			if err := c.Create(ctx, obj.DeepCopy()); err != nil {
				return created, &ApplyError{Ref: ref, Err: err}
			}
			logging.Debug(subsystem, "Created %s", ref)
			created = append(created, ref)
		case err != nil:
			return created, &ApplyError{Ref: ref, Err: err}
		default:
			desired := obj.DeepCopy()
			desired.SetResourceVersion(existing.GetResourceVersion())
			preserveAllocatedFields(existing, desired)
			if err := c.Update(ctx, desired); err != nil {
				return created, &ApplyError{Ref: ref, Err: err}
			}
			logging.Debug(subsystem, "Updated %s", ref)
		}
	}
	return created, nil
}

// ApplyError reports the object the API server rejected.
type ApplyError struct {
	Ref ObjectRef
	Err error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Ref, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// preserveAllocatedFields copies server-assigned fields that an update must
// not clear.
func preserveAllocatedFields(existing, desired *unstructured.Unstructured) {
	if existing.GetKind() != "Service" {
		return
	}
	for _, field := range [][]string{{"spec", "clusterIP"}, {"spec", "clusterIPs"}} {
		if v, found, _ := unstructured.NestedFieldCopy(existing.Object, field...); found {
			if _, set, _ := unstructured.NestedFieldNoCopy(desired.Object, field...); !set {
				_ = unstructured.SetNestedField(desired.Object, v, field...)
			}
		}
	}
}

// Delete removes the object. Absent objects and unknown kinds are not errors.
func (k *Client) Delete(ctx context.Context, ref ObjectRef) error {
	c, err := k.get()
	if err != nil {
		return err
	}
	policy := metav1.DeletePropagationBackground
	err = c.Delete(ctx, ref.object(), &client.DeleteOptions{PropagationPolicy: &policy})
	if err == nil {
		logging.Debug(subsystem, "Deleted %s", ref)
		return nil
	}
	if apierrors.IsNotFound(err) || meta.IsNoMatchError(err) {
		return nil
	}
	return fmt.Errorf("failed to delete %s: %w", ref, err)
}

// WorkloadReady reports whether a Deployment, StatefulSet or DaemonSet has
// all desired replicas ready, or a Job has succeeded. Other kinds are ready
// once they exist.
func (k *Client) WorkloadReady(ctx context.Context, ref ObjectRef) (bool, error) {
	c, err := k.get()
	if err != nil {
		return false, err
	}
	obj := ref.object()
	if err := c.Get(ctx, client.ObjectKey{Namespace: ref.Namespace, Name: ref.Name}, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", ref, err)
	}
	return workloadReady(obj), nil
}

func workloadReady(obj *unstructured.Unstructured) bool {
	switch obj.GetKind() {
	case "Deployment", "StatefulSet":
		desired, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
		if !found {
			desired = 1
		}
		ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")
		return ready >= desired
	case "DaemonSet":
		desired, _, _ := unstructured.NestedInt64(obj.Object, "status", "desiredNumberScheduled")
		ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "numberReady")
		return desired > 0 && ready >= desired
	case "Job":
		succeeded, _, _ := unstructured.NestedInt64(obj.Object, "status", "succeeded")
		return succeeded > 0
	default:
		return true
	}
}

// ErrNotReady is wrapped by WaitReady when the deadline passes.
var ErrNotReady = errors.New("not ready")

// WaitReady polls WorkloadReady until it succeeds, the timeout elapses or
// ctx is done. Transient API errors are retried.
func (k *Client) WaitReady(ctx context.Context, ref ObjectRef, interval, timeout time.Duration) error {
	var lastErr error
	err := poll.Until(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
		ready, err := k.WorkloadReady(ctx, ref)
		if err != nil {
			lastErr = err
			return false, nil
		}
		return ready, nil
	})
	if errors.Is(err, poll.ErrTimeout) {
		if lastErr != nil {
			return fmt.Errorf("%s %w after %s: %v", ref, ErrNotReady, timeout, lastErr)
		}
		return fmt.Errorf("%s %w after %s", ref, ErrNotReady, timeout)
	}
	return err
}

// PodStates lists the pods matching selector in namespace.
func (k *Client) PodStates(ctx context.Context, namespace string, selector map[string]string) ([]api.PodState, error) {
	c, err := k.get()
	if err != nil {
		return nil, err
	}
	var pods corev1.PodList
	if err := c.List(ctx, &pods, client.InNamespace(namespace), client.MatchingLabels(selector)); err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	states := make([]api.PodState, 0, len(pods.Items))
	for _, pod := range pods.Items {
		states = append(states, podState(&pod))
	}
	return states, nil
}

func podState(pod *corev1.Pod) api.PodState {
	state := api.PodState{Name: pod.Name, Phase: string(pod.Status.Phase), Reason: pod.Status.Reason}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			state.Ready = cond.Status == corev1.ConditionTrue
		}
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" {
			state.Reason = cs.State.Waiting.Reason
			break
		}
	}
	return state
}
