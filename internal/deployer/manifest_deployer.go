package deployer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"infometis/internal/api"
	"infometis/internal/cluster"
	"infometis/internal/manifest"
	"infometis/pkg/logging"
)

const subsystem = "Deployer"

// Phase is a step of the deployment state machine.
type Phase string

const (
	PhaseNotStarted            Phase = "NotStarted"
	PhaseCheckingPrerequisites Phase = "CheckingPrerequisites"
	PhaseEnsuringImages        Phase = "EnsuringImages"
	PhaseApplying              Phase = "Applying"
	PhaseWaitingReady          Phase = "WaitingReady"
	PhaseVerified              Phase = "Verified"
	PhaseVerifiedWithWarnings  Phase = "VerifiedWithWarnings"
	PhaseFailed                Phase = "Failed"
)

// MethodManifest is reported for components deployed from manifests.
const MethodManifest = "manifest"

// badPodReasons mark a pod that will not recover by waiting.
var badPodReasons = map[string]bool{
	"CrashLoopBackOff":           true,
	"ImagePullBackOff":           true,
	"ErrImagePull":               true,
	"CreateContainerConfigError": true,
	"InvalidImageName":           true,
}

// ManifestDeployer deploys one component by applying its rendered manifest
// and waiting for its workloads.
type ManifestDeployer struct {
	def      Definition
	env      api.Environment
	cfg      map[string]any
	cluster  ClusterClient
	images   ImageProvider
	renderer *manifest.Renderer

	mu    sync.Mutex
	phase Phase
}

// NewManifestDeployer creates a deployer for def. cfg is the component
// configuration given at resolve time.
func NewManifestDeployer(def Definition, env api.Environment, cfg map[string]any, c ClusterClient, images ImageProvider, renderer *manifest.Renderer) *ManifestDeployer {
	return &ManifestDeployer{
		def:      def,
		env:      env,
		cfg:      api.MergeConfig(def.Defaults, cfg),
		cluster:  c,
		images:   images,
		renderer: renderer,
		phase:    PhaseNotStarted,
	}
}

func (d *ManifestDeployer) Name() string { return d.def.Name }

func (d *ManifestDeployer) Method() string { return MethodManifest }

// Image returns the primary image reference.
func (d *ManifestDeployer) Image() string {
	return d.def.ResolveImages(d.cfg)[d.def.PrimaryImage]
}

// Phase returns the current state machine phase.
func (d *ManifestDeployer) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

func (d *ManifestDeployer) setPhase(p Phase) {
	d.mu.Lock()
	d.phase = p
	d.mu.Unlock()
	logging.Debug(subsystem, "%s: %s", d.def.Name, p)
}

// Deploy runs the deployment state machine. Prerequisite, image and apply
// failures are fatal; a readiness timeout is reported as a warning with
// Success=false.
func (d *ManifestDeployer) Deploy(ctx context.Context, cfg map[string]any) (*api.DeploymentResult, error) {
	start := time.Now()
	values := api.MergeConfig(d.cfg, cfg)
	result := &api.DeploymentResult{Endpoints: d.def.Endpoints}

	fail := func(err error) (*api.DeploymentResult, error) {
		d.setPhase(PhaseFailed)
		result.Phase = string(PhaseFailed)
		result.Duration = time.Since(start)
		return result, err
	}

	logging.Info(subsystem, "Deploying %s into namespace %s", d.def.Name, d.def.Namespace)

	d.setPhase(PhaseCheckingPrerequisites)
	if err := d.checkPrerequisites(ctx); err != nil {
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	d.setPhase(PhaseEnsuringImages)
	images := d.def.ResolveImages(values)
	for _, image := range SortedImages(images) {
		if err := d.images.EnsureInCluster(ctx, image); err != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			if !api.IsImageUnavailable(err) {
				err = &api.ImageUnavailableError{Image: image, Err: err}
			}
			return fail(err)
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	d.setPhase(PhaseApplying)
	objs, err := d.objects(values, images)
	if err != nil {
		return fail(&api.ManifestApplyError{Component: d.def.Name, Err: err})
	}
	created, err := d.cluster.Apply(ctx, objs)
	if err != nil {
		d.undoPartialApply(created)
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(applyError(d.def.Name, err))
	}

	d.setPhase(PhaseWaitingReady)
	timeout := d.def.readinessTimeout(values)
	ready := true
	for _, target := range d.def.Targets {
		ref := d.def.TargetRef(target)
		err := d.cluster.WaitReady(ctx, ref, d.def.pollInterval(), timeout)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		if errors.Is(err, cluster.ErrNotReady) {
			timeoutErr := &api.ReadinessTimeoutError{Component: d.def.Name, Resource: ref.String(), Timeout: timeout.String()}
			logging.Warn(subsystem, "%v", timeoutErr)
			result.Warnings = append(result.Warnings, timeoutErr.Error())
			ready = false
			continue
		}
		return fail(err)
	}

	// Verification only adds warnings.
	if pods, err := d.cluster.PodStates(ctx, d.def.Namespace, d.def.Selector); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("verification skipped: %v", err))
	} else {
		for _, pod := range pods {
			if pod.Phase != "Running" && pod.Phase != "Succeeded" {
				msg := fmt.Sprintf("pod %s is %s", pod.Name, pod.Phase)
				if pod.Reason != "" {
					msg += " (" + pod.Reason + ")"
				}
				result.Warnings = append(result.Warnings, msg)
			}
		}
	}

	result.Success = ready
	result.Duration = time.Since(start)
	if len(result.Warnings) == 0 {
		d.setPhase(PhaseVerified)
	} else {
		d.setPhase(PhaseVerifiedWithWarnings)
	}
	result.Phase = string(d.Phase())
	logging.Info(subsystem, "Deployed %s in %s (%s)", d.def.Name, result.Duration.Round(time.Second), result.Phase)
	return result, nil
}

func (d *ManifestDeployer) checkPrerequisites(ctx context.Context) error {
	if d.def.CreateNamespace {
		if err := d.cluster.EnsureNamespace(ctx, d.def.Namespace); err != nil {
			if api.IsPrerequisite(err) {
				return err
			}
			return &api.PrerequisiteError{Component: d.def.Name, Missing: "namespace/" + d.def.Namespace, Err: err}
		}
	} else {
		exists, err := d.cluster.NamespaceExists(ctx, d.def.Namespace)
		if err != nil || !exists {
			if api.IsPrerequisite(err) {
				return err
			}
			return &api.PrerequisiteError{Component: d.def.Name, Missing: "namespace/" + d.def.Namespace, Err: err}
		}
	}

	for _, p := range d.def.Prerequisites {
		exists, err := d.cluster.Exists(ctx, p.Ref())
		if err != nil || !exists {
			return &api.PrerequisiteError{Component: d.def.Name, Missing: p.String(), Err: err}
		}
	}
	return nil
}

func (d *ManifestDeployer) objects(values map[string]any, images map[string]string) ([]*unstructured.Unstructured, error) {
	return d.renderer.Objects(d.def.Manifest, manifest.Data{
		Name:      d.def.Name,
		Namespace: d.def.Namespace,
		Images:    images,
		Values:    values,
	})
}

// undoPartialApply deletes what a failed apply created, newest first.
func (d *ManifestDeployer) undoPartialApply(created []cluster.ObjectRef) {
	// The caller's context may be what failed the apply.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for i := len(created) - 1; i >= 0; i-- {
		if err := d.cluster.Delete(ctx, created[i]); err != nil {
			logging.Warn(subsystem, "Failed to undo %s after failed apply: %v", created[i], err)
		}
	}
}

func applyError(component string, err error) error {
	applyErr := &api.ManifestApplyError{Component: component, Err: err}
	var refErr *cluster.ApplyError
	if errors.As(err, &refErr) {
		applyErr.Object = refErr.Ref.String()
		applyErr.Err = refErr.Err
	}
	var statusErr *apierrors.StatusError
	if errors.As(err, &statusErr) {
		applyErr.Stderr = statusErr.ErrStatus.Message
	}
	return applyErr
}

// Cleanup deletes every object of the manifest in reverse order. The
// namespace stays since other components share it. Absent objects are
// skipped; an unreachable cluster means there is nothing left to remove.
func (d *ManifestDeployer) Cleanup(ctx context.Context) error {
	images := d.def.ResolveImages(d.cfg)
	objs, err := d.objects(d.cfg, images)
	if err != nil {
		return fmt.Errorf("cleanup %s: %w", d.def.Name, err)
	}

	logging.Info(subsystem, "Removing %s", d.def.Name)
	var errs []error
	for i := len(objs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.cluster.Delete(ctx, cluster.RefOf(objs[i]))
		if api.IsPrerequisite(err) {
			logging.Warn(subsystem, "Cluster unreachable, nothing to remove for %s: %v", d.def.Name, err)
			return nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	d.setPhase(PhaseNotStarted)
	if len(errs) > 0 {
		return fmt.Errorf("cleanup %s: %w", d.def.Name, errors.Join(errs...))
	}
	return nil
}

// GetStatus folds workload and pod state into a health value.
func (d *ManifestDeployer) GetStatus(ctx context.Context) (*api.StatusReport, error) {
	report := &api.StatusReport{Component: d.def.Name, Details: map[string]string{"namespace": d.def.Namespace}}

	allReady := true
	for _, target := range d.def.Targets {
		ref := d.def.TargetRef(target)
		exists, err := d.cluster.Exists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !exists {
			report.Health = api.HealthFailed
			report.Message = ref.String() + " not found"
			return report, nil
		}
		ready, err := d.cluster.WorkloadReady(ctx, ref)
		if err != nil {
			return nil, err
		}
		report.Details[strings.ToLower(target.Kind)+"/"+target.Name] = readyWord(ready)
		allReady = allReady && ready
	}

	pods, err := d.cluster.PodStates(ctx, d.def.Namespace, d.def.Selector)
	if err != nil {
		return nil, err
	}
	report.Pods = pods

	for _, pod := range pods {
		if pod.Phase == "Failed" || badPodReasons[pod.Reason] {
			report.Health = api.HealthFailed
			report.Message = fmt.Sprintf("pod %s: %s", pod.Name, firstNonEmpty(pod.Reason, pod.Phase))
			return report, nil
		}
	}

	running := len(pods) > 0
	for _, pod := range pods {
		if pod.Phase != "Running" || !pod.Ready {
			running = false
		}
	}

	switch {
	case allReady && running:
		report.Health = api.HealthHealthy
		report.Message = fmt.Sprintf("%d pod(s) running", len(pods))
	default:
		report.Health = api.HealthPending
		report.Message = "waiting for workloads"
	}
	return report, nil
}

// Validate is a read-only pre-flight check.
func (d *ManifestDeployer) Validate(ctx context.Context) (*api.ValidationReport, error) {
	report := &api.ValidationReport{Component: d.def.Name}

	if d.env != api.EnvironmentKubernetes && d.env != api.EnvironmentAuto {
		report.Issues = append(report.Issues, (&api.UnsupportedEnvironmentError{Component: d.def.Name, Environment: d.env}).Error())
	}

	images := d.def.ResolveImages(d.cfg)
	if _, err := d.objects(d.cfg, images); err != nil {
		report.Issues = append(report.Issues, err.Error())
	}

	for _, image := range SortedImages(images) {
		if d.images.Has(image) {
			continue
		}
		if _, err := name.ParseReference(image); err != nil {
			report.Issues = append(report.Issues, fmt.Sprintf("image %s: %v", image, err))
		}
	}

	if !d.def.CreateNamespace {
		exists, err := d.cluster.NamespaceExists(ctx, d.def.Namespace)
		if err != nil {
			report.Issues = append(report.Issues, fmt.Sprintf("namespace %s: %v", d.def.Namespace, err))
		} else if !exists {
			report.Issues = append(report.Issues, fmt.Sprintf("namespace %s does not exist", d.def.Namespace))
		}
	}
	for _, p := range d.def.Prerequisites {
		exists, err := d.cluster.Exists(ctx, p.Ref())
		if err != nil {
			report.Issues = append(report.Issues, fmt.Sprintf("%s: %v", p, err))
		} else if !exists {
			report.Issues = append(report.Issues, fmt.Sprintf("%s does not exist", p))
		}
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}

func readyWord(ready bool) string {
	if ready {
		return "ready"
	}
	return "not ready"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
