package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"infometis/internal/api"
	"infometis/internal/cluster"
	"infometis/internal/dependency"
	"infometis/internal/manifest"
	"infometis/internal/store"
	"infometis/pkg/logging"
)

const subsystem = "Orchestrator"

const (
	// DefaultCluster is used when Config.Cluster is empty.
	DefaultCluster = "infometis"
	// DefaultNamespace receives routes that do not name a namespace.
	DefaultNamespace = "infometis"
	// DefaultCleanupTimeout bounds a rollback started after the caller's
	// context was cancelled.
	DefaultCleanupTimeout = 10 * time.Minute
	// DefaultStatusTimeout bounds one shared stack status query.
	DefaultStatusTimeout = 2 * time.Minute
)

// methodUnknown is recorded for deployers that do not report a method.
const methodUnknown = "unknown"

// Registry resolves component names to deployers.
type Registry interface {
	Register(name string, factory api.DeployerFactory) error
	Resolve(name string, env api.Environment, cfg map[string]any) (api.Deployer, error)
	List() []string
	Has(name string) bool
}

// RouteApplier creates and deletes the ingress objects of stack routes.
type RouteApplier interface {
	Apply(ctx context.Context, objs []*unstructured.Unstructured) ([]cluster.ObjectRef, error)
	Delete(ctx context.Context, ref cluster.ObjectRef) error
}

// Config holds the collaborators of the orchestrator.
type Config struct {
	Registry Registry
	// Store persists stacks. Defaults to an in-memory store.
	Store store.StackStore
	// Cluster identifies the target cluster. Cluster-mutating operations
	// on the same cluster never run concurrently.
	Cluster string
	// Routes and Renderer apply stack networking. Stacks with routes fail
	// when they are not set.
	Routes    RouteApplier
	Renderer  *manifest.Renderer
	Namespace string
	// CleanupTimeout bounds rollback and cleanup once the caller's context
	// is gone.
	CleanupTimeout time.Duration
	// StatusTimeout bounds a stack status query shared by concurrent
	// callers.
	StatusTimeout time.Duration
}

// Orchestrator deploys stacks of components in dependency order and rolls
// them back on failure.
type Orchestrator struct {
	registry       Registry
	store          store.StackStore
	cluster        string
	routes         RouteApplier
	renderer       *manifest.Renderer
	namespace      string
	cleanupTimeout time.Duration
	statusTimeout  time.Duration

	locks  *keyedMutex
	status singleflight.Group

	// now is replaced in tests.
	now func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

// Status is the overall orchestrator state.
type Status struct {
	Cluster     string    `json:"cluster"`
	Components  []string  `json:"components"`
	LiveStacks  int       `json:"liveStacks"`
	TotalStacks int       `json:"totalStacks"`
	Deploying   []string  `json:"deploying,omitempty"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// New creates an orchestrator and reloads persisted stacks. Stacks left in
// the deploying state by a previous process are marked failed.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, errors.New("orchestrator: registry is required")
	}
	o := &Orchestrator{
		registry:       cfg.Registry,
		store:          cfg.Store,
		cluster:        cfg.Cluster,
		routes:         cfg.Routes,
		renderer:       cfg.Renderer,
		namespace:      cfg.Namespace,
		cleanupTimeout: cfg.CleanupTimeout,
		statusTimeout:  cfg.StatusTimeout,
		locks:          newKeyedMutex(),
		now:            time.Now,
		inFlight:       make(map[string]bool),
	}
	if o.store == nil {
		o.store = store.NewMemoryStore()
	}
	if o.cluster == "" {
		o.cluster = DefaultCluster
	}
	if o.namespace == "" {
		o.namespace = DefaultNamespace
	}
	if o.cleanupTimeout <= 0 {
		o.cleanupTimeout = DefaultCleanupTimeout
	}
	if o.statusTimeout <= 0 {
		o.statusTimeout = DefaultStatusTimeout
	}

	stacks, err := o.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stacks: %w", err)
	}
	for _, s := range stacks {
		if s.Status != api.StackDeploying {
			continue
		}
		logging.Warn(subsystem, "Stack %s (%s) was interrupted while deploying, marking failed", s.Name, s.ID)
		s.Status = api.StackFailed
		s.Error = "deployment interrupted"
		for _, c := range s.Components {
			if c.Status == api.ComponentDeploying {
				c.Status = api.ComponentFailed
			}
		}
		if err := o.store.Save(ctx, s); err != nil {
			return nil, fmt.Errorf("save stack %s: %w", s.ID, err)
		}
	}
	logging.Debug(subsystem, "Loaded %d stack(s) from store", len(stacks))
	return o, nil
}

// RegisterComponent adds a component factory to the registry.
func (o *Orchestrator) RegisterComponent(name string, factory api.DeployerFactory) error {
	return o.registry.Register(name, factory)
}

// Components lists the registered components in registration order.
func (o *Orchestrator) Components() []string {
	return o.registry.List()
}

// CalculateDeploymentOrder sorts components so each one follows all of its
// dependencies. Components without a mutual dependency keep their input
// order.
func CalculateDeploymentOrder(components []api.ComponentSpec) ([]api.ComponentSpec, error) {
	byName := make(map[string]api.ComponentSpec, len(components))
	graph := dependency.New()
	for _, c := range components {
		if c.Name == "" {
			return nil, errors.New("component with empty name")
		}
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("component %s listed more than once", c.Name)
		}
		byName[c.Name] = c

		deps := make([]dependency.NodeID, 0, len(c.Dependencies))
		for _, d := range c.Dependencies {
			deps = append(deps, dependency.NodeID(d))
		}
		graph.AddNode(dependency.Node{ID: dependency.NodeID(c.Name), FriendlyName: c.Name, DependsOn: deps})
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	sorted := make([]api.ComponentSpec, 0, len(order))
	for _, id := range order {
		sorted = append(sorted, byName[string(id)])
	}
	return sorted, nil
}

// deployedComponent pairs a record with the deployer that produced it.
type deployedComponent struct {
	record   *api.ComponentDeployment
	deployer api.Deployer
}

// DeployStack deploys the components of spec one after another in
// dependency order. The first failure rolls back every component deployed
// so far in reverse order, marks the stack failed and returns it together
// with a *api.DeployError.
func (o *Orchestrator) DeployStack(ctx context.Context, spec api.StackSpec) (*api.StackDeployment, error) {
	if spec.Name == "" {
		return nil, errors.New("stack name is required")
	}
	ordered, err := CalculateDeploymentOrder(spec.Components)
	if err != nil {
		return nil, err
	}

	// Resolve everything first so an unknown component never leaves a half
	// deployed stack behind.
	deployers := make([]api.Deployer, len(ordered))
	configs := make([]map[string]any, len(ordered))
	for i, c := range ordered {
		configs[i] = api.MergeConfig(spec.Config, c.Config)
		d, err := o.registry.Resolve(c.Name, c.Environment, configs[i])
		if err != nil {
			return nil, err
		}
		deployers[i] = d
	}
	if len(spec.Networking) > 0 && (o.routes == nil || o.renderer == nil) {
		return nil, fmt.Errorf("stack %s defines networking routes but no route applier is configured", spec.Name)
	}

	unlock, err := o.locks.Lock(ctx, o.cluster)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stack := &api.StackDeployment{
		ID:         uuid.NewString(),
		Name:       spec.Name,
		Cluster:    o.cluster,
		Spec:       spec,
		DeployedAt: o.now(),
		Status:     api.StackDeploying,
	}
	o.setInFlight(stack.ID, true)
	defer o.setInFlight(stack.ID, false)

	logging.Info(subsystem, "Deploying stack %s (%s) with %d component(s)", stack.Name, stack.ID, len(ordered))
	o.persist(ctx, stack)

	var deployed []deployedComponent
	warned := false
	for i, c := range ordered {
		d := deployers[i]
		record := &api.ComponentDeployment{
			Component:   c.Name,
			Method:      methodUnknown,
			Environment: environmentOf(c),
			StartedAt:   o.now(),
			Status:      api.ComponentDeploying,
		}
		if mr, ok := d.(api.MethodReporter); ok {
			record.Method = mr.Method()
			record.Image = mr.Image()
		}
		stack.Components = append(stack.Components, record)

		if err := ctx.Err(); err != nil {
			return o.fail(ctx, stack, record, deployed, err)
		}
		o.persist(ctx, stack)

		logging.Info(subsystem, "[%d/%d] Deploying %s", i+1, len(ordered), c.Name)
		result, err := d.Deploy(ctx, configs[i])
		record.Result = result
		if err != nil {
			return o.fail(ctx, stack, record, deployed, err)
		}
		record.Status = api.ComponentDeployed
		if result != nil && !result.Success {
			warned = true
			for _, w := range result.Warnings {
				logging.Warn(subsystem, "%s: %s", c.Name, w)
			}
		}
		deployed = append(deployed, deployedComponent{record: record, deployer: d})
		o.persist(ctx, stack)
	}

	if len(spec.Networking) > 0 {
		if err := o.applyRoutes(ctx, stack); err != nil {
			return o.fail(ctx, stack, nil, deployed, err)
		}
	}

	stack.Status = api.StackDeployed
	if warned {
		stack.Status = api.StackDegraded
	}
	o.persist(ctx, stack)
	logging.Info(subsystem, "Stack %s (%s) %s", stack.Name, stack.ID, stack.Status)
	return stack, nil
}

// fail marks the failing component and the stack, then rolls back what was
// deployed. A nil record means the failure happened after all components
// were deployed.
func (o *Orchestrator) fail(ctx context.Context, stack *api.StackDeployment, record *api.ComponentDeployment, deployed []deployedComponent, cause error) (*api.StackDeployment, error) {
	component := "networking"
	if record != nil {
		component = record.Component
		record.Status = api.ComponentFailed
		record.Error = cause.Error()
	}
	logging.Error(subsystem, cause, "Deploying %s failed, rolling back stack %s", component, stack.Name)

	rollbackErr := o.rollback(ctx, deployed)

	stack.Status = api.StackFailed
	stack.Error = cause.Error()
	if rollbackErr != nil {
		stack.Error += "; rollback: " + rollbackErr.Error()
	}
	o.persist(ctx, stack)

	return stack, &api.DeployError{StackID: stack.ID, Component: component, Err: cause, RollbackErr: rollbackErr}
}

// rollback cleans up deployed components in reverse order. Every cleanup
// runs even if an earlier one fails.
func (o *Orchestrator) rollback(ctx context.Context, deployed []deployedComponent) error {
	ctx, cancel := o.cleanupContext(ctx)
	defer cancel()

	var errs []error
	for i := len(deployed) - 1; i >= 0; i-- {
		dc := deployed[i]
		logging.Info(subsystem, "Rolling back %s", dc.record.Component)
		if err := dc.deployer.Cleanup(ctx); err != nil {
			logging.Error(subsystem, err, "Rollback of %s failed", dc.record.Component)
			errs = append(errs, fmt.Errorf("%s: %w", dc.record.Component, err))
			continue
		}
		dc.record.Status = api.ComponentRemoved
	}
	return errors.Join(errs...)
}

// cleanupContext keeps cleanup running after the caller gave up, bounded by
// the cleanup timeout.
func (o *Orchestrator) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.cleanupTimeout)
}

func (o *Orchestrator) routeObjects(stack *api.StackDeployment) ([]*unstructured.Unstructured, error) {
	return o.renderer.Objects(manifest.RoutesTemplate, manifest.Data{
		Name:      stack.Name,
		Namespace: o.namespace,
		Routes:    stack.Spec.Networking,
	})
}

func (o *Orchestrator) applyRoutes(ctx context.Context, stack *api.StackDeployment) error {
	objs, err := o.routeObjects(stack)
	if err != nil {
		return fmt.Errorf("render routes: %w", err)
	}
	logging.Info(subsystem, "Applying %d route(s) for stack %s", len(objs), stack.Name)
	created, err := o.routes.Apply(ctx, objs)
	if err != nil {
		cleanupCtx, cancel := o.cleanupContext(ctx)
		defer cancel()
		for i := len(created) - 1; i >= 0; i-- {
			if delErr := o.routes.Delete(cleanupCtx, created[i]); delErr != nil {
				logging.Warn(subsystem, "Failed to remove route %s: %v", created[i], delErr)
			}
		}
		return fmt.Errorf("apply routes: %w", err)
	}
	return nil
}

func (o *Orchestrator) removeRoutes(ctx context.Context, stack *api.StackDeployment) error {
	if len(stack.Spec.Networking) == 0 || o.routes == nil || o.renderer == nil {
		return nil
	}
	objs, err := o.routeObjects(stack)
	if err != nil {
		return fmt.Errorf("render routes: %w", err)
	}
	var errs []error
	for i := len(objs) - 1; i >= 0; i-- {
		if err := o.routes.Delete(ctx, cluster.RefOf(objs[i])); err != nil && !api.IsPrerequisite(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetStackStatus queries every component of the stack and folds the
// results: healthy iff all are healthy, degraded if any failed, otherwise
// pending. Concurrent calls for the same stack share one query, which
// outlives the caller that started it and is bounded by StatusTimeout.
func (o *Orchestrator) GetStackStatus(ctx context.Context, id string) (*api.StackStatus, error) {
	ch := o.status.DoChan(id, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.statusTimeout)
		defer cancel()

		stack, err := o.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		status := &api.StackStatus{StackID: stack.ID, Name: stack.Name, CheckedAt: o.now()}
		for _, c := range stack.Components {
			status.Components = append(status.Components, o.componentStatus(ctx, stack, c.Component))
		}
		status.Status = foldHealth(status.Components)
		return status, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*api.StackStatus), nil
	}
}

func (o *Orchestrator) componentStatus(ctx context.Context, stack *api.StackDeployment, name string) api.StatusReport {
	spec, _ := stack.Component(name)
	d, err := o.registry.Resolve(name, spec.Environment, api.MergeConfig(stack.Spec.Config, spec.Config))
	if err != nil {
		return api.StatusReport{Component: name, Health: api.HealthFailed, Message: err.Error()}
	}
	report, err := d.GetStatus(ctx)
	if err != nil {
		return api.StatusReport{Component: name, Health: api.HealthFailed, Message: err.Error()}
	}
	if report.Component == "" {
		report.Component = name
	}
	return *report
}

func foldHealth(reports []api.StatusReport) api.Health {
	healthy := true
	for _, r := range reports {
		switch r.Health {
		case api.HealthFailed:
			return api.HealthDegraded
		case api.HealthHealthy:
		default:
			healthy = false
		}
	}
	if healthy {
		return api.HealthHealthy
	}
	return api.HealthPending
}

// CleanupStack removes every component of the stack in reverse deployment
// order. Failures are collected and do not stop the remaining cleanups.
// Cleaning up a removed stack does nothing.
func (o *Orchestrator) CleanupStack(ctx context.Context, id string) error {
	stack, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if stack.Status == api.StackRemoved {
		logging.Debug(subsystem, "Stack %s already removed", id)
		return nil
	}
	if o.isInFlight(id) {
		return fmt.Errorf("stack %s is still deploying", id)
	}

	unlock, err := o.locks.Lock(ctx, stack.Cluster)
	if err != nil {
		return err
	}
	defer unlock()

	logging.Info(subsystem, "Cleaning up stack %s (%s)", stack.Name, stack.ID)
	var errs []error
	if err := o.removeRoutes(ctx, stack); err != nil {
		errs = append(errs, fmt.Errorf("networking: %w", err))
	}

	for i := len(stack.Components) - 1; i >= 0; i-- {
		c := stack.Components[i]
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		spec, _ := stack.Component(c.Component)
		d, err := o.registry.Resolve(c.Component, spec.Environment, api.MergeConfig(stack.Spec.Config, spec.Config))
		if err == nil {
			err = d.Cleanup(ctx)
		}
		if err != nil {
			logging.Error(subsystem, err, "Cleanup of %s failed", c.Component)
			errs = append(errs, fmt.Errorf("%s: %w", c.Component, err))
			continue
		}
		c.Status = api.ComponentRemoved
	}

	if len(errs) == 0 {
		stack.Status = api.StackRemoved
		stack.Error = ""
	}
	o.persist(ctx, stack)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("cleanup stack %s: %w", stack.ID, err)
	}
	logging.Info(subsystem, "Stack %s removed", stack.Name)
	return nil
}

// DeployComponent deploys a single component outside of any stack.
func (o *Orchestrator) DeployComponent(ctx context.Context, spec api.ComponentSpec) (*api.ComponentDeployment, error) {
	d, err := o.registry.Resolve(spec.Name, spec.Environment, spec.Config)
	if err != nil {
		return nil, err
	}

	unlock, err := o.locks.Lock(ctx, o.cluster)
	if err != nil {
		return nil, err
	}
	defer unlock()

	record := &api.ComponentDeployment{
		Component:   spec.Name,
		Method:      methodUnknown,
		Environment: environmentOf(spec),
		StartedAt:   o.now(),
		Status:      api.ComponentDeploying,
	}
	if mr, ok := d.(api.MethodReporter); ok {
		record.Method = mr.Method()
		record.Image = mr.Image()
	}

	result, err := d.Deploy(ctx, spec.Config)
	record.Result = result
	if err != nil {
		record.Status = api.ComponentFailed
		record.Error = err.Error()
		return record, err
	}
	record.Status = api.ComponentDeployed
	return record, nil
}

// CleanupComponent removes a single component. Components of live stacks
// that depend on it are left in place and logged.
func (o *Orchestrator) CleanupComponent(ctx context.Context, name string, env api.Environment, cfg map[string]any) error {
	d, err := o.registry.Resolve(name, env, cfg)
	if err != nil {
		return err
	}
	if dependents, err := o.Dependents(ctx, name); err == nil && len(dependents) > 0 {
		logging.Warn(subsystem, "Removing %s, which %s still depend on", name, strings.Join(dependents, ", "))
	}

	unlock, err := o.locks.Lock(ctx, o.cluster)
	if err != nil {
		return err
	}
	defer unlock()

	return d.Cleanup(ctx)
}

// Dependents lists the components of live stacks that directly depend on
// name, without duplicates.
func (o *Orchestrator) Dependents(ctx context.Context, name string) ([]string, error) {
	live, err := o.ListStacks(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var dependents []string
	for _, stack := range live {
		graph := dependency.New()
		for _, c := range stack.Spec.Components {
			deps := make([]dependency.NodeID, 0, len(c.Dependencies))
			for _, d := range c.Dependencies {
				deps = append(deps, dependency.NodeID(d))
			}
			graph.AddNode(dependency.Node{ID: dependency.NodeID(c.Name), FriendlyName: c.Name, DependsOn: deps})
		}
		for _, id := range graph.Dependents(dependency.NodeID(name)) {
			if !seen[string(id)] {
				seen[string(id)] = true
				dependents = append(dependents, string(id))
			}
		}
	}
	return dependents, nil
}

// ComponentStatus reports the status of a single component.
func (o *Orchestrator) ComponentStatus(ctx context.Context, name string, env api.Environment, cfg map[string]any) (*api.StatusReport, error) {
	d, err := o.registry.Resolve(name, env, cfg)
	if err != nil {
		return nil, err
	}
	return d.GetStatus(ctx)
}

// ValidateStack runs the read-only checks of every component in deployment
// order without deploying anything.
func (o *Orchestrator) ValidateStack(ctx context.Context, spec api.StackSpec) ([]api.ValidationReport, error) {
	ordered, err := CalculateDeploymentOrder(spec.Components)
	if err != nil {
		return nil, err
	}
	reports := make([]api.ValidationReport, 0, len(ordered))
	for _, c := range ordered {
		d, err := o.registry.Resolve(c.Name, c.Environment, api.MergeConfig(spec.Config, c.Config))
		if err != nil {
			return nil, err
		}
		report, err := d.Validate(ctx)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", c.Name, err)
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// GetStack returns a stack by id, removed stacks included.
func (o *Orchestrator) GetStack(ctx context.Context, id string) (*api.StackDeployment, error) {
	return o.store.Get(ctx, id)
}

// FindStack returns the stack with the given id or, failing that, the most
// recent live stack with that name.
func (o *Orchestrator) FindStack(ctx context.Context, idOrName string) (*api.StackDeployment, error) {
	stack, err := o.store.Get(ctx, idOrName)
	if err == nil {
		return stack, nil
	}
	if !api.IsStackNotFound(err) {
		return nil, err
	}

	live, err := o.ListStacks(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(live) - 1; i >= 0; i-- {
		if live[i].Name == idOrName {
			return live[i], nil
		}
	}
	return nil, &api.StackNotFoundError{ID: idOrName}
}

// ListStacks returns the stacks that have not been removed.
func (o *Orchestrator) ListStacks(ctx context.Context) ([]*api.StackDeployment, error) {
	all, err := o.store.List(ctx)
	if err != nil {
		return nil, err
	}
	live := make([]*api.StackDeployment, 0, len(all))
	for _, s := range all {
		if s.Status != api.StackRemoved {
			live = append(live, s)
		}
	}
	return live, nil
}

// History returns every stack ever deployed, removed ones included.
func (o *Orchestrator) History(ctx context.Context) ([]*api.StackDeployment, error) {
	return o.store.List(ctx)
}

// PruneHistory deletes removed stacks from the store and returns their ids.
// Live stacks are kept.
func (o *Orchestrator) PruneHistory(ctx context.Context) ([]string, error) {
	all, err := o.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var pruned []string
	for _, s := range all {
		if s.Status != api.StackRemoved {
			continue
		}
		if err := o.store.Delete(ctx, s.ID); err != nil && !api.IsStackNotFound(err) {
			return pruned, fmt.Errorf("prune stack %s: %w", s.ID, err)
		}
		pruned = append(pruned, s.ID)
	}
	if len(pruned) > 0 {
		logging.Info(subsystem, "Pruned %d removed stacks", len(pruned))
	}
	return pruned, nil
}

// Status summarizes the orchestrator.
func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	all, err := o.store.List(ctx)
	if err != nil {
		return nil, err
	}
	s := &Status{
		Cluster:     o.cluster,
		Components:  o.registry.List(),
		TotalStacks: len(all),
		CheckedAt:   o.now(),
	}
	for _, stack := range all {
		if stack.Status != api.StackRemoved {
			s.LiveStacks++
		}
		if stack.Status == api.StackDeploying {
			s.Deploying = append(s.Deploying, stack.ID)
		}
	}
	return s, nil
}

func (o *Orchestrator) persist(ctx context.Context, stack *api.StackDeployment) {
	if err := o.store.Save(context.WithoutCancel(ctx), stack); err != nil {
		logging.Error(subsystem, err, "Failed to save stack %s", stack.ID)
	}
}

func (o *Orchestrator) setInFlight(id string, deploying bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if deploying {
		o.inFlight[id] = true
	} else {
		delete(o.inFlight, id)
	}
}

func (o *Orchestrator) isInFlight(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight[id]
}

func environmentOf(c api.ComponentSpec) api.Environment {
	if c.Environment == "" {
		return api.EnvironmentAuto
	}
	return c.Environment
}
