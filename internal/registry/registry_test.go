package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
)

type stubDeployer struct {
	name string
	env  api.Environment
	cfg  map[string]any
}

func (s *stubDeployer) Name() string { return s.name }
func (s *stubDeployer) Deploy(context.Context, map[string]any) (*api.DeploymentResult, error) {
	return &api.DeploymentResult{Success: true}, nil
}
func (s *stubDeployer) Cleanup(context.Context) error { return nil }
func (s *stubDeployer) GetStatus(context.Context) (*api.StatusReport, error) {
	return &api.StatusReport{Component: s.name, Health: api.HealthHealthy}, nil
}
func (s *stubDeployer) Validate(context.Context) (*api.ValidationReport, error) {
	return &api.ValidationReport{Component: s.name, Valid: true}, nil
}

func stubFactory(name string) api.DeployerFactory {
	return func(env api.Environment, cfg map[string]any) (api.Deployer, error) {
		return &stubDeployer{name: name, env: env, cfg: cfg}, nil
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("nifi", stubFactory("nifi")))

	d, err := r.Resolve("nifi", api.EnvironmentKubernetes, map[string]any{"replicas": 1})
	require.NoError(t, err)
	assert.Equal(t, "nifi", d.Name())

	stub := d.(*stubDeployer)
	assert.Equal(t, api.EnvironmentKubernetes, stub.env)
	assert.Equal(t, 1, stub.cfg["replicas"])
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		compName  string
		factory   api.DeployerFactory
		expectErr string
	}{
		{name: "empty name", compName: "", factory: stubFactory("x"), expectErr: "empty name"},
		{name: "nil factory", compName: "nifi", factory: nil, expectErr: "nil factory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			err := r.Register(tt.compName, tt.factory)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
			assert.Empty(t, r.List())
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("traefik", stubFactory("traefik")))

	err := r.Register("traefik", stubFactory("other"))
	require.Error(t, err)
	assert.True(t, api.IsDuplicateComponent(err))

	// The first factory is kept.
	d, err := r.Resolve("traefik", api.EnvironmentAuto, nil)
	require.NoError(t, err)
	assert.Equal(t, "traefik", d.Name())
	assert.Equal(t, []string{"traefik"}, r.List())
}

func TestResolveUnknown(t *testing.T) {
	r := New()
	_, err := r.Resolve("kafka", api.EnvironmentKubernetes, nil)
	require.Error(t, err)
	assert.True(t, api.IsUnknownComponent(err))
}

func TestResolvePropagatesFactoryError(t *testing.T) {
	r := New()
	factoryErr := &api.UnsupportedEnvironmentError{Component: "nifi", Environment: api.EnvironmentDockerCompose}
	require.NoError(t, r.Register("nifi", func(api.Environment, map[string]any) (api.Deployer, error) {
		return nil, factoryErr
	}))

	_, err := r.Resolve("nifi", api.EnvironmentDockerCompose, nil)
	assert.True(t, errors.Is(err, factoryErr))
}

func TestListKeepsRegistrationOrder(t *testing.T) {
	r := New()
	for _, name := range []string{"k0s", "traefik", "nifi", "registry", "kafka"} {
		require.NoError(t, r.Register(name, stubFactory(name)))
	}

	assert.Equal(t, []string{"k0s", "traefik", "nifi", "registry", "kafka"}, r.List())
	assert.True(t, r.Has("nifi"))
	assert.False(t, r.Has("flink"))

	// List returns a copy.
	names := r.List()
	names[0] = "mutated"
	assert.Equal(t, "k0s", r.List()[0])
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("base", stubFactory("base")))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Resolve("base", api.EnvironmentAuto, nil)
			_ = r.List()
		}()
		go func(i int) {
			defer wg.Done()
			_ = r.Has("base")
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.List(), 1)
}
