package console

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
)

type fakePlatform struct {
	calls    []string
	health   map[string]api.Health
	failWith map[string]error
	stack    *api.StackDeployment
}

func (f *fakePlatform) DeployComponent(_ context.Context, spec api.ComponentSpec) (*api.ComponentDeployment, error) {
	f.calls = append(f.calls, "deploy:"+spec.Name)
	if err := f.failWith[spec.Name]; err != nil {
		return nil, err
	}
	return &api.ComponentDeployment{
		Component: spec.Name,
		Status:    api.ComponentDeployed,
		Result:    &api.DeploymentResult{Success: true, Endpoints: map[string]string{"ui": "http://localhost/" + spec.Name}},
	}, nil
}

func (f *fakePlatform) ComponentStatus(_ context.Context, name string, _ api.Environment, _ map[string]any) (*api.StatusReport, error) {
	f.calls = append(f.calls, "status:"+name)
	health, ok := f.health[name]
	if !ok {
		health = api.HealthHealthy
	}
	return &api.StatusReport{Component: name, Health: health}, nil
}

func (f *fakePlatform) DeployStack(_ context.Context, spec api.StackSpec) (*api.StackDeployment, error) {
	f.calls = append(f.calls, "stack:"+spec.Name)
	f.stack = &api.StackDeployment{ID: "s-1", Name: spec.Name, Status: api.StackDeployed}
	return f.stack, nil
}

func (f *fakePlatform) FindStack(_ context.Context, idOrName string) (*api.StackDeployment, error) {
	if f.stack == nil || f.stack.Name != idOrName {
		return nil, &api.StackNotFoundError{ID: idOrName}
	}
	return f.stack, nil
}

func (f *fakePlatform) GetStackStatus(_ context.Context, id string) (*api.StackStatus, error) {
	return &api.StackStatus{StackID: id, Name: f.stack.Name, Status: api.HealthHealthy,
		Components: []api.StatusReport{{Component: "kafka", Health: api.HealthHealthy}}}, nil
}

func (f *fakePlatform) CleanupStack(_ context.Context, id string) error {
	f.calls = append(f.calls, "cleanup:"+id)
	return nil
}

type fakeImages struct {
	cached      []string
	transferred bool
}

func (f *fakeImages) CacheAll(_ context.Context, images []string) error {
	f.cached = images
	return nil
}

func (f *fakeImages) TransferAll(context.Context) error {
	f.transferred = true
	return nil
}

func sectionsConfig() SectionsConfig {
	return SectionsConfig{
		ClusterComponent: "k0s",
		Images:           []string{"traefik:v2.10"},
		Platform:         []string{"traefik", "nifi"},
		Data:             []string{"kafka"},
		Stack:            api.StackSpec{Name: "streaming", Components: []api.ComponentSpec{{Name: "k0s"}, {Name: "kafka"}}},
	}
}

func TestDefaultSections_Layout(t *testing.T) {
	sections := DefaultSections(&fakePlatform{}, &fakeImages{}, sectionsConfig())

	require.Len(t, sections, 4)
	var names []string
	for _, s := range sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Cluster", "Platform", "Data", "Stack"}, names)
	assert.Len(t, sections[0].Steps, 4)
	assert.Equal(t, "Deploy traefik", sections[1].Steps[0].Title)
	assert.Len(t, sections[1].Steps, 3)
	assert.Len(t, sections[2].Steps, 2)
}

func TestDefaultSections_ClusterAutoRun(t *testing.T) {
	platform := &fakePlatform{}
	images := &fakeImages{}
	sections := DefaultSections(platform, images, sectionsConfig())

	var out bytes.Buffer
	c := New(&scriptedReader{lines: []string{"1", "a", "q"}}, &out, sections)
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{"traefik:v2.10"}, images.cached)
	assert.True(t, images.transferred)
	assert.Equal(t, []string{"deploy:k0s", "status:k0s"}, platform.calls)
	assert.Contains(t, out.String(), "ui: http://localhost/k0s")
	assert.Contains(t, out.String(), "Cluster complete")
}

func TestDefaultSections_PlatformFailureStops(t *testing.T) {
	platform := &fakePlatform{failWith: map[string]error{"traefik": errors.New("apply rejected")}}
	sections := DefaultSections(platform, &fakeImages{}, sectionsConfig())

	ok := New(&scriptedReader{}, &bytes.Buffer{}, sections).runAll(context.Background(), sections[1])
	assert.False(t, ok)
	assert.Equal(t, []string{"deploy:traefik"}, platform.calls)
}

func TestDefaultSections_StatusStepFailsWhenUnhealthy(t *testing.T) {
	platform := &fakePlatform{health: map[string]api.Health{"nifi": api.HealthPending}}
	sections := DefaultSections(platform, &fakeImages{}, sectionsConfig())

	status := sections[1].Steps[2]
	_, err := status.Run(context.Background())
	assert.EqualError(t, err, "not healthy: nifi")
}

func TestDefaultSections_Stack(t *testing.T) {
	platform := &fakePlatform{}
	sections := DefaultSections(platform, &fakeImages{}, sectionsConfig())
	stack := sections[3]

	_, err := stack.Steps[1].Run(context.Background())
	assert.True(t, api.IsStackNotFound(err))

	detail, err := stack.Steps[0].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stack s-1 is deployed", detail)

	detail, err = stack.Steps[1].Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, detail, "kafka")

	_, err = stack.Steps[2].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"stack:streaming", "cleanup:s-1"}, platform.calls)
}
