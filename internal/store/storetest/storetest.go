// Package storetest provides the behaviour suite every store.StackStore
// implementation must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
	"infometis/internal/store"
)

// Factory creates a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.StackStore

func sampleStack(id string) *api.StackDeployment {
	return &api.StackDeployment{
		ID:      id,
		Name:    "infometis-" + id,
		Cluster: "infometis",
		Spec: api.StackSpec{
			Name: "infometis-" + id,
			Components: []api.ComponentSpec{
				{Name: "k0s"},
				{Name: "traefik", Dependencies: []string{"k0s"}},
			},
		},
		Components: []*api.ComponentDeployment{
			{
				Component:   "k0s",
				Method:      "container",
				Environment: api.EnvironmentStandalone,
				StartedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
				Status:      api.ComponentDeployed,
				Result:      &api.DeploymentResult{Success: true, Phase: "Verified"},
			},
		},
		DeployedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:     api.StackDeployed,
	}
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, sampleStack("a")))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "infometis-a", got.Name)
		assert.Equal(t, "infometis", got.Cluster)
		assert.Equal(t, api.StackDeployed, got.Status)
		require.Len(t, got.Components, 1)
		assert.Equal(t, "k0s", got.Components[0].Component)
		assert.Equal(t, "Verified", got.Components[0].Result.Phase)
		assert.Equal(t, []string{"k0s"}, got.Spec.Components[1].Dependencies)
		assert.True(t, got.DeployedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	})

	t.Run("GetUnknown", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		require.Error(t, err)
		assert.True(t, api.IsNotFound(err))
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := newStore(t)
		stack := sampleStack("a")
		require.NoError(t, s.Save(ctx, stack))

		stack.Status = api.StackRemoved
		stack.Components[0].Status = api.ComponentRemoved
		require.NoError(t, s.Save(ctx, stack))

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, api.StackRemoved, got.Status)
		assert.Equal(t, api.ComponentRemoved, got.Components[0].Status)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ReturnedValuesAreCopies", func(t *testing.T) {
		s := newStore(t)
		stack := sampleStack("a")
		require.NoError(t, s.Save(ctx, stack))
		stack.Status = api.StackFailed

		got, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, api.StackDeployed, got.Status)

		got.Components[0].Status = api.ComponentFailed
		again, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, api.ComponentDeployed, again.Components[0].Status)
	})

	t.Run("ListKeepsFirstSaveOrder", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, s.Save(ctx, sampleStack(id)))
		}
		// Re-saving does not move a stack to the end.
		require.NoError(t, s.Save(ctx, sampleStack("c")))

		all, err := s.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(all))
		for _, st := range all {
			ids = append(ids, st.ID)
		}
		assert.Equal(t, []string{"c", "a", "b"}, ids)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, sampleStack("a")))
		require.NoError(t, s.Delete(ctx, "a"))

		_, err := s.Get(ctx, "a")
		assert.True(t, api.IsNotFound(err))
		assert.True(t, api.IsNotFound(s.Delete(ctx, "a")))
	})
}
