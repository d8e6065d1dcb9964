package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"infometis/internal/api"
	"infometis/internal/store"
	"infometis/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.StackStore {
		return store.NewMemoryStore()
	})
}

func TestClone(t *testing.T) {
	orig := &api.StackDeployment{
		ID: "s1",
		Components: []*api.ComponentDeployment{
			{Component: "k0s", Status: api.ComponentDeployed, Result: &api.DeploymentResult{Warnings: []string{"w"}}},
		},
	}

	c := store.Clone(orig)
	c.Components[0].Status = api.ComponentRemoved
	c.Components[0].Result.Warnings[0] = "changed"

	assert.Equal(t, api.ComponentDeployed, orig.Components[0].Status)
	assert.Equal(t, "w", orig.Components[0].Result.Warnings[0])
	assert.Nil(t, store.Clone(nil))
}
