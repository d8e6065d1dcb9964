package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infometis/internal/api"
)

func TestStackStorage(t *testing.T) {
	storage := NewStackStorageWithPath(t.TempDir())

	names, err := storage.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	spec := api.StackSpec{
		Name: "streaming",
		Components: []api.ComponentSpec{
			{Name: "k0s", Environment: api.EnvironmentStandalone},
			{Name: "kafka", Dependencies: []string{"k0s"}},
		},
	}
	require.NoError(t, storage.Save(spec))
	require.NoError(t, storage.Save(api.StackSpec{Name: "analytics", Components: []api.ComponentSpec{{Name: "grafana"}}}))

	names, err = storage.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics", "streaming"}, names)

	loaded, err := storage.Load("streaming")
	require.NoError(t, err)
	assert.Equal(t, spec, loaded)

	require.NoError(t, storage.Delete("streaming"))
	require.NoError(t, storage.Delete("streaming"))
	_, err = storage.Load("streaming")
	assert.Error(t, err)

	assert.Error(t, storage.Save(api.StackSpec{Name: "bad name"}))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"simple":      "simple",
		"a/b":         "a_b",
		"v1.2":        "v1_2",
		"__x__":       "x",
		"a  b":        "a_b",
		"...":         "unnamed",
		"with:colon?": "with_colon",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
