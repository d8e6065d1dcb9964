package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheImages_ListEmpty(t *testing.T) {
	out, err := executeCommand(t, t.TempDir(), "cache-images", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "No images cached")
}
