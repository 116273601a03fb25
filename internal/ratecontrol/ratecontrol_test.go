package ratecontrol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPMForProviderBuiltIns(t *testing.T) {
	t.Chdir(t.TempDir())
	Reload()
	t.Cleanup(Reload)

	assert.Equal(t, 30, RPMForProvider("openai"))
	assert.Equal(t, 20, RPMForProvider("Anthropic"))
	assert.Equal(t, 45, RPMForProvider("no-such-provider"))
}

func TestRPMForProviderConfigOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "models.yaml"), []byte(`
rate_limits:
  default_rpm: 12
  provider_overrides:
    openai:
      rpm: 90
`), 0o644))
	t.Chdir(dir)
	Reload()
	t.Cleanup(Reload)

	assert.Equal(t, 90, RPMForProvider("openai"))
	assert.Equal(t, 12, RPMForProvider("anything-else"))
}

func TestLimiterForProviderShared(t *testing.T) {
	t.Chdir(t.TempDir())
	Reload()
	t.Cleanup(Reload)

	a := LimiterForProvider("openai")
	b := LimiterForProvider("OpenAI")
	assert.Same(t, a, b)
	assert.True(t, a.Allow())
}
