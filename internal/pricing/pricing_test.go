package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, yaml string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "models.yaml"), []byte(yaml), 0o644))
	t.Chdir(dir)
	Reload()
	t.Cleanup(Reload)
}

func TestCostForSplitKnownModel(t *testing.T) {
	writeTestConfig(t, `
pricing:
  defaults:
    input_per_1k: 0.001
    output_per_1k: 0.002
  models:
    test-model:
      input_per_1k: 0.01
      output_per_1k: 0.03
`)

	cost := CostForSplit("test-model", 1000, 1000)
	assert.InDelta(t, 0.04, cost, 1e-9)
}

func TestCostForSplitUnknownModelUsesDefaults(t *testing.T) {
	writeTestConfig(t, `
pricing:
  defaults:
    input_per_1k: 0.001
    output_per_1k: 0.002
`)

	cost := CostForSplit("never-heard-of-it", 2000, 500)
	assert.InDelta(t, 0.001*2+0.002*0.5, cost, 1e-9)
}

func TestCostForSplitNoConfigUsesBuiltInFallback(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	Reload()
	t.Cleanup(Reload)

	cost := CostForSplit("", 1000, 1000)
	assert.Greater(t, cost, 0.0)
	assert.InDelta(t, fallbackInputPerToken*1000+fallbackOutputPerToken*1000, cost, 1e-9)
}

func TestCostForSplitNegativeTokensClamped(t *testing.T) {
	cost := CostForSplit("whatever", -10, -20)
	assert.Equal(t, 0.0, cost)
}

func TestRatesForModel(t *testing.T) {
	writeTestConfig(t, `
pricing:
  models:
    listed:
      input_per_1k: 0.5
      output_per_1k: 1.5
`)

	in, out, ok := RatesForModel("listed")
	require.True(t, ok)
	assert.InDelta(t, 0.0005, in, 1e-9)
	assert.InDelta(t, 0.0015, out, 1e-9)

	_, _, ok = RatesForModel("unlisted")
	assert.False(t, ok)
	_, _, ok = RatesForModel("")
	assert.False(t, ok)
}

func TestCostForTokensCombined(t *testing.T) {
	writeTestConfig(t, `
pricing:
  models:
    combined-model:
      input_per_1k: 0.01
      output_per_1k: 0.01
`)

	// 60/40 split assumption does not matter when input and output rates match.
	cost := CostForTokens("combined-model", 1000)
	assert.InDelta(t, 0.01, cost, 1e-9)
	assert.Equal(t, 0.0, CostForTokens("combined-model", 0))
}
