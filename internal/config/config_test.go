package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	f, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6, f.Research.MaxSubQueries)
	assert.Equal(t, 3, f.Research.SearchQueryCount)
	assert.Equal(t, 5, f.Research.FindingBatchSize)
	assert.True(t, f.Research.ParallelPersonas)
	assert.True(t, f.Research.EnablePerspectives)
	assert.True(t, f.Research.EnableRelationships)
}

func TestLoadHonorsExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
research:
  enable_relationships: false
  parallel_personas: false
`), 0o644))
	t.Setenv("CONFIG_PATH", path)

	f, err := Load()
	require.NoError(t, err)
	assert.False(t, f.Research.EnableRelationships)
	assert.False(t, f.Research.ParallelPersonas)
	// Keys the file does not mention keep their defaults.
	assert.True(t, f.Research.EnablePerspectives)
	assert.Equal(t, 6, f.Research.MaxSubQueries)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
research:
  max_sub_queries: 4
  finding_batch_size: 2
  enable_perspectives: true
observability:
  metrics:
    enabled: true
    port: 2112
`), 0o644))
	t.Setenv("CONFIG_PATH", path)

	f, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, f.Research.MaxSubQueries)
	assert.Equal(t, 2, f.Research.FindingBatchSize)
	assert.True(t, f.Research.EnablePerspectives)
	// Unset values still take defaults.
	assert.Equal(t, 3, f.Research.SearchQueryCount)
	assert.Equal(t, 2112, f.Observability.Metrics.Port)
}

func TestMetricsPortEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("METRICS_PORT", "9999")
	assert.Equal(t, 9999, MetricsPort(2112))
}

func TestManagerDispatchesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: {}\n"), 0o644))

	m, err := NewManager(dir, zap.NewNop())
	require.NoError(t, err)

	changed := make(chan string, 1)
	m.OnChange("models.yaml", func(file string) error {
		select {
		case changed <- file:
		default:
		}
		return nil
	})
	require.NoError(t, m.Start())
	defer m.Stop()

	require.NoError(t, os.WriteFile(path, []byte("models: {updated: {}}\n"), 0o644))

	select {
	case file := <-changed:
		assert.Equal(t, "models.yaml", file)
	case <-time.After(3 * time.Second):
		t.Fatal("change handler was not invoked")
	}
}
