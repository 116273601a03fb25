// Package config loads the orchestration feature knobs from
// features.yaml and watches the config directory for changes.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Research holds the pipeline knobs.
type Research struct {
	MaxSubQueries       int  `mapstructure:"max_sub_queries"`
	SearchQueryCount    int  `mapstructure:"search_query_count"`
	FindingBatchSize    int  `mapstructure:"finding_batch_size"`
	MaxFindingAnalyses  int  `mapstructure:"max_finding_analyses"`
	ParallelPersonas    bool `mapstructure:"parallel_personas"`
	EnablePerspectives  bool `mapstructure:"enable_perspectives"`
	EnableRelationships bool `mapstructure:"enable_relationships"`
}

// ObservabilityConfig holds metrics and logging settings.
type ObservabilityConfig struct {
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
	Tracing struct {
		Enabled  bool   `mapstructure:"enabled"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"tracing"`
}

// Features is the top-level features.yaml shape.
type Features struct {
	Research      Research            `mapstructure:"research"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DefaultResearch returns the built-in pipeline knobs, used when no
// config file is present and as the fallback for unset keys.
func DefaultResearch() Research {
	return Research{
		MaxSubQueries:       6,
		SearchQueryCount:    3,
		FindingBatchSize:    5,
		MaxFindingAnalyses:  20,
		ParallelPersonas:    true,
		EnablePerspectives:  true,
		EnableRelationships: true,
	}
}

// Load reads features.yaml from CONFIG_PATH, falling back to
// ./config/features.yaml. Unset keys take the built-in defaults, so an
// explicit false in the file still disables a stage. A missing file
// yields the defaults rather than an error; a malformed file does not.
func Load() (*Features, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/features.yaml"
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	def := DefaultResearch()
	v.SetDefault("research.max_sub_queries", def.MaxSubQueries)
	v.SetDefault("research.search_query_count", def.SearchQueryCount)
	v.SetDefault("research.finding_batch_size", def.FindingBatchSize)
	v.SetDefault("research.max_finding_analyses", def.MaxFindingAnalyses)
	v.SetDefault("research.parallel_personas", def.ParallelPersonas)
	v.SetDefault("research.enable_perspectives", def.EnablePerspectives)
	v.SetDefault("research.enable_relationships", def.EnableRelationships)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !os.IsNotExist(err) && !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var f Features
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &f, nil
}

// MetricsPort returns the metrics port, preferring the METRICS_PORT env
// override, then the config file, then defaultPort.
func MetricsPort(defaultPort int) int {
	if p := os.Getenv("METRICS_PORT"); p != "" {
		var v int
		_, _ = fmt.Sscanf(p, "%d", &v)
		if v > 0 {
			return v
		}
	}
	if f, err := Load(); err == nil && f.Observability.Metrics.Port > 0 {
		return f.Observability.Metrics.Port
	}
	return defaultPort
}
