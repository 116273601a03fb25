package pricing

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	pmetrics "github.com/dossierlab/dossier/internal/metrics"
)

// Config structure for the pricing section in config/models.yaml
type config struct {
	Pricing struct {
		Defaults struct {
			InputPer1K  float64 `yaml:"input_per_1k"`
			OutputPer1K float64 `yaml:"output_per_1k"`
		} `yaml:"defaults"`
		Models map[string]struct {
			InputPer1K  float64 `yaml:"input_per_1k"`
			OutputPer1K float64 `yaml:"output_per_1k"`
		} `yaml:"models"`
	} `yaml:"pricing"`
}

var (
	mu          sync.RWMutex
	loaded      *config
	initialized bool
)

// default locations inside containers / local dev
var defaultPaths = []string{
	os.Getenv("MODELS_CONFIG_PATH"),
	"/app/config/models.yaml",
	"./config/models.yaml",
}

// findUpConfig searches parent directories for config/models.yaml starting at CWD.
func findUpConfig() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < 6; i++ {
		cand := filepath.Join(wd, "config", "models.yaml")
		if _, err := os.Stat(cand); err == nil {
			return cand, true
		}
		wd = filepath.Dir(wd)
	}
	return "", false
}

// loadLocked loads the configuration - must be called while holding mu.Lock()
func loadLocked() {
	var cfg config
	paths := make([]string, 0, len(defaultPaths)+1)
	paths = append(paths, defaultPaths...)
	if p, ok := findUpConfig(); ok {
		paths = append(paths, p)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var tmp config
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			continue
		}
		cfg = tmp
		break
	}
	loaded = &cfg
	initialized = true
}

func get() *config {
	mu.RLock()
	if initialized {
		defer mu.RUnlock()
		return loaded
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		loadLocked()
	}
	return loaded
}

// Reload forces a re-read of pricing configuration.
func Reload() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
	loadLocked()
}

// Default per-token rates when the config carries none: $0.5 / $1.5 per 1M
// tokens, roughly a small-tier model.
const (
	fallbackInputPerToken  = 0.0000005
	fallbackOutputPerToken = 0.0000015
)

// defaultRates returns the configured default per-token rates, or the
// built-in fallback when the config has no defaults section.
func defaultRates() (inPerTok, outPerTok float64) {
	cfg := get()
	inPerTok = fallbackInputPerToken
	outPerTok = fallbackOutputPerToken
	if cfg.Pricing.Defaults.InputPer1K > 0 {
		inPerTok = cfg.Pricing.Defaults.InputPer1K / 1000.0
	}
	if cfg.Pricing.Defaults.OutputPer1K > 0 {
		outPerTok = cfg.Pricing.Defaults.OutputPer1K / 1000.0
	}
	return inPerTok, outPerTok
}

// RatesForModel returns per-token input/output rates for a model if listed.
func RatesForModel(model string) (inPerTok, outPerTok float64, ok bool) {
	if model == "" {
		return 0, 0, false
	}
	cfg := get()
	m, found := cfg.Pricing.Models[model]
	if !found || (m.InputPer1K <= 0 && m.OutputPer1K <= 0) {
		return 0, 0, false
	}
	return m.InputPer1K / 1000.0, m.OutputPer1K / 1000.0, true
}

// CostForSplit computes cost in USD from an input/output token split,
// falling back to the default rates for unknown or missing models.
func CostForSplit(model string, inputTokens, outputTokens int) float64 {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	in, out, ok := RatesForModel(model)
	if !ok {
		if model == "" {
			pmetrics.PricingFallbacks.WithLabelValues("missing_model").Inc()
		} else {
			pmetrics.PricingFallbacks.WithLabelValues("unknown_model").Inc()
		}
		in, out = defaultRates()
	}
	return float64(inputTokens)*in + float64(outputTokens)*out
}

// CostForTokens computes cost for a combined token count when no split is
// known; it assumes the usual 60/40 input/output shape.
func CostForTokens(model string, tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	inTok := tokens * 6 / 10
	return CostForSplit(model, inTok, tokens-inTok)
}
