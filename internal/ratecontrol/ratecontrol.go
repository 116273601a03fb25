// Package ratecontrol bounds outbound LLM request volume per provider.
// Limits come from the rate_limits section of config/models.yaml with
// built-in fallbacks for the common providers.
package ratecontrol

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type config struct {
	RateLimits struct {
		DefaultRPM        int `yaml:"default_rpm"`
		ProviderOverrides map[string]struct {
			RPM int `yaml:"rpm"`
		} `yaml:"provider_overrides"`
	} `yaml:"rate_limits"`
}

var (
	mu          sync.Mutex
	loaded      *config
	initialized bool
	limiters    map[string]*rate.Limiter
)

var defaultPaths = []string{
	os.Getenv("MODELS_CONFIG_PATH"),
	"/app/config/models.yaml",
	"./config/models.yaml",
}

var builtInProviderRPM = map[string]int{
	"openai":     30,
	"anthropic":  20,
	"google":     40,
	"openrouter": 45,
	"unknown":    45,
}

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
	limiters = make(map[string]*rate.Limiter)
	initialized = true
}

// RPMForProvider returns the requests-per-minute budget for a provider.
func RPMForProvider(provider string) int {
	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		loadLocked()
	}
	key := strings.ToLower(strings.TrimSpace(provider))
	if ov, ok := loaded.RateLimits.ProviderOverrides[key]; ok && ov.RPM > 0 {
		return ov.RPM
	}
	if loaded.RateLimits.DefaultRPM > 0 {
		return loaded.RateLimits.DefaultRPM
	}
	if rpm, ok := builtInProviderRPM[key]; ok {
		return rpm
	}
	return builtInProviderRPM["unknown"]
}

// LimiterForProvider returns a shared token-bucket limiter for a provider.
// Limiters allow a burst of one minute's budget and refill at RPM/60 per
// second.
func LimiterForProvider(provider string) *rate.Limiter {
	rpm := RPMForProvider(provider)

	mu.Lock()
	defer mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(provider))
	if lim, ok := limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	limiters[key] = lim
	return lim
}

// Reload forces a re-read of rate limit configuration and drops cached
// limiters.
func Reload() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
	loadLocked()
}
