// Package static loads feature toggles from a YAML file once at boot,
// with per-toggle environment overrides for operational flips without a
// config rollout.
package static

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Toggles map[string]bool `yaml:"toggles"`
}

type Provider struct {
	mu      sync.RWMutex
	toggles map[string]bool
}

// Load reads the toggle file. An empty path yields an empty provider
// (every toggle off) rather than an error.
func Load(path string) (*Provider, error) {
	p := &Provider{toggles: map[string]bool{}}
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read toggles file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse toggles file: %w", err)
	}
	if f.Toggles != nil {
		p.toggles = f.Toggles
	}
	return p, nil
}

// IsEnabled resolves the toggle, letting an environment variable of the
// form GROVE_TOGGLE_WATCHDOG_FLAG override the file value.
func (p *Provider) IsEnabled(name string) bool {
	if v, ok := envOverride(name); ok {
		return v
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.toggles[name]
}

// Set flips a toggle at runtime; used by tests and ops tooling.
func (p *Provider) Set(name string, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toggles[name] = enabled
}

func envOverride(name string) (bool, bool) {
	key := "GROVE_TOGGLE_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
	raw, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	raw = strings.TrimSpace(strings.ToLower(raw))
	return raw == "true" || raw == "1" || raw == "yes", true
}
