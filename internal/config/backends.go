package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// BackendsFile is the backends.yaml structure.
type BackendsFile struct {
	Backends map[string]BackendSettings `yaml:"backends" json:"backends"`
}

// BackendSettings is the tuning for one translation backend. Omitted numeric
// fields fall back to the registry defaults.
type BackendSettings struct {
	// Enabled defaults to true when omitted.
	Enabled       *bool   `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Priority      int     `yaml:"priority" json:"priority"`
	TimeoutMS     int     `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	MaxRetries    int     `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	BackoffBaseMS int     `yaml:"backoff_base_ms,omitempty" json:"backoff_base_ms,omitempty"`
	RateLimitRPS  float64 `yaml:"rate_limit_rps,omitempty" json:"rate_limit_rps,omitempty"`
	Burst         int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

func (s BackendSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

func (s BackendSettings) Validate(id string) error {
	switch {
	case s.TimeoutMS < 0:
		return fmt.Errorf("backend %s: timeout_ms must be >= 0", id)
	case s.MaxRetries < 0:
		return fmt.Errorf("backend %s: max_retries must be >= 0", id)
	case s.BackoffBaseMS < 0:
		return fmt.Errorf("backend %s: backoff_base_ms must be >= 0", id)
	case s.RateLimitRPS < 0:
		return fmt.Errorf("backend %s: rate_limit_rps must be >= 0", id)
	case s.Burst < 0:
		return fmt.Errorf("backend %s: burst must be >= 0", id)
	}
	return nil
}

// LoadBackendsFile reads backend tuning from path. A missing file yields an
// empty configuration so every backend runs with defaults.
func LoadBackendsFile(path string) (*BackendsFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return &BackendsFile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &BackendsFile{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return ParseBackendsFile(data, path)
}

// ParseBackendsFile decodes and validates backends YAML. source names the
// input in error messages.
func ParseBackendsFile(data []byte, source string) (*BackendsFile, error) {
	var raw BackendsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}

	out := &BackendsFile{Backends: make(map[string]BackendSettings, len(raw.Backends))}
	for name, settings := range raw.Backends {
		id := strings.ToLower(strings.TrimSpace(name))
		if id == "" {
			return nil, fmt.Errorf("%s: backend with empty name", source)
		}
		if _, dup := out.Backends[id]; dup {
			return nil, fmt.Errorf("%s: backend %q listed twice", source, id)
		}
		if err := settings.Validate(id); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		out.Backends[id] = settings
	}
	return out, nil
}

// IDs returns the configured backend ids in sorted order.
func (f *BackendsFile) IDs() []string {
	if f == nil {
		return nil
	}
	ids := make([]string, 0, len(f.Backends))
	for id := range f.Backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
