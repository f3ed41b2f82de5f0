package translation

import (
	"fmt"
	"strings"
	"time"

	"horse.fit/celltrans/internal/config"
)

// NewRegistryFromConfig registers every backend the environment makes
// available and applies the backends file on top. DeepLX is always
// registered; the others need an endpoint or key. Settings for backends that
// are not available are returned as skipped ids rather than failing startup.
func NewRegistryFromConfig(cfg *config.Config, file *config.BackendsFile) (*Registry, []string, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config is nil")
	}

	registry := NewRegistry()
	backends := []Backend{NewDeepLXBackend(cfg.DeepLXEndpoint, cfg.DeepLXToken)}
	if strings.TrimSpace(cfg.LocalEndpoint) != "" {
		backends = append(backends, NewLocalBackend(cfg.LocalEndpoint, cfg.LocalModel, cfg.LocalAPIKey))
	}
	if strings.TrimSpace(cfg.GoogleAPIKey) != "" {
		backends = append(backends, NewGoogleBackend(cfg.GoogleEndpoint, cfg.GoogleAPIKey))
	}
	if strings.TrimSpace(cfg.LibreEndpoint) != "" {
		backends = append(backends, NewLibreBackend(cfg.LibreEndpoint, cfg.LibreAPIKey))
	}
	for _, backend := range backends {
		if err := registry.Register(backend); err != nil {
			return nil, nil, fmt.Errorf("register backend %s: %w", backend.Name(), err)
		}
	}

	configs, skipped := BackendConfigsFromFile(file, registry)
	if err := registry.Update(configs); err != nil {
		return nil, nil, fmt.Errorf("apply backends file: %w", err)
	}
	return registry, skipped, nil
}

// BackendConfigsFromFile converts backends file settings into registry
// configuration. Ids the registry does not know are returned separately.
func BackendConfigsFromFile(file *config.BackendsFile, registry *Registry) ([]BackendConfig, []string) {
	if file == nil {
		return nil, nil
	}

	configs := make([]BackendConfig, 0, len(file.Backends))
	var skipped []string
	for _, id := range file.IDs() {
		if _, err := registry.Backend(id); err != nil {
			skipped = append(skipped, id)
			continue
		}
		configs = append(configs, BackendConfigFromSettings(id, file.Backends[id]))
	}
	return configs, skipped
}

// BackendConfigFromSettings maps one backends file entry. Omitted values keep
// the registry defaults.
func BackendConfigFromSettings(id string, settings config.BackendSettings) BackendConfig {
	cfg := DefaultBackendConfig(id)
	cfg.Enabled = settings.IsEnabled()
	cfg.Priority = settings.Priority
	if settings.TimeoutMS > 0 {
		cfg.Timeout = time.Duration(settings.TimeoutMS) * time.Millisecond
	}
	if settings.MaxRetries > 0 {
		cfg.MaxRetries = settings.MaxRetries
	}
	if settings.BackoffBaseMS > 0 {
		cfg.BackoffBase = time.Duration(settings.BackoffBaseMS) * time.Millisecond
	}
	cfg.RateLimit = settings.RateLimitRPS
	cfg.Burst = settings.Burst
	return cfg
}

// SettingsFromConfig is the inverse of BackendConfigFromSettings, used to
// report the effective configuration.
func SettingsFromConfig(cfg BackendConfig) config.BackendSettings {
	enabled := cfg.Enabled
	return config.BackendSettings{
		Enabled:       &enabled,
		Priority:      cfg.Priority,
		TimeoutMS:     int(cfg.Timeout / time.Millisecond),
		MaxRetries:    cfg.MaxRetries,
		BackoffBaseMS: int(cfg.BackoffBase / time.Millisecond),
		RateLimitRPS:  cfg.RateLimit,
		Burst:         cfg.Burst,
	}
}
