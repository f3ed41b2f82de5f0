package translation

import (
	"testing"
	"time"

	"horse.fit/celltrans/internal/config"
)

func TestNewRegistryFromConfigRegistersAvailableBackends(t *testing.T) {
	t.Parallel()

	disabled := false
	cfg := &config.Config{
		DeepLXEndpoint: "127.0.0.1:1188",
		LocalEndpoint:  "http://127.0.0.1:8845/v1",
		LibreEndpoint:  "http://127.0.0.1:5000",
	}
	file := &config.BackendsFile{Backends: map[string]config.BackendSettings{
		"local":  {Priority: 1, TimeoutMS: 30000, MaxRetries: 2},
		"deeplx": {Priority: 2, RateLimitRPS: 2, Burst: 1},
		"libre":  {Priority: 3, Enabled: &disabled},
		"google": {Priority: 4},
	}}

	registry, skipped, err := NewRegistryFromConfig(cfg, file)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "google" {
		t.Fatalf("expected google skipped without an api key, got %v", skipped)
	}

	configs := registry.Snapshot().Configs()
	if len(configs) != 3 {
		t.Fatalf("expected 3 backends, got %d", len(configs))
	}
	if configs[0].ID != "local" || configs[0].Timeout != 30*time.Second || configs[0].MaxRetries != 2 {
		t.Fatalf("unexpected first backend: %+v", configs[0])
	}
	if configs[1].ID != "deeplx" || configs[1].RateLimit != 2 || configs[1].MaxRetries != DefaultMaxRetries {
		t.Fatalf("unexpected second backend: %+v", configs[1])
	}
	if configs[2].ID != "libre" || configs[2].Enabled {
		t.Fatalf("expected libre disabled: %+v", configs[2])
	}

	candidates := registry.Snapshot().Candidates(nil)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 enabled candidates, got %d", len(candidates))
	}
}

func TestNewRegistryFromConfigWithoutFileUsesDefaults(t *testing.T) {
	t.Parallel()

	registry, skipped, err := NewRegistryFromConfig(&config.Config{}, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped ids: %v", skipped)
	}
	configs := registry.Snapshot().Configs()
	if len(configs) != 1 || configs[0].ID != "deeplx" || !configs[0].Enabled {
		t.Fatalf("expected only deeplx with defaults, got %+v", configs)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultBackendConfig("deeplx")
	cfg.Priority = 4
	cfg.RateLimit = 1.5
	cfg.Burst = 2

	back := BackendConfigFromSettings("deeplx", SettingsFromConfig(cfg))
	if back != cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", back, cfg)
	}
}
