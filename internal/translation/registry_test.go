package translation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistryOrdersByPriorityThenRegistration(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, []BackendConfig{
		backendConfig("c", 1, 1),
		backendConfig("a", 5, 1),
		backendConfig("b", 5, 1),
	}, echoBackend("a"), echoBackend("b"), echoBackend("c"))

	candidates := registry.Snapshot().Candidates(nil)
	got := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		got = append(got, candidate.Config.ID)
	}
	if len(got) != 3 || got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestRegistryDefaultsUnconfiguredBackends(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, nil, echoBackend("first"), echoBackend("second"))
	configs := registry.Snapshot().Configs()
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
	if configs[0].ID != "first" || !configs[0].Enabled || configs[0].MaxRetries != DefaultMaxRetries || configs[0].Timeout != DefaultTimeout {
		t.Fatalf("unexpected default config: %+v", configs[0])
	}
	if configs[1].Priority <= configs[0].Priority {
		t.Fatalf("expected registration order to break ties: %+v", configs)
	}
}

func TestRegistryRejectsDuplicatesAndUnknownIDs(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, nil, echoBackend("a"))
	if err := registry.Register(echoBackend("A")); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	err := registry.Update([]BackendConfig{backendConfig("ghost", 1, 1)})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	if err := registry.Update([]BackendConfig{backendConfig("a", 1, 1), backendConfig("a", 2, 1)}); err == nil {
		t.Fatalf("expected duplicate config to fail")
	}
	bad := backendConfig("a", 1, 1)
	bad.Timeout = -time.Second
	if err := registry.Update([]BackendConfig{bad}); err == nil {
		t.Fatalf("expected negative timeout to fail")
	}
}

func TestRegistryUpdatePublishesNewSnapshot(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, nil, echoBackend("a"), echoBackend("b"))
	before := registry.Snapshot()

	disabled := backendConfig("a", 1, 1)
	disabled.Enabled = false
	if err := registry.Update([]BackendConfig{disabled, backendConfig("b", 2, 1)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := registry.Snapshot()

	if after.Version() <= before.Version() {
		t.Fatalf("expected version to grow: before=%d after=%d", before.Version(), after.Version())
	}
	if got := before.Candidates(nil); len(got) != 2 {
		t.Fatalf("old snapshot must stay unchanged, got %d candidates", len(got))
	}
	got := after.Candidates(nil)
	if len(got) != 1 || got[0].Config.ID != "b" {
		t.Fatalf("unexpected candidates after update: %+v", got)
	}
}

func TestUpdateNormalizesZeroValues(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, []BackendConfig{{ID: "a", Enabled: true, RateLimit: 5}}, echoBackend("a"))
	cfg := registry.Snapshot().Configs()[0]
	if cfg.Timeout != DefaultTimeout || cfg.MaxRetries != 1 || cfg.Burst != 1 {
		t.Fatalf("unexpected normalized config: %+v", cfg)
	}
}

func TestCandidateSharesLimiterAcrossCalls(t *testing.T) {
	t.Parallel()

	cfg := backendConfig("a", 1, 1)
	cfg.RateLimit = 1000
	cfg.Burst = 1
	registry := newTestRegistry(t, []BackendConfig{cfg}, echoBackend("a"))
	snapshot := registry.Snapshot()

	first := snapshot.Candidates(nil)[0]
	second := snapshot.Candidates(nil)[0]
	if first.limiter == nil || first.limiter != second.limiter {
		t.Fatalf("expected one shared limiter per backend in a snapshot")
	}
	if err := first.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := second.Wait(ctx); err == nil {
		t.Fatalf("expected cancelled wait on an empty bucket to fail")
	}
}

func TestRegistryBackendLookup(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, nil, echoBackend("deeplx"))
	if _, err := registry.Backend(" DeepLX "); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := registry.Backend("google"); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}
