package translation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 500 * time.Millisecond
	// defaultPriorityBase places unconfigured backends after configured ones.
	defaultPriorityBase = 1000
)

var ErrUnknownBackend = errors.New("unknown translation backend")

// BackendConfig is the per-backend tuning held by the registry.
type BackendConfig struct {
	ID          string
	Enabled     bool
	Priority    int
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	// RateLimit is in requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// DefaultBackendConfig returns the tuning used for backends without explicit configuration.
func DefaultBackendConfig(id string) BackendConfig {
	return BackendConfig{
		ID:          normalizeBackendID(id),
		Enabled:     true,
		Priority:    defaultPriorityBase,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		BackoffBase: DefaultBackoffBase,
	}
}

func (c BackendConfig) validate() error {
	if c.ID == "" {
		return fmt.Errorf("backend id is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("backend %s: timeout must be >= 0", c.ID)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("backend %s: max retries must be >= 0", c.ID)
	}
	if c.BackoffBase < 0 {
		return fmt.Errorf("backend %s: backoff base must be >= 0", c.ID)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("backend %s: rate limit must be >= 0", c.ID)
	}
	if c.Burst < 0 {
		return fmt.Errorf("backend %s: burst must be >= 0", c.ID)
	}
	return nil
}

func (c BackendConfig) withDefaults() BackendConfig {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 1
	}
	if c.RateLimit > 0 && c.Burst == 0 {
		c.Burst = 1
	}
	return c
}

// Registry stores translation backends and the current configuration snapshot.
type Registry struct {
	mu       sync.Mutex
	backends map[string]Backend
	order    []string
	configs  map[string]BackendConfig
	snapshot atomic.Pointer[Snapshot]
	version  atomic.Int64
}

func NewRegistry() *Registry {
	r := &Registry{
		backends: make(map[string]Backend),
		configs:  make(map[string]BackendConfig),
	}
	r.snapshot.Store(&Snapshot{})
	return r
}

// Register adds one backend. Registration order breaks priority ties.
func (r *Registry) Register(backend Backend) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if backend == nil {
		return fmt.Errorf("backend is nil")
	}
	id := normalizeBackendID(backend.Name())
	if id == "" {
		return fmt.Errorf("backend name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.backends[id]; exists {
		return fmt.Errorf("backend %q is already registered", id)
	}
	r.backends[id] = backend
	r.order = append(r.order, id)
	r.publishLocked()
	return nil
}

// Update replaces the explicit configuration set and atomically publishes a
// new snapshot. Batches already running keep the snapshot they started with.
func (r *Registry) Update(configs []BackendConfig) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]BackendConfig, len(configs))
	for _, cfg := range configs {
		cfg.ID = normalizeBackendID(cfg.ID)
		if err := cfg.validate(); err != nil {
			return err
		}
		if _, known := r.backends[cfg.ID]; !known {
			return fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.ID)
		}
		if _, dup := next[cfg.ID]; dup {
			return fmt.Errorf("backend %s configured twice", cfg.ID)
		}
		next[cfg.ID] = cfg.withDefaults()
	}

	r.configs = next
	r.publishLocked()
	return nil
}

// Snapshot returns the current immutable configuration snapshot.
func (r *Registry) Snapshot() *Snapshot {
	if r == nil {
		return &Snapshot{}
	}
	return r.snapshot.Load()
}

// Backends returns registered backends in registration order.
func (r *Registry) Backends() []Backend {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Backend, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.backends[id])
	}
	return out
}

// Backend resolves a registered backend by id.
func (r *Registry) Backend(id string) (Backend, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	backend, ok := r.backends[normalizeBackendID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownBackend, id, strings.Join(r.order, ", "))
	}
	return backend, nil
}

func (r *Registry) publishLocked() {
	entries := make([]snapshotEntry, 0, len(r.order))
	for idx, id := range r.order {
		cfg, ok := r.configs[id]
		if !ok {
			cfg = DefaultBackendConfig(id)
			cfg.Priority += idx
		}
		entries = append(entries, snapshotEntry{
			backend: r.backends[id],
			config:  cfg,
			order:   idx,
			limiter: newLimiter(cfg),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].config.Priority != entries[j].config.Priority {
			return entries[i].config.Priority < entries[j].config.Priority
		}
		return entries[i].order < entries[j].order
	})

	r.snapshot.Store(&Snapshot{
		version: r.version.Add(1),
		entries: entries,
	})
}

func newLimiter(cfg BackendConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, cfg.Burst))
}

// Snapshot is an immutable view of the registry configuration. Each snapshot
// owns one token bucket per backend, shared by every worker using it.
type Snapshot struct {
	version int64
	entries []snapshotEntry
}

type snapshotEntry struct {
	backend Backend
	config  BackendConfig
	order   int
	limiter *rate.Limiter
}

// Candidate is one enabled backend ready to be tried.
type Candidate struct {
	Backend Backend
	Config  BackendConfig
	limiter *rate.Limiter
}

// Wait blocks until the backend's shared rate limiter admits one call.
func (c Candidate) Wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (s *Snapshot) Version() int64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Configs lists every backend configuration in priority order.
func (s *Snapshot) Configs() []BackendConfig {
	if s == nil {
		return nil
	}
	out := make([]BackendConfig, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.config)
	}
	return out
}

// Candidates returns enabled backends in the order they should be tried.
// A non-empty override replaces the configured priority order; unknown or
// disabled ids in it are ignored.
func (s *Snapshot) Candidates(override []string) []Candidate {
	if s == nil {
		return nil
	}

	if len(override) == 0 {
		out := make([]Candidate, 0, len(s.entries))
		for _, entry := range s.entries {
			if entry.config.Enabled {
				out = append(out, entry.candidate())
			}
		}
		return out
	}

	byID := make(map[string]snapshotEntry, len(s.entries))
	for _, entry := range s.entries {
		byID[entry.config.ID] = entry
	}
	seen := make(map[string]struct{}, len(override))
	out := make([]Candidate, 0, len(override))
	for _, raw := range override {
		id := normalizeBackendID(raw)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		entry, ok := byID[id]
		if !ok || !entry.config.Enabled {
			continue
		}
		out = append(out, entry.candidate())
	}
	return out
}

func (e snapshotEntry) candidate() Candidate {
	return Candidate{Backend: e.backend, Config: e.config, limiter: e.limiter}
}

func normalizeBackendID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
