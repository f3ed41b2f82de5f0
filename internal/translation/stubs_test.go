package translation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// scriptedBackend replays results in order; the last result repeats.
type scriptedBackend struct {
	name    string
	results []AttemptResult
	respond func(Request) AttemptResult

	mu       sync.Mutex
	calls    int
	requests []Request
}

func newScriptedBackend(name string, results ...AttemptResult) *scriptedBackend {
	return &scriptedBackend{name: name, results: results}
}

func echoBackend(name string) *scriptedBackend {
	return &scriptedBackend{
		name: name,
		respond: func(req Request) AttemptResult {
			return success(name + ":" + req.Text)
		},
	}
}

func (b *scriptedBackend) Name() string {
	return b.name
}

func (b *scriptedBackend) Attempt(_ context.Context, req Request) AttemptResult {
	b.mu.Lock()
	idx := b.calls
	b.calls++
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.respond != nil {
		return b.respond(req)
	}
	if len(b.results) == 0 {
		return permanent("no scripted result")
	}
	if idx >= len(b.results) {
		idx = len(b.results) - 1
	}
	return b.results[idx]
}

func (b *scriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// fixedPolicy has no jitter so delays are exact.
func fixedPolicy() RetryPolicy {
	return RetryPolicy{
		MaxDelay: DefaultMaxDelay,
		Jitter:   DefaultJitter,
		Rand:     func() float64 { return 0.5 },
	}
}

func newTestDispatcher(sleep SleepFunc) *Dispatcher {
	return NewDispatcher(fixedPolicy(), zerolog.Nop()).WithSleep(sleep)
}

func newTestRegistry(t interface {
	Fatalf(string, ...any)
}, configs []BackendConfig, backends ...Backend) *Registry {
	registry := NewRegistry()
	for _, backend := range backends {
		if err := registry.Register(backend); err != nil {
			t.Fatalf("register %s: %v", backend.Name(), err)
		}
	}
	if configs != nil {
		if err := registry.Update(configs); err != nil {
			t.Fatalf("update registry: %v", err)
		}
	}
	return registry
}

func backendConfig(id string, priority, maxRetries int) BackendConfig {
	cfg := DefaultBackendConfig(id)
	cfg.Priority = priority
	cfg.MaxRetries = maxRetries
	return cfg
}
