package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Environment: "local",
		LogLevel:    "info",
		DBMinConns:  1,
		DBMaxConns:  8,
		Workers:     1,
	}
}

func TestValidateAllowsMissingDatabase(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.HasDatabase() {
		t.Fatalf("expected no database without DATABASE_URL")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"min conns above max": func(c *Config) { c.DBMinConns = 9 },
		"zero workers":        func(c *Config) { c.Workers = 0 },
		"plain admin token":   func(c *Config) { c.AdminTokenHash = "secret" },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCORSAllowedOriginsListDedupes(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: []string{" http://a.test", " ", "http://b.test", "http://a.test"}}
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}

func TestLoadBackendsFileMissingReturnsEmpty(t *testing.T) {
	t.Parallel()

	file, err := LoadBackendsFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(file.Backends) != 0 {
		t.Fatalf("expected no backends, got %d", len(file.Backends))
	}
}

func TestLoadBackendsFileParsesSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "backends.yaml")
	body := `backends:
  DeepLX:
    priority: 1
    timeout_ms: 8000
    max_retries: 3
    backoff_base_ms: 500
    rate_limit_rps: 2
    burst: 4
  google:
    enabled: false
    priority: 2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	file, err := LoadBackendsFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ids := file.IDs()
	if strings.Join(ids, ",") != "deeplx,google" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	deeplx := file.Backends["deeplx"]
	if !deeplx.IsEnabled() || deeplx.TimeoutMS != 8000 || deeplx.MaxRetries != 3 || deeplx.RateLimitRPS != 2 || deeplx.Burst != 4 {
		t.Fatalf("unexpected deeplx settings: %+v", deeplx)
	}
	if file.Backends["google"].IsEnabled() {
		t.Fatalf("expected google disabled")
	}
}

func TestParseBackendsFileRejectsNegativeValues(t *testing.T) {
	t.Parallel()

	_, err := ParseBackendsFile([]byte("backends:\n  local:\n    max_retries: -1\n"), "inline")
	if err == nil || !strings.Contains(err.Error(), "max_retries") {
		t.Fatalf("expected max_retries error, got %v", err)
	}
}
