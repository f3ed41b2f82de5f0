package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoaderCandidateOrder(t *testing.T) {
	t.Setenv(EnvFileVar, "/etc/celltrans/prod.env")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env", "")
	if err := fs.Parse([]string{"--env", "deploy/celltrans.env"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := loader.candidates()
	want := []string{"/etc/celltrans/prod.env", "deploy/celltrans.env", "celltrans.env", ".env"}
	if len(got) != len(want) {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	for i := range want {
		if got[i].path != want[i] {
			t.Fatalf("candidate %d: got %q want %q", i, got[i].path, want[i])
		}
	}
}

func TestEnvLoaderDoesNotOverrideProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "CELLTRANS_TEST_WORKERS=4\nCELLTRANS_TEST_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvFileVar, "")
	t.Setenv("CELLTRANS_TEST_LOG_LEVEL", "warn")
	t.Setenv("CELLTRANS_TEST_WORKERS", "")
	os.Unsetenv("CELLTRANS_TEST_WORKERS")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, path, "")
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != path {
		t.Fatalf("unexpected file: %q", loaded)
	}
	if got := os.Getenv("CELLTRANS_TEST_WORKERS"); got != "4" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("CELLTRANS_TEST_LOG_LEVEL"); got != "warn" {
		t.Fatalf("process env must win, got %q", got)
	}
}

func TestEnvLoaderReportsMissingFiles(t *testing.T) {
	t.Setenv(EnvFileVar, "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(t.TempDir(), "missing.env"), "")
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected missing env file to fail")
	}
}
