package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if cfg.DBPath != filepath.Join(dir, DefaultDBName) || cfg.DoingLimit != DefaultDoingLimit {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	again, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != cfg {
		t.Fatalf("reload differs:\n%+v\n%+v", again, cfg)
	}
}

func TestLoadOrCreateFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	data := "backend = \"memory\"\ndoing_limit = 0\n[keys]\nquit = \"x\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if cfg.Backend != "memory" || cfg.Keys.Quit != "x" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.DoingLimit != DefaultDoingLimit {
		t.Fatalf("doing_limit=%d", cfg.DoingLimit)
	}
	if cfg.Keys.Add != "a" {
		t.Fatalf("unset key should keep its default, got %q", cfg.Keys.Add)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	t.Setenv(EnvBackend, "sqlite")
	t.Setenv(EnvDoingLimit, "5")
	t.Setenv(EnvDBPath, "/tmp/other.db")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if cfg.Backend != "sqlite" || cfg.DoingLimit != 5 || cfg.DBPath != "/tmp/other.db" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestEnvRejectsBadLimit(t *testing.T) {
	cfg := defaultConfig(t.TempDir())
	lookup := func(k string) (string, bool) {
		if k == EnvDoingLimit {
			return "many", true
		}
		return "", false
	}
	if err := applyEnv(&cfg, lookup); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CJW_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv(EnvLogLevel); got != "debug" {
		t.Fatalf("%s=%q", EnvLogLevel, got)
	}
}

func TestResolveConfigPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/cjw.toml")
	if got := ResolveConfigPath(); got != "/etc/cjw.toml" {
		t.Fatalf("got %q", got)
	}
}
