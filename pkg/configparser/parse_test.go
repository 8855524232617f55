package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Name    string        `env:"CP_TEST_NAME" default:"tracker"`
	Port    int           `env:"CP_TEST_PORT" default:"5000"`
	Timeout time.Duration `env:"CP_TEST_TIMEOUT" default:"2s"`
	Debug   bool          `env:"CP_TEST_DEBUG" default:"false"`

	Nested struct {
		Host string `env:"CP_TEST_NESTED_HOST" default:"localhost"`
	}
}

func TestParseEnv_Defaults(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.Name != "tracker" {
		t.Fatalf("expected default name, got %q", cfg.Name)
	}
	if cfg.Port != 5000 {
		t.Fatalf("expected default port, got %d", cfg.Port)
	}
	if cfg.Timeout != 2*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.Debug {
		t.Fatalf("expected debug to default to false")
	}
	if cfg.Nested.Host != "localhost" {
		t.Fatalf("expected nested default, got %q", cfg.Nested.Host)
	}
}

func TestParseEnv_EnvOverridesDefault(t *testing.T) {
	t.Setenv("CP_TEST_NAME", "courier")
	t.Setenv("CP_TEST_PORT", "8080")
	t.Setenv("CP_TEST_TIMEOUT", "500ms")
	t.Setenv("CP_TEST_DEBUG", "true")

	var cfg testConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.Name != "courier" || cfg.Port != 8080 {
		t.Fatalf("env values must win: %+v", cfg)
	}
	if cfg.Timeout != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %v", cfg.Timeout)
	}
	if !cfg.Debug {
		t.Fatalf("expected debug true")
	}
}

func TestParseEnv_BadValues(t *testing.T) {
	t.Setenv("CP_TEST_PORT", "not-a-number")

	var cfg testConfig
	if err := ParseEnv(&cfg); err == nil {
		t.Fatalf("expected error for a non-numeric int field")
	}
}

func TestParseEnv_RejectsNonPointer(t *testing.T) {
	var cfg testConfig
	if err := ParseEnv(cfg); err == nil {
		t.Fatalf("expected error for a non-pointer destination")
	}
}

func TestLoadYamlFile_SetsEnv(t *testing.T) {
	yaml := `
# service settings
server:
  host: "0.0.0.0"
  port: 5000

tracking:
  throttle_interval: 2s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	for _, key := range []string{"SERVER_HOST", "SERVER_PORT", "TRACKING_THROTTLE_INTERVAL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := LoadYamlFile(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if got := os.Getenv("SERVER_HOST"); got != "0.0.0.0" {
		t.Fatalf("SERVER_HOST = %q", got)
	}
	if got := os.Getenv("SERVER_PORT"); got != "5000" {
		t.Fatalf("SERVER_PORT = %q", got)
	}
	if got := os.Getenv("TRACKING_THROTTLE_INTERVAL"); got != "2s" {
		t.Fatalf("TRACKING_THROTTLE_INTERVAL = %q", got)
	}
}

func TestLoadYamlFile_EnvSubstitution(t *testing.T) {
	yaml := `
database:
  host: ${CP_TEST_DB_HOST:-db.internal}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("DATABASE_HOST", "")
	os.Unsetenv("DATABASE_HOST")
	t.Setenv("CP_TEST_DB_HOST", "")
	os.Unsetenv("CP_TEST_DB_HOST")

	if err := LoadYamlFile(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := os.Getenv("DATABASE_HOST"); got != "db.internal" {
		t.Fatalf("expected substitution default, got %q", got)
	}
}

func TestLoadAndParseYaml_MissingFileIsFine(t *testing.T) {
	var cfg testConfig
	if err := LoadAndParseYaml(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err != nil {
		t.Fatalf("a missing config file must not be fatal: %v", err)
	}
	if cfg.Name != "tracker" {
		t.Fatalf("defaults must still apply, got %q", cfg.Name)
	}
}
