package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("CFG_TEST_STRING", "hello")
	t.Setenv("CFG_TEST_BLANK", "   ")

	tests := []struct {
		name string
		key  string
		def  string
		want string
	}{
		{"set", "CFG_TEST_STRING", "fallback", "hello"},
		{"unset", "CFG_TEST_MISSING", "fallback", "fallback"},
		{"whitespace only", "CFG_TEST_BLANK", "fallback", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetEnv(tt.key, tt.def); got != tt.want {
				t.Errorf("GetEnv(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "42")
	t.Setenv("CFG_TEST_BAD_INT", "forty-two")

	if got := GetEnvInt("CFG_TEST_INT", 7); got != 42 {
		t.Errorf("GetEnvInt = %d, want 42", got)
	}
	if got := GetEnvInt("CFG_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("GetEnvInt with bad value = %d, want 7", got)
	}
	if got := GetEnvInt("CFG_TEST_MISSING", 7); got != 7 {
		t.Errorf("GetEnvInt with missing value = %d, want 7", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("CFG_TEST_TRUE", "true")
	t.Setenv("CFG_TEST_ONE", "1")
	t.Setenv("CFG_TEST_BAD", "yes please")

	if !GetEnvBool("CFG_TEST_TRUE", false) {
		t.Error("GetEnvBool(true) = false")
	}
	if !GetEnvBool("CFG_TEST_ONE", false) {
		t.Error("GetEnvBool(1) = false")
	}
	if GetEnvBool("CFG_TEST_BAD", false) {
		t.Error("GetEnvBool(bad) = true, want default false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("CFG_TEST_DUR", "150ms")

	if got := GetEnvDuration("CFG_TEST_DUR", time.Second); got != 150*time.Millisecond {
		t.Errorf("GetEnvDuration = %v, want 150ms", got)
	}
	if got := GetEnvDuration("CFG_TEST_MISSING", time.Second); got != time.Second {
		t.Errorf("GetEnvDuration default = %v, want 1s", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOGICA_CONFIG", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOGICA_METRICS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "error" || cfg.LogFormat != "text" {
		t.Errorf("defaults = %s/%s, want error/text", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Metrics {
		t.Error("metrics should default to off")
	}
}

func TestLoadYAMLAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logica.yaml")
	body := "log_level: debug\nlog_format: json\nmetrics: true\nsweep_schedule: \"@every 1m\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOGICA_CONFIG", path)
	t.Setenv("LOG_LEVEL", "warn") // env wins over file
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOGICA_METRICS", "")
	t.Setenv("LOGICA_SWEEP_SCHEDULE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (env precedence)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json (from file)", cfg.LogFormat)
	}
	if !cfg.Metrics {
		t.Error("Metrics = false, want true (from file)")
	}
	if cfg.SweepSchedule != "@every 1m" {
		t.Errorf("SweepSchedule = %q, want @every 1m", cfg.SweepSchedule)
	}
}

func TestLoadBadConfigFile(t *testing.T) {
	t.Setenv("LOGICA_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() with missing config file should error")
	}
}
