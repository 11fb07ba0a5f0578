package common

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

func TestSettingsDefaults(t *testing.T) {
	s := LoadSettings()

	if s.URI != ".anykv" {
		t.Errorf("Expected default uri .anykv, got %s", s.URI)
	}
	if s.SerializationMode != "auto" {
		t.Errorf("Expected default mode auto, got %s", s.SerializationMode)
	}
	if !s.RaiseOnMissing {
		t.Errorf("Expected raise_on_missing to default to true")
	}
	if s.WorkerThreads != runtime.NumCPU() {
		t.Errorf("Expected %d worker threads, got %d", runtime.NumCPU(), s.WorkerThreads)
	}
	if s.WorkerHeartbeat != 15*time.Second {
		t.Errorf("Expected 15s heartbeat, got %s", s.WorkerHeartbeat)
	}
	if len(s.BackendConfig()) != 0 {
		t.Errorf("Expected empty backend config, got %v", s.BackendConfig())
	}
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("ANYKV_URI", "memory://test")
	t.Setenv("ANYKV_SERIALIZATION_MODE", "json")
	t.Setenv("ANYKV_RAISE_ON_MISSING", "false")
	t.Setenv("ANYKV_DEFAULT_TTL", "60")
	t.Setenv("ANYKV_SQL_TABLE", "cache")
	t.Setenv("ANYKV_REDIS_PREFIX", "ns")

	s := LoadSettings()

	if s.URI != "memory://test" || s.SerializationMode != "json" || s.RaiseOnMissing {
		t.Errorf("Environment not applied: %+v", s)
	}
	if s.DefaultTTL != time.Minute {
		t.Errorf("Expected 1m ttl, got %s", s.DefaultTTL)
	}
	conf := s.BackendConfig()
	if conf["sql_table"] != "cache" || conf["redis_prefix"] != "ns" {
		t.Errorf("Unexpected backend config %v", conf)
	}
	if out := s.String(); !strings.Contains(out, "memory://test") || !strings.Contains(out, "BACKEND") {
		t.Errorf("Unexpected String() output:\n%s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected error for unknown level")
	}
	if err := InitLoggers("nope"); err == nil {
		t.Errorf("Expected InitLoggers to reject unknown level")
	}
}
