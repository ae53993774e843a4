package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: DEBUG
  console: true
http:
  enabled: true
  addr: 127.0.0.1:9999
  export_rate_per_sec: 2
reminder:
  default_interval_minutes: 30
notify:
  enabled: true
  dedup_window: 30s
storage:
  driver: file
  path: ./data/goalcoach
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" || !cfg.Logging.Console {
		t.Fatalf("logging: %+v", cfg.Logging)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9999" || cfg.HTTP.ExportRatePerSec != 2 {
		t.Fatalf("http: %+v", cfg.HTTP)
	}
	if cfg.Reminder.DefaultIntervalMinutes != 30 {
		t.Fatalf("reminder: %+v", cfg.Reminder)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Digest != nil {
		t.Fatalf("digest should be absent: %+v", cfg.Digest)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json",
		`{"logging":{"level":"INFO","console":true,"file":{"enabled":false,"path":""}},`+
			`"http":{"enabled":false},"reminder":{},"notify":{"enabled":false}}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Fatalf("logging: %+v", cfg.Logging)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: INFO
  consoel: true
`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"logging":{"level":"INFO","console":true,"file":{"enabled":false,"path":""}}} {"extra":1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestLoadCommitGet(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", "logging:\n  level: WARN\n  console: true\n")

	m := NewManager(path)
	if m.Get() != nil {
		t.Fatal("Get before Load should be nil")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")

	ch := m.Subscribe(1)
	cfg := &Config{}
	m.publish(cfg)
	if got := <-ch; got != cfg {
		t.Fatal("subscriber did not receive the published config")
	}

	// Full buffer: oldest is dropped, newest delivered.
	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)
	if got := <-ch; got != second {
		t.Fatal("expected newest config after backpressure drop")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	m.publish(cfg)
}

func TestHashConfigDetectsChanges(t *testing.T) {
	t.Parallel()
	a := &Config{Logging: LoggingConfig{Level: "INFO"}}
	b := &Config{Logging: LoggingConfig{Level: "INFO"}}
	c := &Config{Logging: LoggingConfig{Level: "DEBUG"}}

	if hashConfig(a) != hashConfig(b) {
		t.Fatal("equal configs must hash equal")
	}
	if hashConfig(a) == hashConfig(c) {
		t.Fatal("different configs must hash differently")
	}
	if hashConfig(nil) != 0 {
		t.Fatal("nil config hashes to 0")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 5s "); err != nil || d.Seconds() != 5 {
		t.Fatalf("5s: %v %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("expected error for garbage duration")
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	if d, err := ParseDurationOrDefault("x", "", 7); err != nil || d != 7 {
		t.Fatalf("default: %v %v", d, err)
	}
}
