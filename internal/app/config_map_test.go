package app

import (
	"testing"
	"time"

	"goalcoach/internal/config"
)

func TestMapHTTP(t *testing.T) {
	t.Parallel()
	got, err := mapHTTP(config.HTTPConfig{
		Enabled:      true,
		Addr:         "127.0.0.1:1234",
		ReadTimeout:  "5s",
		WriteTimeout: "10s",
	})
	if err != nil {
		t.Fatalf("mapHTTP: %v", err)
	}
	if got.ReadTimeout != 5*time.Second || got.WriteTimeout != 10*time.Second || got.IdleTimeout != 0 {
		t.Fatalf("timeouts: %+v", got)
	}

	if _, err := mapHTTP(config.HTTPConfig{ReadTimeout: "soon"}); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestMapNotify(t *testing.T) {
	t.Parallel()
	got, err := mapNotify(config.NotifyConfig{
		Enabled:     true,
		RetryBase:   "250ms",
		DedupWindow: "30s",
	})
	if err != nil {
		t.Fatalf("mapNotify: %v", err)
	}
	if got.RetryBase != 250*time.Millisecond || got.DedupWindow != 30*time.Second {
		t.Fatalf("durations: %+v", got)
	}

	// Omitted retry settings pick up the service defaults here, not
	// deep inside the pipeline.
	got, err = mapNotify(config.NotifyConfig{Enabled: true})
	if err != nil {
		t.Fatalf("mapNotify empty: %v", err)
	}
	if got.RetryBase != 500*time.Millisecond || got.RetryMaxDelay != 10*time.Second {
		t.Fatalf("retry defaults: %+v", got)
	}
}

func TestMapTelegram(t *testing.T) {
	t.Parallel()
	if _, ok, err := mapTelegram(nil); ok || err != nil {
		t.Fatalf("nil section: ok=%v err=%v", ok, err)
	}
	if _, ok, err := mapTelegram(&config.TelegramSinkConfig{Enabled: false, Token: "t"}); ok || err != nil {
		t.Fatalf("disabled section: ok=%v err=%v", ok, err)
	}
	got, ok, err := mapTelegram(&config.TelegramSinkConfig{
		Enabled: true, Token: " tok ", ChatID: 42, PollTimeout: "10s",
	})
	if err != nil || !ok {
		t.Fatalf("enabled section: ok=%v err=%v", ok, err)
	}
	if got.Token != "tok" || got.ChatID != 42 || got.PollTimeout != 10*time.Second {
		t.Fatalf("mapped: %+v", got)
	}
}

func TestMapStorage(t *testing.T) {
	t.Parallel()
	got, err := mapStorage(nil)
	if err != nil || got.Driver != "" {
		t.Fatalf("nil section: %+v %v", got, err)
	}
	got, err = mapStorage(&config.StorageConfig{Driver: "sqlite", Path: "/tmp/x", BusyTimeout: "5s"})
	if err != nil {
		t.Fatalf("mapStorage: %v", err)
	}
	if got.BusyTimeout != 5*time.Second {
		t.Fatalf("busy timeout: %+v", got)
	}
}

func TestMapReminder(t *testing.T) {
	t.Parallel()
	if got := mapReminder(config.ReminderConfig{}).DefaultIntervalMinutes; got != 0 {
		t.Fatalf("empty section: got %d, want 0", got)
	}
	if got := mapReminder(config.ReminderConfig{DefaultIntervalMinutes: 45}).DefaultIntervalMinutes; got != 45 {
		t.Fatalf("got %d, want 45", got)
	}
}

func TestAutoResume(t *testing.T) {
	t.Parallel()
	if !autoResume(config.ReminderConfig{}) {
		t.Fatal("default should be true")
	}
	f := false
	if autoResume(config.ReminderConfig{AutoResume: &f}) {
		t.Fatal("explicit false must stick")
	}
}
