package digest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"goalcoach/internal/notify"
	"goalcoach/internal/reminder"
	"goalcoach/internal/storage"
	logx "goalcoach/pkg/logx"
)

func newLifecycleService(t *testing.T, cfg Config) *Service {
	t.Helper()
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "store.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	notifier := notify.New(notify.Config{}, nil, logx.Nop(), nil)
	rem := reminder.New(reminder.Options{Log: logx.Nop()})
	return New(cfg, st, notifier, rem, logx.Nop())
}

func (s *Service) scheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}

func TestStartAfterCancelDoesNotArm(t *testing.T) {
	t.Parallel()
	s := newLifecycleService(t, Config{Enabled: true, At: "21:00", Timezone: "UTC"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Start(ctx); err == nil {
		t.Fatal("Start with a canceled context must fail")
	}
	if s.scheduled() {
		t.Fatal("cron armed after canceled start")
	}
}

func TestReconfigureSwapsSchedule(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newLifecycleService(t, Config{Enabled: false})
	defer s.Stop(ctx)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.scheduled() {
		t.Fatal("disabled digest must not arm")
	}

	if err := s.Reconfigure(ctx, Config{Enabled: true, At: "06:30", Timezone: "UTC"}); err != nil {
		t.Fatalf("Reconfigure enable: %v", err)
	}
	if !s.scheduled() {
		t.Fatal("enabled digest did not arm")
	}

	if err := s.Reconfigure(ctx, Config{Enabled: false}); err != nil {
		t.Fatalf("Reconfigure disable: %v", err)
	}
	if s.scheduled() {
		t.Fatal("disabled digest still armed")
	}
}

func TestCronSpec(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "21:00", want: "0 21 * * *"},
		{in: "06:30", want: "30 6 * * *"},
		{in: "", want: "0 21 * * *"},
		{in: "  9:05 ", want: "5 9 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "12", wantErr: true},
	}
	for _, tc := range cases {
		got, err := cronSpec(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("cronSpec(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("cronSpec(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("cronSpec(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRecapMessage(t *testing.T) {
	t.Parallel()
	if msg := recapMessage("", 0); !strings.Contains(msg, "your goal") {
		t.Fatalf("empty goal fallback missing: %q", msg)
	}
	if msg := recapMessage("run daily", 0); !strings.Contains(msg, "No nudges") {
		t.Fatalf("zero-fire message: %q", msg)
	}
	if msg := recapMessage("run daily", 1); !strings.Contains(msg, "1 nudge ") {
		t.Fatalf("one-fire message: %q", msg)
	}
	if msg := recapMessage("run daily", 7); !strings.Contains(msg, "7 nudges") {
		t.Fatalf("many-fires message: %q", msg)
	}
}
