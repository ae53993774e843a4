package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logx "goalcoach/pkg/logx"
)

type fakeSink struct {
	mu       sync.Mutex
	sent     []Notification
	failures int // fail this many sends before succeeding
	gate     chan struct{}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Send(ctx context.Context, n Notification) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sink unavailable")
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func waitCount(t *testing.T, f *fakeSink, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.count() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sink saw %d sends, want %d", f.count(), want)
}

func newTestService(t *testing.T, cfg Config, sinks ...Sink) *Service {
	t.Helper()
	cfg.Enabled = true
	if cfg.RatePerSec == 0 {
		cfg.RatePerSec = 1000
	}
	s := New(cfg, sinks, logx.Nop(), nil)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestNotifyDisabled(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, logx.Nop(), nil)
	if err := s.Notify(context.Background(), Notification{Title: "t"}); err != ErrDisabled {
		t.Fatalf("got %v, want ErrDisabled", err)
	}
}

func TestDeliversToAllSinks(t *testing.T) {
	t.Parallel()
	a, b := &fakeSink{}, &fakeSink{}
	s := newTestService(t, Config{}, a, b)

	if err := s.Notify(context.Background(), Notification{Title: "t", Body: "move the goal"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitCount(t, a, 1)
	waitCount(t, b, 1)

	if got := a.sent[0].Body; got != "move the goal" {
		t.Fatalf("body: %q", got)
	}
	if h := s.History(); len(h) != 1 || h[0].Text != "move the goal" {
		t.Fatalf("history: %+v", h)
	}
}

func TestRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	f := &fakeSink{failures: 2}
	s := newTestService(t, Config{
		RetryMax:      3,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 5 * time.Millisecond,
	}, f)

	if err := s.Notify(context.Background(), Notification{Title: "t", Body: "b"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	waitCount(t, f, 1)
}

func TestDedupWindow(t *testing.T) {
	t.Parallel()
	f := &fakeSink{}
	s := newTestService(t, Config{DedupWindow: time.Minute}, f)

	n := Notification{Title: "t", Body: "same nudge"}
	for i := 0; i < 3; i++ {
		if err := s.Notify(context.Background(), n); err != nil {
			t.Fatalf("Notify #%d: %v", i, err)
		}
	}
	waitCount(t, f, 1)
	time.Sleep(50 * time.Millisecond)
	if got := f.count(); got != 1 {
		t.Fatalf("deduped sends: got %d, want 1", got)
	}

	// A different body is not suppressed.
	if err := s.Notify(context.Background(), Notification{Title: "t", Body: "other nudge"}); err != nil {
		t.Fatalf("Notify (other): %v", err)
	}
	waitCount(t, f, 2)
}

func TestQueueFull(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	f := &fakeSink{gate: gate}
	s := newTestService(t, Config{Workers: 1, QueueSize: 1}, f)

	ctx := context.Background()
	// First job occupies the worker, second fills the queue. Give the
	// worker a moment to pick up the first.
	if err := s.Notify(ctx, Notification{Title: "1", Body: "1"}); err != nil {
		t.Fatalf("Notify 1: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.Notify(ctx, Notification{Title: "2", Body: "2"}); err != nil {
		t.Fatalf("Notify 2: %v", err)
	}

	if err := s.Notify(ctx, Notification{Title: "3", Body: "3"}); err != ErrQueueFull {
		t.Fatalf("got %v, want ErrQueueFull", err)
	}
	close(gate)
	waitCount(t, f, 2)
}

func TestStopBlocksIntake(t *testing.T) {
	t.Parallel()
	f := &fakeSink{}
	cfg := Config{Enabled: true, RatePerSec: 1000}
	s := New(cfg, []Sink{f}, logx.Nop(), nil)
	s.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)

	if err := s.Notify(context.Background(), Notification{Title: "t"}); err != ErrStopped {
		t.Fatalf("got %v, want ErrStopped", err)
	}
}
