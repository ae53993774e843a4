package httpapi

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"goalcoach/internal/ics"
	"goalcoach/internal/reminder"
	logx "goalcoach/pkg/logx"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	rem := reminder.New(reminder.Options{
		Log:    logx.Nop(),
		OnFire: func(context.Context, reminder.Fire) {},
	})
	t.Cleanup(func() { rem.Stop(context.Background()) })
	return Deps{Log: logx.Nop(), Reminder: rem, Exporter: ics.NewExporter()}
}

func waitAddr(t *testing.T, s *Service) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not bind")
	return ""
}

func TestServerServesAndStops(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, testDeps(t), logx.Nop())

	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop(ctx)

	addr := waitAddr(t, s)
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	s.Stop(stopCtx)
	if s.Addr() != "" {
		t.Fatal("address still bound after stop")
	}

	// Start/Stop again must work (idempotent lifecycle).
	s.Start(ctx)
	waitAddr(t, s)
	s.Stop(stopCtx)
}

func TestServerRefusesInsecureBind(t *testing.T) {
	t.Parallel()
	// Non-loopback bind without a token must never come up.
	s := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, testDeps(t), logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	time.Sleep(200 * time.Millisecond)
	if addr := s.Addr(); addr != "" {
		t.Fatalf("insecure server bound to %s", addr)
	}
}

func TestServerDisabledIsNoop(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: false}, testDeps(t), logx.Nop())
	s.Start(context.Background())
	if s.Addr() != "" {
		t.Fatal("disabled server bound a listener")
	}
	s.Stop(context.Background())
}
