// Package digest sends a once-a-day recap of how often the reminder
// actually fired.
package digest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"goalcoach/internal/notify"
	"goalcoach/internal/reminder"
	"goalcoach/internal/storage"
	logx "goalcoach/pkg/logx"
)

type Config struct {
	Enabled bool
	// At is the local wall-clock send time, "HH:MM".
	At       string
	Timezone string
}

const defaultAt = "21:00"

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	store    storage.Store
	notifier *notify.Service
	rem      *reminder.Service

	c *cron.Cron
}

func New(cfg Config, store storage.Store, notifier *notify.Service, rem *reminder.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, notifier: notifier, rem: rem, log: log}
}

// Start arms the cron entry. Idempotent; a disabled config or missing
// store makes Start a no-op.
func (s *Service) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	if !s.cfg.Enabled || s.store == nil || s.notifier == nil {
		return nil
	}

	spec, err := cronSpec(s.cfg.At)
	if err != nil {
		return err
	}
	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("digest timezone: %w", err)
		}
		loc = l
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("digest scheduled", logx.String("at", s.cfg.At), logx.String("tz", loc.String()))
	return nil
}

// Reconfigure tears down the current schedule and rearms it with cfg.
// Used on config reload; the service instance stays the same.
func (s *Service) Reconfigure(ctx context.Context, cfg Config) error {
	s.Stop(ctx)
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return s.Start(ctx)
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	since := time.Now().Add(-24 * time.Hour)
	fires, err := s.store.RecentFires(ctx, since)
	if err != nil {
		s.log.Warn("digest fire lookup failed", logx.Err(err))
		return
	}

	goal := s.rem.State().Goal
	body := recapMessage(goal, len(fires))
	err = s.notifier.Notify(ctx, notify.Notification{
		Title: "Daily goal recap",
		Body:  body,
	})
	if err != nil {
		s.log.Warn("digest notify failed", logx.Err(err))
	}
}

// cronSpec converts "HH:MM" into a five-field cron expression.
func cronSpec(at string) (string, error) {
	at = strings.TrimSpace(at)
	if at == "" {
		at = defaultAt
	}
	hh, mm, ok := strings.Cut(at, ":")
	if !ok {
		return "", fmt.Errorf("digest at: want HH:MM, got %q", at)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("digest at: bad hour in %q", at)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("digest at: bad minute in %q", at)
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}

func recapMessage(goal string, fires int) string {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		goal = "your goal"
	}
	switch fires {
	case 0:
		return fmt.Sprintf("No nudges for “%s” in the last day. Is the reminder running?", goal)
	case 1:
		return fmt.Sprintf("1 nudge for “%s” in the last day. Keep going.", goal)
	default:
		return fmt.Sprintf("%d nudges for “%s” in the last day. Keep going.", fires, goal)
	}
}
