package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"goalcoach/internal/eventbus"
	"goalcoach/internal/storage"
	logx "goalcoach/pkg/logx"
)

// ErrEmptyGoal is returned by Start when no goal text is set.
// It is the only user-actionable error; everything else degrades.
var ErrEmptyGoal = errors.New("goal must not be empty")

// ErrNoFireCallback is returned by Start when the service was built
// without a fire callback. Start fails closed: running stays false.
var ErrNoFireCallback = errors.New("no fire callback configured")

const (
	// DefaultIntervalMinutes seeds a fresh install.
	DefaultIntervalMinutes = 25
	minIntervalMinutes     = 1
)

// Fire is the payload handed to the OnFire callback on each tick.
type Fire struct {
	At              time.Time
	Goal            string
	IntervalMinutes int
}

// OnFire surfaces one reminder nudge. Delivery is fire-and-forget; the
// scheduler does not know or care whether it succeeded.
type OnFire func(ctx context.Context, f Fire)

// State is a read-only snapshot of the scheduler.
type State struct {
	Goal            string    `json:"goal"`
	IntervalMinutes int       `json:"intervalMinutes"`
	Running         bool      `json:"running"`
	NextFireAt      time.Time `json:"nextFireAt,omitzero"`
}

type Options struct {
	Log    logx.Logger
	Bus    eventbus.Bus
	Store  storage.Store // nil means memory-only
	OnFire OnFire
	// DefaultIntervalMinutes seeds the cadence and is the fallback when
	// Configure gets a non-positive interval. 0 means 25.
	DefaultIntervalMinutes int
}

// Service owns the reminder lifecycle: at most one ticking loop at a
// time, durable goal/interval/running via the injected store.
//
// Interval changes made while running apply prospectively: the armed
// loop keeps its period until the next Start.
type Service struct {
	log    logx.Logger
	bus    eventbus.Bus
	store  storage.Store
	onFire OnFire

	defaultMinutes int

	mu              sync.Mutex
	goal            string
	intervalMinutes int
	running         bool
	armedMinutes    int
	nextFireAt      time.Time
	stop            chan struct{}
	stopDone        chan struct{}

	// unit is the length of one "minute". Tests shrink it.
	unit time.Duration
}

func New(opts Options) *Service {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	def := opts.DefaultIntervalMinutes
	if def < minIntervalMinutes {
		def = DefaultIntervalMinutes
	}
	return &Service{
		log:             log,
		bus:             opts.Bus,
		store:           opts.Store,
		onFire:          opts.OnFire,
		defaultMinutes:  def,
		intervalMinutes: def,
		unit:            time.Minute,
	}
}

// Configure sets the goal and cadence, persists them, and leaves the
// run state alone. Intervals below 1 are floored; 0 or negative means
// "keep the default". A running loop is NOT rearmed.
func (s *Service) Configure(ctx context.Context, goal string, intervalMinutes int) {
	if intervalMinutes <= 0 {
		intervalMinutes = s.defaultMinutes
	}
	if intervalMinutes < minIntervalMinutes {
		intervalMinutes = minIntervalMinutes
	}

	s.mu.Lock()
	s.goal = goal
	s.intervalMinutes = intervalMinutes
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish(eventbus.TypeReminderConfigured, map[string]any{
		"goal": goal, "interval_minutes": intervalMinutes,
	})
}

// Start arms the ticking loop with the currently configured interval.
// If a loop is already active it is torn down first, so two Starts
// never leave two loops; the net effect is a rearm from "now".
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()

	if strings.TrimSpace(s.goal) == "" {
		s.mu.Unlock()
		return ErrEmptyGoal
	}
	if s.onFire == nil {
		s.mu.Unlock()
		return ErrNoFireCallback
	}

	// Tear down a prior loop before arming a new one.
	stopDone := s.stopRunningLocked()
	if stopDone != nil {
		s.mu.Unlock()
		<-stopDone
		s.mu.Lock()
	}

	interval := s.intervalMinutes
	period := time.Duration(interval) * s.unit

	s.running = true
	s.armedMinutes = interval
	s.nextFireAt = time.Now().Add(period)
	next := s.nextFireAt
	s.stop = make(chan struct{})
	s.stopDone = make(chan struct{})
	stopCh, doneCh := s.stop, s.stopDone
	s.persistLocked(ctx)
	s.mu.Unlock()

	go s.loop(period, stopCh, doneCh)

	s.log.Info("reminder started",
		logx.Int("interval_minutes", interval),
		logx.Time("next_fire_at", next))
	s.publish(eventbus.TypeReminderStarted, map[string]any{"interval_minutes": interval})
	return nil
}

// Stop disarms the loop. Stopping an already stopped service is a no-op.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopDone := s.stopRunningLocked()
	if stopDone == nil {
		s.mu.Unlock()
		return
	}
	s.persistLocked(ctx)
	s.mu.Unlock()

	<-stopDone
	s.log.Info("reminder stopped")
	s.publish(eventbus.TypeReminderStopped, nil)
}

// stopRunningLocked clears the run state and returns the old loop's
// done channel, or nil if nothing was running. Caller must not hold
// the lock while waiting on the channel.
func (s *Service) stopRunningLocked() chan struct{} {
	if !s.running {
		return nil
	}
	close(s.stop)
	done := s.stopDone
	s.running = false
	s.armedMinutes = 0
	s.nextFireAt = time.Time{}
	s.stop = nil
	s.stopDone = nil
	return done
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Goal:            s.goal,
		IntervalMinutes: s.intervalMinutes,
		Running:         s.running,
		NextFireAt:      s.nextFireAt,
	}
}

// Resume restores the durable state and, when it says the reminder was
// running, rearms the loop. Called once on boot.
func (s *Service) Resume(ctx context.Context, autoStart bool) error {
	if s.store == nil {
		return nil
	}
	st, err := s.store.LoadReminder(ctx)
	if err != nil {
		s.log.Warn("reminder state load failed; using defaults", logx.Err(err))
		st = storage.DefaultReminderState()
	}

	s.mu.Lock()
	s.goal = st.Goal
	if st.IntervalMinutes >= minIntervalMinutes {
		s.intervalMinutes = st.IntervalMinutes
	}
	s.mu.Unlock()

	if !st.Running || !autoStart {
		return nil
	}
	if err := s.Start(ctx); err != nil {
		// A persisted running flag with an empty goal should not brick
		// boot; stay stopped and let the user fix it.
		s.log.Warn("reminder auto-resume failed", logx.Err(err))
		s.mu.Lock()
		s.persistLocked(ctx)
		s.mu.Unlock()
	}
	return nil
}

func (s *Service) loop(period time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-t.C:
			s.tick(now, period, stopCh)
		}
	}
}

func (s *Service) tick(now time.Time, period time.Duration, stopCh chan struct{}) {
	s.mu.Lock()
	// A stale loop can race its own teardown; the stop channel is the
	// source of truth.
	select {
	case <-stopCh:
		s.mu.Unlock()
		return
	default:
	}
	goal := s.goal
	armed := s.armedMinutes
	s.nextFireAt = now.Add(period)
	s.mu.Unlock()

	f := Fire{At: now, Goal: goal, IntervalMinutes: armed}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.onFire(ctx, f)

	if s.store != nil {
		if err := s.store.AppendFire(ctx, storage.FireRecord{At: now, Goal: goal, Interval: armed}); err != nil {
			s.log.Debug("fire journal write failed", logx.Err(err))
		}
	}
	s.publish(eventbus.TypeReminderFired, map[string]any{
		"goal": goal, "interval_minutes": armed,
	})
}

// persistLocked writes the durable snapshot. Best-effort: a storage
// failure is logged and ignored, never propagated.
func (s *Service) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	st := storage.ReminderState{
		Goal:            s.goal,
		IntervalMinutes: s.intervalMinutes,
		Running:         s.running,
	}
	if err := s.store.SaveReminder(ctx, st); err != nil {
		s.log.Warn("reminder state save failed", logx.Err(err))
	}
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
