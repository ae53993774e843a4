// Package app assembles the goalcoach daemon: durable reminder loop,
// calendar export API, async notification pipeline, and the daily
// recap, all reconfigurable from a watched config file.
package app

import (
	"context"
	"fmt"
	"time"

	"goalcoach/internal/coach"
	"goalcoach/internal/config"
	"goalcoach/internal/digest"
	"goalcoach/internal/eventbus"
	"goalcoach/internal/httpapi"
	"goalcoach/internal/ics"
	"goalcoach/internal/notify"
	"goalcoach/internal/reminder"
	rtsup "goalcoach/internal/runtime/supervisor"
	"goalcoach/internal/storage"
	logx "goalcoach/pkg/logx"
)

type App struct {
	log    logx.Logger
	logSvc *logx.Service

	cfgMgr *config.Manager
	bus    eventbus.Bus
	events *eventbus.Recorder
	store  storage.Store

	coach    *coach.Generator
	notifier *notify.Service
	reminder *reminder.Service
	api      *httpapi.Service
	digest   *digest.Service

	sup *rtsup.Supervisor
}

// New builds the whole object graph from an already loaded config.
func New(cfgMgr *config.Manager) (*App, error) {
	cfg := cfgMgr.Get()
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	logSvc, log := logx.New(mapLogging(cfg.Logging))
	cfgMgr.SetLogger(log.With(logx.String("comp", "config")))
	cfgMgr.SetValidator(func(_ context.Context, c *config.Config) error {
		if _, err := mapHTTP(c.HTTP); err != nil {
			return err
		}
		if _, err := mapNotify(c.Notify); err != nil {
			return err
		}
		if _, _, err := mapTelegram(c.Notify.Telegram); err != nil {
			return err
		}
		if _, err := mapStorage(c.Storage); err != nil {
			return err
		}
		return nil
	})

	bus := eventbus.New()
	events := eventbus.NewRecorder(64)

	storeCfg, err := mapStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	notifyCfg, err := mapNotify(cfg.Notify)
	if err != nil {
		return nil, err
	}
	sinks := []notify.Sink{notify.NewLogSink(log.With(logx.String("comp", "notify")))}
	if tgCfg, ok, err := mapTelegram(cfg.Notify.Telegram); err != nil {
		return nil, err
	} else if ok {
		tg, err := notify.NewTelegramSink(tgCfg)
		if err != nil {
			// A bad Telegram setup degrades to log-only delivery.
			log.Warn("telegram sink unavailable", logx.Err(err))
		} else {
			sinks = append(sinks, tg)
		}
	}
	notifier := notify.New(notifyCfg, sinks, log.With(logx.String("comp", "notify")), bus)

	gen := coach.NewGenerator()
	remOpts := mapReminder(cfg.Reminder)
	remOpts.Log = log.With(logx.String("comp", "reminder"))
	remOpts.Bus = bus
	remOpts.Store = store
	remOpts.OnFire = func(ctx context.Context, f reminder.Fire) {
		err := notifier.Notify(ctx, notify.Notification{
			Title: coach.Title,
			Body:  gen.Message(f.Goal),
			At:    f.At,
		})
		if err != nil && err != notify.ErrDisabled {
			log.Debug("nudge enqueue failed", logx.Err(err))
		}
	}
	rem := reminder.New(remOpts)

	httpCfg, err := mapHTTP(cfg.HTTP)
	if err != nil {
		return nil, err
	}
	api := httpapi.New(httpCfg, httpapi.Deps{
		Log:      log.With(logx.String("comp", "httpapi")),
		Bus:      bus,
		Reminder: rem,
		Exporter: ics.NewExporter(),
		Notify:   notifier,
		Events:   events,
	}, log.With(logx.String("comp", "httpapi")))

	dig := digest.New(mapDigest(cfg.Digest), store, notifier, rem,
		log.With(logx.String("comp", "digest")))

	return &App{
		log:      log,
		logSvc:   logSvc,
		cfgMgr:   cfgMgr,
		bus:      bus,
		events:   events,
		store:    store,
		coach:    gen,
		notifier: notifier,
		reminder: rem,
		api:      api,
		digest:   dig,
	}, nil
}

// Logger exposes the root logger for main.
func (a *App) Logger() logx.Logger { return a.log }

// Run starts all services and blocks until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfgMgr.Get()

	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log.With(logx.String("comp", "app"))))

	a.notifier.Start(ctx)

	if err := a.reminder.Resume(ctx, autoResume(cfg.Reminder)); err != nil {
		a.log.Warn("reminder resume failed", logx.Err(err))
	}

	a.api.Start(ctx)
	if err := a.digest.Start(ctx); err != nil {
		a.log.Warn("digest start failed", logx.Err(err))
	}

	// Every published event lands in the recorder for /api/state and,
	// at debug level, in the log.
	busEvents, unsubBus := a.bus.Subscribe(64)
	defer unsubBus()
	a.sup.Go0("eventbus.log", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-busEvents:
				if !ok {
					return
				}
				a.events.Record(e)
				a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
			}
		}
	})

	// Config hot-reload: the watcher parses and validates; we fan the
	// committed config out to the services.
	updates := a.cfgMgr.Subscribe(4)
	defer a.cfgMgr.Unsubscribe(updates)
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgMgr.Watch(c)
	})
	a.sup.Go0("config.fanout", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(c, next)
			}
		}
	})

	a.log.Info("goalcoach running")
	<-ctx.Done()
	return nil
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logSvc.Apply(mapLogging(cfg.Logging))

	if notifyCfg, err := mapNotify(cfg.Notify); err != nil {
		a.log.Warn("notify config rejected", logx.Err(err))
	} else {
		a.notifier.Apply(notifyCfg)
	}

	if httpCfg, err := mapHTTP(cfg.HTTP); err != nil {
		a.log.Warn("http config rejected", logx.Err(err))
	} else {
		a.api.Reconfigure(ctx, httpCfg)
	}

	if err := a.digest.Reconfigure(ctx, mapDigest(cfg.Digest)); err != nil {
		a.log.Warn("digest restart failed", logx.Err(err))
	}

	a.log.Info("config applied")
}

// Stop tears the daemon down in bounded steps: stop intake surfaces
// first, then the pipelines, then storage.
func (a *App) Stop(ctx context.Context) {
	step := func(d time.Duration, fn func(context.Context)) {
		c, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		fn(c)
	}

	step(5*time.Second, a.api.Stop)
	step(2*time.Second, a.digest.Stop)
	step(2*time.Second, a.reminder.Stop)
	step(5*time.Second, a.notifier.Stop)

	if a.sup != nil {
		a.sup.Cancel()
		step(3*time.Second, func(c context.Context) { _ = a.sup.Wait(c) })
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}

	a.log.Info("goalcoach stopped")
	_ = a.logSvc.Close()
}
