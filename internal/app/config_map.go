package app

import (
	"strings"
	"time"

	"goalcoach/internal/config"
	"goalcoach/internal/digest"
	"goalcoach/internal/httpapi"
	"goalcoach/internal/notify"
	"goalcoach/internal/reminder"
	"goalcoach/internal/storage"
	logx "goalcoach/pkg/logx"
)

// The config file carries durations as strings; these helpers turn the
// raw sections into the typed configs the services take.

func mapLogging(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
	}
}

func mapStorage(c *config.StorageConfig) (storage.Config, error) {
	if c == nil {
		return storage.Config{}, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", c.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{Driver: c.Driver, Path: c.Path, BusyTimeout: busy}, nil
}

func mapHTTP(c config.HTTPConfig) (httpapi.Config, error) {
	read, err := config.ParseDurationField("http.read_timeout", c.ReadTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	write, err := config.ParseDurationField("http.write_timeout", c.WriteTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	idle, err := config.ParseDurationField("http.idle_timeout", c.IdleTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Enabled:          c.Enabled,
		Addr:             c.Addr,
		Token:            c.Token,
		AllowInsecure:    c.AllowInsecure,
		BaseURL:          c.BaseURL,
		ExportRatePerSec: c.ExportRatePerSec,
		ReadTimeout:      read,
		WriteTimeout:     write,
		IdleTimeout:      idle,
	}, nil
}

func mapNotify(c config.NotifyConfig) (notify.Config, error) {
	retryBase, err := config.ParseDurationOrDefault("notify.retry_base", c.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notify.Config{}, err
	}
	retryMax, err := config.ParseDurationOrDefault("notify.retry_max_delay", c.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return notify.Config{}, err
	}
	dedup, err := config.ParseDurationField("notify.dedup_window", c.DedupWindow)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		Enabled:       c.Enabled,
		Workers:       c.Workers,
		QueueSize:     c.QueueSize,
		RatePerSec:    c.RatePerSec,
		RetryMax:      c.RetryMax,
		RetryBase:     retryBase,
		RetryMaxDelay: retryMax,
		DedupWindow:   dedup,
	}, nil
}

func mapTelegram(c *config.TelegramSinkConfig) (notify.TelegramConfig, bool, error) {
	if c == nil || !c.Enabled {
		return notify.TelegramConfig{}, false, nil
	}
	poll, err := config.ParseDurationField("notify.telegram.poll_timeout", c.PollTimeout)
	if err != nil {
		return notify.TelegramConfig{}, false, err
	}
	return notify.TelegramConfig{
		Token:       strings.TrimSpace(c.Token),
		ChatID:      c.ChatID,
		PollTimeout: poll,
	}, true, nil
}

func mapDigest(c *config.DigestConfig) digest.Config {
	if c == nil {
		return digest.Config{}
	}
	return digest.Config{Enabled: c.Enabled, At: c.At, Timezone: c.Timezone}
}

// mapReminder seeds the scheduler options from the reminder section.
// The caller fills in the collaborators.
func mapReminder(c config.ReminderConfig) reminder.Options {
	return reminder.Options{DefaultIntervalMinutes: c.DefaultIntervalMinutes}
}

func autoResume(c config.ReminderConfig) bool {
	if c.AutoResume == nil {
		return true
	}
	return *c.AutoResume
}
