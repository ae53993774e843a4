package config

// Config is the root of the goalcoach config file (YAML or JSON).
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	HTTP     HTTPConfig     `json:"http"`
	Reminder ReminderConfig `json:"reminder"`
	Notify   NotifyConfig   `json:"notify"`

	// Storage controls the optional persistence layer. When omitted the
	// reminder runs memory-only and does not survive restarts.
	Storage *StorageConfig `json:"storage,omitempty"`

	// Digest controls the optional daily recap job.
	Digest *DigestConfig `json:"digest,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// HTTPConfig controls the HTTP API server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8686").
//   - If you bind to a non-loopback address, set a token or explicitly
//     allow_insecure.
type HTTPConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"` // default: "127.0.0.1:8686"
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// BaseURL is used to build shareable setup links (default http://<addr>).
	BaseURL string `json:"base_url,omitempty"`

	// ExportRatePerSec bounds /api/ics requests (default 5).
	ExportRatePerSec int `json:"export_rate_per_sec,omitempty"`

	// Server timeouts (Go duration strings).
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// ReminderConfig carries daemon-side reminder defaults. The durable
// reminder state itself (goal/interval/running) lives in storage.
type ReminderConfig struct {
	// DefaultIntervalMinutes seeds a fresh install (default 25).
	DefaultIntervalMinutes int `json:"default_interval_minutes,omitempty"`

	// AutoResume restarts the reminder loop on boot when the persisted
	// state says it was running (default true; pointer so an explicit
	// false survives the zero-value check).
	AutoResume *bool `json:"auto_resume,omitempty"`
}

// NotifyConfig controls the async notification pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type NotifyConfig struct {
	Enabled       bool   `json:"enabled"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	DedupWindow   string `json:"dedup_window,omitempty"`

	Telegram *TelegramSinkConfig `json:"telegram,omitempty"`
}

// TelegramSinkConfig enables the Telegram notification sink.
type TelegramSinkConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
	// PollTimeout is a Go duration string (the bot still long-polls so
	// Telegram keeps the session alive).
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./goalcoach_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DigestConfig controls the daily recap notification.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// At is the local wall-clock time of the recap, "HH:MM" (default "21:00").
	At string `json:"at,omitempty"`
	// Timezone is an IANA TZ name; empty means the host's local zone.
	Timezone string `json:"timezone,omitempty"`
}
