package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "goalcoach/pkg/logx"
)

// Store is the minimal persistence API used by the reminder and digest
// services.
type Store interface {
	// LoadReminder returns the persisted reminder state. A store that has
	// never been written to returns DefaultReminderState(), not an error.
	LoadReminder(ctx context.Context) (ReminderState, error)
	SaveReminder(ctx context.Context, st ReminderState) error

	AppendFire(ctx context.Context, rec FireRecord) error
	// RecentFires returns fires at or after since, oldest first.
	RecentFires(ctx context.Context, since time.Time) ([]FireRecord, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
