package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshot + jsonl journal)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and the reminder runs
// memory-only.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ReminderState is the durable reminder snapshot.
// Keep it compact and schema-stable.
type ReminderState struct {
	Goal            string `json:"goal"`
	IntervalMinutes int    `json:"intervalMinutes"`
	Running         bool   `json:"running"`
}

// DefaultReminderState is what a fresh install (or a corrupt snapshot)
// resolves to.
func DefaultReminderState() ReminderState {
	return ReminderState{Goal: "", IntervalMinutes: 25, Running: false}
}

// FireRecord records one reminder fire, for the daily recap.
type FireRecord struct {
	At       time.Time `json:"at"`
	Goal     string    `json:"goal"`
	Interval int       `json:"interval"`
}
