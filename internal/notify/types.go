package notify

import (
	"context"
	"time"
)

// Notification is one nudge on its way to the user.
type Notification struct {
	Title string
	Body  string
	At    time.Time
}

// Sink delivers a notification somewhere (log line, Telegram chat).
// Send must respect ctx and return an error if delivery failed so the
// pipeline can retry.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Config tunes the async pipeline. Zero values take sane defaults.
type Config struct {
	Enabled   bool
	Workers   int
	QueueSize int

	// RatePerSec bounds outbound sends across all sinks.
	RatePerSec int

	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration

	// DedupWindow suppresses identical nudges inside the window.
	// 0 disables dedup.
	DedupWindow time.Duration
}

// DeliveryEvent is the bus payload for notify.* events.
type DeliveryEvent struct {
	Sink  string    `json:"sink,omitempty"`
	Title string    `json:"title"`
	Key   string    `json:"key,omitempty"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// HistoryItem is a recently delivered nudge, kept for status endpoints.
type HistoryItem struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}
