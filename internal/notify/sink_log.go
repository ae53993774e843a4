package notify

import (
	"context"

	logx "goalcoach/pkg/logx"
)

// LogSink writes nudges to the structured log. It is always available
// and never fails, which makes it the baseline delivery channel.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, n Notification) error {
	s.log.Info("nudge", logx.String("title", n.Title), logx.String("body", n.Body))
	return nil
}
