package ics

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTitle replaces an empty or whitespace-only title.
	DefaultTitle = "Goal Focus Session"

	// DefaultIntervalMinutes and DefaultAlarmMinutes apply when a
	// parameter is absent or unparseable.
	DefaultIntervalMinutes = 25
	DefaultAlarmMinutes    = 5

	// Sub-5-minute cadences are not meaningful for a focus reminder and
	// are never emitted.
	minMinutes = 5

	maxTitleRunes = 120

	ContentType = "text/calendar; charset=utf-8"
	Filename    = "goal-reminder.ics"
)

const stampLayout = "20060102T150405Z"

// Document is an immutable calendar export plus download metadata.
type Document struct {
	Body        string
	ContentType string
	Filename    string
}

// Exporter encodes a reminder cadence as an RFC 5545 calendar: a daily
// event bounded to 365 occurrences carrying one display alarm whose
// REPEAT count approximates "every N minutes for a day".
type Exporter struct {
	// now and newUID exist so tests can pin the time-varying lines.
	now    func() time.Time
	newUID func() string
}

func NewExporter() *Exporter {
	return &Exporter{
		now:    time.Now,
		newUID: func() string { return uuid.NewString() + "@goalcoach" },
	}
}

// Export builds the calendar document. All inputs are clamped rather
// than rejected: empty title falls back to DefaultTitle, minutes below
// 5 are raised to 5, non-positive minutes take the defaults.
func (e *Exporter) Export(title string, intervalMinutes, alarmMinutes int) Document {
	title = normalizeTitle(title)
	intervalMinutes = clampMinutes(intervalMinutes, DefaultIntervalMinutes)
	alarmMinutes = clampMinutes(alarmMinutes, DefaultAlarmMinutes)

	now := e.now().UTC()
	stamp := now.Format(stampLayout)
	repeat := 1440 / intervalMinutes

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Goal Coach Agent//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + e.newUID(),
		"DTSTAMP:" + stamp,
		"DTSTART:" + stamp,
		"SUMMARY:" + escapeText(title),
		"RRULE:FREQ=DAILY;INTERVAL=1;COUNT=365",
		"BEGIN:VALARM",
		"ACTION:DISPLAY",
		"DESCRIPTION:" + escapeText("Nudge: "+title),
		"TRIGGER:-PT0M",
		"DURATION:PT" + strconv.Itoa(alarmMinutes) + "M",
		"REPEAT:" + strconv.Itoa(repeat),
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	return Document{
		Body:        strings.Join(lines, "\r\n") + "\r\n",
		ContentType: ContentType,
		Filename:    Filename,
	}
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle
	}
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	return title
}

func clampMinutes(v, def int) int {
	if v <= 0 {
		v = def
	}
	if v < minMinutes {
		v = minMinutes
	}
	return v
}
