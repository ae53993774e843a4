package eventbus

import "testing"

func TestRecorderKeepsRecentEvents(t *testing.T) {
	t.Parallel()
	r := NewRecorder(3)

	for _, typ := range []string{TypeReminderStarted, TypeReminderFired, TypeNotifySent, TypeExportServed} {
		r.Record(Event{Type: typ})
	}

	got := r.Recent()
	if len(got) != 3 {
		t.Fatalf("recent: got %d events, want 3", len(got))
	}
	// Oldest entry fell off the front.
	if got[0].Type != TypeReminderFired || got[2].Type != TypeExportServed {
		t.Fatalf("recent order: %+v", got)
	}
}

func TestRecorderRecentIsACopy(t *testing.T) {
	t.Parallel()
	r := NewRecorder(8)
	r.Record(Event{Type: TypeReminderStarted})

	got := r.Recent()
	got[0].Type = "mutated"
	if r.Recent()[0].Type != TypeReminderStarted {
		t.Fatal("Recent must return a copy")
	}
}
