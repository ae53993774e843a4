package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeReminderFired, Data: "x"})

	select {
	case e := <-ch:
		if e.Type != TypeReminderFired || e.Data != "x" {
			t.Fatalf("event: %+v", e)
		}
		if e.Time.IsZero() {
			t.Fatal("publish should stamp the time")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: TypeNotifySent})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				b.Publish(Event{Type: TypeExportServed})
			}
		}
	}()

	// Closing the channel concurrently with publishes must not panic.
	time.Sleep(10 * time.Millisecond)
	unsub()
	unsub() // idempotent
	time.Sleep(10 * time.Millisecond)
	close(stop)

	if _, ok := <-ch; ok {
		// Draining a buffered event is fine; the channel must end closed.
		if _, ok := <-ch; ok {
			t.Fatal("channel still open after unsubscribe")
		}
	}
}
