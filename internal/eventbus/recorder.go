package eventbus

import "sync"

// Recorder retains the most recent events so status endpoints can show
// what the daemon has been doing.
type Recorder struct {
	mu  sync.Mutex
	buf []Event
	max int
}

func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = 64
	}
	return &Recorder{max: max}
}

func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	r.buf = append(r.buf, e)
	if len(r.buf) > r.max {
		r.buf = r.buf[len(r.buf)-r.max:]
	}
	r.mu.Unlock()
}

// Recent returns the retained events, oldest first.
func (r *Recorder) Recent() []Event {
	r.mu.Lock()
	out := append([]Event(nil), r.buf...)
	r.mu.Unlock()
	return out
}
