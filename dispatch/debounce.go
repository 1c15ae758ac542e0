package dispatch

import "time"

// Debouncer suppresses repeated triggers while a card stays on the reader.
//
// An empty UID means the reader saw no card, which re-arms everything. Readers
// that never report removal (keyboard wedges, serial readers) can set
// RearmAfter: the same UID triggers again once it has not been seen for that
// long. A zero RearmAfter re-arms on removal only.
type Debouncer struct {
	RearmAfter time.Duration

	now      func() time.Time
	last     string
	lastSeen time.Time
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(rearmAfter time.Duration) *Debouncer {
	return &Debouncer{RearmAfter: rearmAfter, now: time.Now}
}

// Observe records a reading and reports whether it should trigger.
func (d *Debouncer) Observe(uid string) bool {
	now := d.clock()

	if uid == "" {
		d.last = ""
		return false
	}

	if uid == d.last {
		quiet := now.Sub(d.lastSeen)
		d.lastSeen = now
		if d.RearmAfter <= 0 || quiet < d.RearmAfter {
			return false
		}
		return true
	}

	d.last = uid
	d.lastSeen = now
	return true
}

// Reset forgets the last card.
func (d *Debouncer) Reset() {
	d.last = ""
	d.lastSeen = time.Time{}
}

func (d *Debouncer) clock() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}
