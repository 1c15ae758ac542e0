package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestDebouncerRemovalRearms(t *testing.T) {
	d := NewDebouncer(0)

	assert.True(t, d.Observe("AA"))
	assert.False(t, d.Observe("AA"))
	assert.False(t, d.Observe(""))
	assert.True(t, d.Observe("AA"))
}

func TestDebouncerHeldCardNeverRearmsWithoutQuietPeriod(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	d := NewDebouncer(3 * time.Second)
	d.now = clock.now

	assert.True(t, d.Observe("AA"))
	// Polled every half second while held: never quiet for 3s.
	for i := 0; i < 20; i++ {
		clock.advance(500 * time.Millisecond)
		assert.False(t, d.Observe("AA"))
	}
}

func TestDebouncerQuietPeriodRearms(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	d := NewDebouncer(3 * time.Second)
	d.now = clock.now

	assert.True(t, d.Observe("AA"))
	clock.advance(2 * time.Second)
	assert.False(t, d.Observe("AA"))
	clock.advance(3 * time.Second)
	assert.True(t, d.Observe("AA"))
}

func TestDebouncerDifferentCard(t *testing.T) {
	d := NewDebouncer(0)
	assert.True(t, d.Observe("AA"))
	assert.True(t, d.Observe("BB"))
	assert.True(t, d.Observe("AA"))
}

func TestDebouncerReset(t *testing.T) {
	d := NewDebouncer(0)
	assert.True(t, d.Observe("AA"))
	d.Reset()
	assert.True(t, d.Observe("AA"))
}

func TestDebouncerZeroValue(t *testing.T) {
	var d Debouncer
	assert.True(t, d.Observe("AA"))
	assert.False(t, d.Observe("AA"))
}
