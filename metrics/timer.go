package metrics

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer measures the duration of a single attempt. Create one per attempt;
// a Timer is owned by the call that created it and is not shared.
type Timer struct {
	client Client
	clock  clock.Clock
	start  time.Time
	name   string
	tags   Tags
}

func NewTimer(client Client, name string, tags Tags) *Timer {
	return NewTimerWithClock(client, clock.New(), name, tags)
}

func NewTimerWithClock(client Client, c clock.Clock, name string, tags Tags) *Timer {
	return &Timer{
		client: client,
		clock:  c,
		start:  c.Now(),
		name:   name,
		tags:   tags,
	}
}

// Stop the timer and send the elapsed time as milliseconds as a distribution
// metric. Elapsed time is monotonic-clock derived and rounded to the nearest
// whole millisecond.
func (t *Timer) Stop() {
	elapsed := t.clock.Since(t.start)
	t.client.Distribution(t.name, t.tags, Milliseconds(elapsed))
}

// Milliseconds converts a duration to whole milliseconds, rounded to nearest.
func Milliseconds(d time.Duration) float64 {
	return math.Round(float64(d) / float64(time.Millisecond))
}
