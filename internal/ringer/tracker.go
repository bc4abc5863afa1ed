package ringer

import (
	"sync"
	"time"

	"github.com/oshokin/gatekeeper/internal/domain/gate"
)

// Change reports the edges of the ringing flag since the previous Sample.
type Change struct {
	// Rose is set when the flag went from false to true.
	Rose bool
	// Fell is set when the flag went from true to false.
	Fell bool
}

// Tracker holds the debounced ringer state.
type Tracker struct {
	// resetTime is how long the flag survives after the last assertion.
	resetTime time.Duration
	// state is the current ringer state.
	state gate.RingerState
	// rose and fell latch edges until the next Sample consumes them.
	rose, fell bool
	// mu is the critical section shared by the poll loop and interrupt callbacks.
	mu sync.Mutex
}

// NewTracker creates a tracker that clears the ringing flag resetTime after
// the last observed assertion.
func NewTracker(resetTime time.Duration) *Tracker {
	return &Tracker{
		resetTime: resetTime,
	}
}

// Sample applies a polled reading and returns the edges observed since the
// previous Sample, including those caused by Interrupt.
func (t *Tracker) Sample(asserted bool, now time.Time) Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.apply(asserted, now)

	change := Change{
		Rose: t.rose,
		Fell: t.fell,
	}

	t.rose, t.fell = false, false

	return change
}

// Interrupt applies a reading delivered by a pin-change callback. The edge
// is latched and reported by the next Sample.
func (t *Tracker) Interrupt(asserted bool, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.apply(asserted, now)
}

// State returns a copy of the current ringer state.
func (t *Tracker) State() gate.RingerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// IsRinging reports the debounced ringing flag.
func (t *Tracker) IsRinging() bool {
	return t.State().IsRinging
}

// apply is the transition rule. Callers hold mu.
func (t *Tracker) apply(asserted bool, now time.Time) {
	switch {
	case asserted:
		// Every fresh assertion re-arms the decay timer.
		if !t.state.IsRinging {
			t.rose = true
		}

		t.state.IsRinging = true
		t.state.LastDetected = now
	case t.state.IsRinging && now.Sub(t.state.LastDetected) >= t.resetTime:
		t.state.IsRinging = false
		t.fell = true
	}
}
