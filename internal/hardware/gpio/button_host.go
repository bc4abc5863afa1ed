//go:build !tinygo

package gpio

import (
	"sync"
	"time"
)

// Button presses a FakePin the way a person presses the call button, so the
// interrupt path can be exercised without a board.
type Button struct {
	// pin is the ringer line.
	pin *FakePin
	// activeLow marks a button that pulls the line to ground.
	activeLow bool
	// release lets go of the current press.
	release *time.Timer
	// mu serializes presses.
	mu sync.Mutex
}

// NewButton wraps pin and leaves the line released.
func NewButton(pin *FakePin, activeLow bool) *Button {
	pin.Set(activeLow)

	return &Button{
		pin:       pin,
		activeLow: activeLow,
	}
}

// Press holds the button for d. A non-positive d is a single pulse, shorter
// than any poll interval, which only the interrupt handler sees.
func (b *Button) Press(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.release != nil {
		b.release.Stop()
		b.release = nil
	}

	b.pin.Drive(!b.activeLow)

	if d <= 0 {
		b.pin.Drive(b.activeLow)

		return
	}

	b.release = time.AfterFunc(d, func() {
		b.pin.Drive(b.activeLow)
	})
}
