package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/gatekeeper/internal/clock"
	"github.com/oshokin/gatekeeper/internal/logger"
)

// DefaultPress is how long a simulated button press lasts.
const DefaultPress = 500 * time.Millisecond

// Ringer is a simulated call button.
type Ringer struct {
	// clock tells when a press ends.
	clock clock.Clock
	// pressedUntil is the end of the current press.
	pressedUntil time.Time
	// mu protects pressedUntil.
	mu sync.Mutex
}

// NewRinger creates a released simulated button.
func NewRinger(clk clock.Clock) *Ringer {
	return &Ringer{
		clock: clk,
	}
}

// Press holds the button down for d.
func (r *Ringer) Press(d time.Duration) {
	if d <= 0 {
		d = DefaultPress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pressedUntil = r.clock.Now().Add(d)
}

// IsAsserted reports whether a press is in progress.
func (r *Ringer) IsAsserted() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.clock.Now().Before(r.pressedUntil), nil
}

// Buzzer is a simulated solenoid.
type Buzzer struct {
	// ctx carries the logger.
	ctx context.Context //nolint:containedctx // Only used for logging from Set.
	// on is the current solenoid state.
	on atomic.Bool
	// activations counts off-to-on transitions.
	activations atomic.Uint64
}

// NewBuzzer creates a released simulated solenoid that logs through ctx.
func NewBuzzer(ctx context.Context) *Buzzer {
	return &Buzzer{
		ctx: logger.WithName(ctx, "sim-buzzer"),
	}
}

// Set records the new solenoid state.
func (b *Buzzer) Set(on bool) error {
	if was := b.on.Swap(on); was == on {
		return nil
	}

	if on {
		b.activations.Add(1)
		logger.Info(b.ctx, "Solenoid energized")
	} else {
		logger.Info(b.ctx, "Solenoid released")
	}

	return nil
}

// IsOn reports the solenoid state.
func (b *Buzzer) IsOn() bool {
	return b.on.Load()
}

// Activations returns how many times the solenoid was energized.
func (b *Buzzer) Activations() uint64 {
	return b.activations.Load()
}
