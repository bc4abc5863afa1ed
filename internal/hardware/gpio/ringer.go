package gpio

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/oshokin/gatekeeper/internal/clock"
)

// defaultQueue is the interrupt queue depth.
const defaultQueue = 16

// errAlreadyStarted is returned by a second Start.
var errAlreadyStarted = errors.New("ringer interrupts already started")

// Sink receives interrupt-driven readings. ringer.Tracker implements it.
type Sink interface {
	Interrupt(asserted bool, now time.Time)
}

// Ringer reads the call button from an interrupt-capable pin.
type Ringer struct {
	// pin is the input line.
	pin IRQPin
	// activeLow marks a button that pulls the line to ground.
	activeLow bool
	// clock timestamps interrupts.
	clock clock.Clock
	// events carries levels from the handler to the pump.
	events chan bool
	// drops counts levels lost to a full queue.
	drops atomic.Uint32
	// started guards against a second Start.
	started atomic.Bool
}

// NewRinger wraps pin. Set activeLow for optocoupler wiring where a press
// pulls the line low.
func NewRinger(pin IRQPin, activeLow bool, clk clock.Clock) *Ringer {
	return &Ringer{
		pin:       pin,
		activeLow: activeLow,
		clock:     clk,
		events:    make(chan bool, defaultQueue),
	}
}

// IsAsserted samples the pin. It keeps the polled path working alongside interrupts.
func (r *Ringer) IsAsserted() (bool, error) {
	return r.logical(r.pin.Get()), nil
}

// Start arms the pin interrupt and feeds sink until ctx is done.
func (r *Ringer) Start(ctx context.Context, sink Sink) error {
	if !r.started.CompareAndSwap(false, true) {
		return errAlreadyStarted
	}

	handler := func() {
		level := r.pin.Get()

		select {
		case r.events <- level:
		default:
			r.drops.Add(1)
		}
	}

	if err := r.pin.SetIRQ(EdgeBoth, handler); err != nil {
		r.started.Store(false)

		return err
	}

	go func() {
		defer func() {
			_ = r.pin.ClearIRQ()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case level := <-r.events:
				sink.Interrupt(r.logical(level), r.clock.Now())
			}
		}
	}()

	return nil
}

// Drops returns how many interrupts were lost to a full queue.
func (r *Ringer) Drops() uint32 {
	return r.drops.Load()
}

func (r *Ringer) logical(level bool) bool {
	if r.activeLow {
		return !level
	}

	return level
}
