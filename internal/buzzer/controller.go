package buzzer

import (
	"fmt"
	"time"

	"github.com/oshokin/gatekeeper/internal/domain/gate"
)

// Actuator drives the solenoid.
type Actuator interface {
	Set(on bool) error
}

// Controller enforces the solenoid on-time and rest period.
type Controller struct {
	// actuator is the hardware being driven.
	actuator Actuator
	// onTime bounds how long the solenoid stays energized.
	onTime time.Duration
	// restTime is the minimum gap between two firings.
	restTime time.Duration
	// state is the current buzzer state.
	state gate.BuzzerState
}

// NewController creates a controller around the provided actuator.
func NewController(actuator Actuator, onTime, restTime time.Duration) *Controller {
	return &Controller{
		actuator: actuator,
		onTime:   onTime,
		restTime: restTime,
	}
}

// TryOpen energizes the solenoid unless it is active or rested too briefly.
// The state is committed before the actuator is called, so a HardwareFailure
// still starts the rest period.
func (c *Controller) TryOpen(now time.Time) (gate.ActuationResult, error) {
	if c.state.IsActive || c.resting(now) {
		return gate.AlreadyOpenRecently, nil
	}

	c.state.IsActive = true
	c.state.LastFired = now

	if err := c.actuator.Set(true); err != nil {
		return gate.HardwareFailure, fmt.Errorf("%w: energize solenoid: %w", gate.ErrHardwareFault, err)
	}

	return gate.Opened, nil
}

// TickOff de-energizes the solenoid once the on-time has passed. It is safe
// to call on every tick. On failure the buzzer stays active so the next tick
// tries again.
func (c *Controller) TickOff(now time.Time) error {
	if !c.state.IsActive || now.Sub(c.state.LastFired) <= c.onTime {
		return nil
	}

	if err := c.actuator.Set(false); err != nil {
		return fmt.Errorf("%w: de-energize solenoid: %w", gate.ErrHardwareFault, err)
	}

	c.state.IsActive = false

	return nil
}

// Release de-energizes the solenoid unconditionally.
func (c *Controller) Release() error {
	if err := c.actuator.Set(false); err != nil {
		return fmt.Errorf("%w: release solenoid: %w", gate.ErrHardwareFault, err)
	}

	c.state.IsActive = false

	return nil
}

// State returns a copy of the buzzer state.
func (c *Controller) State() gate.BuzzerState {
	return c.state
}

// resting reports whether the rest period after the last firing is running.
func (c *Controller) resting(now time.Time) bool {
	if c.state.LastFired.IsZero() {
		return false
	}

	return now.Sub(c.state.LastFired) < c.restTime
}
