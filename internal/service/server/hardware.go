package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/gatekeeper/internal/api/http/status"
	"github.com/oshokin/gatekeeper/internal/clock"
	"github.com/oshokin/gatekeeper/internal/config"
	"github.com/oshokin/gatekeeper/internal/hardware"
	"github.com/oshokin/gatekeeper/internal/hardware/gpio"
	"github.com/oshokin/gatekeeper/internal/hardware/parport"
	"github.com/oshokin/gatekeeper/internal/hardware/sim"
)

// devices is the opened ringer and buzzer.
type devices struct {
	// sensor reads the call button.
	sensor hardware.RingerSensor
	// actuator drives the solenoid.
	actuator hardware.BuzzerActuator
	// presser is set for bench drivers so the button can be pressed over HTTP.
	presser status.Presser
	// interrupts is set for the gpio driver and feeds the tracker from pin changes.
	interrupts *gpio.Ringer
	// close releases the devices.
	close func() error
}

// openDevices acquires the configured driver.
func openDevices(ctx context.Context, cfg *config.Hardware) (*devices, error) {
	switch cfg.Driver {
	case hardware.DriverParport:
		port, err := parport.Open(cfg.Device, cfg.RingerStatusBit)
		if err != nil {
			return nil, err
		}

		return &devices{
			sensor:   port,
			actuator: port,
			close:    port.Close,
		}, nil
	case hardware.DriverSim:
		ringer := sim.NewRinger(clock.Real{})

		return &devices{
			sensor:   ringer,
			actuator: sim.NewBuzzer(ctx),
			presser:  ringer,
			close:    func() error { return nil },
		}, nil
	case hardware.DriverGPIO:
		// Active-low lines match the optocoupler wiring of the call button
		// and the relay board.
		line := gpio.NewFakePin(true)
		ringer := gpio.NewRinger(line, true, clock.Real{})

		return &devices{
			sensor:     ringer,
			actuator:   gpio.NewBuzzer(gpio.NewFakePin(true), true),
			presser:    gpio.NewButton(line, true),
			interrupts: ringer,
			close:      func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", hardware.ErrUnknownDriver, cfg.Driver)
	}
}

// release de-energizes the solenoid and closes the devices.
func (d *devices) release() error {
	return errors.Join(d.actuator.Set(false), d.close())
}
