//go:build tinygo

package gpio

import "machine"

// MachinePin adapts a TinyGo machine.Pin.
type MachinePin struct {
	pin machine.Pin
}

// NewInputPin configures pin as a pulled-up input, matching a button to ground.
func NewInputPin(pin machine.Pin) *MachinePin {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	return &MachinePin{pin: pin}
}

// NewOutputPin configures pin as a push-pull output.
func NewOutputPin(pin machine.Pin) *MachinePin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &MachinePin{pin: pin}
}

// Get returns the line level.
func (p *MachinePin) Get() bool {
	return p.pin.Get()
}

// Set drives the line level.
func (p *MachinePin) Set(high bool) {
	p.pin.Set(high)
}

// SetIRQ arms the pin-change interrupt.
func (p *MachinePin) SetIRQ(edge Edge, handler func()) error {
	var change machine.PinChange

	switch edge {
	case EdgeRising:
		change = machine.PinRising
	case EdgeFalling:
		change = machine.PinFalling
	case EdgeBoth:
		change = machine.PinToggle
	default:
		return p.ClearIRQ()
	}

	return p.pin.SetInterrupt(change, func(machine.Pin) { handler() })
}

// ClearIRQ disarms the interrupt.
func (p *MachinePin) ClearIRQ() error {
	return p.pin.SetInterrupt(0, nil)
}
