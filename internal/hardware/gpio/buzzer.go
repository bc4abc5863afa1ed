package gpio

// Buzzer drives the solenoid relay from a digital output.
type Buzzer struct {
	// pin is the relay line.
	pin Pin
	// activeLow inverts the output level.
	activeLow bool
}

// NewBuzzer wraps pin and releases the relay.
func NewBuzzer(pin Pin, activeLow bool) *Buzzer {
	b := &Buzzer{
		pin:       pin,
		activeLow: activeLow,
	}

	_ = b.Set(false)

	return b
}

// Set drives the relay. Digital writes cannot fail.
func (b *Buzzer) Set(on bool) error {
	b.pin.Set(on != b.activeLow)

	return nil
}
