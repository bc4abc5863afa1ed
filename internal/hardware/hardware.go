package hardware

import "errors"

// RingerSensor reports whether the call button is currently asserted.
type RingerSensor interface {
	IsAsserted() (bool, error)
}

// BuzzerActuator energizes or releases the gate solenoid.
type BuzzerActuator interface {
	Set(on bool) error
}

// Driver names accepted in configuration.
const (
	DriverParport = "parport"
	DriverSim     = "sim"
	// DriverGPIO drives the tracker from pin interrupts. Host builds back it
	// with in-memory pins pressed over the HTTP API.
	DriverGPIO = "gpio"
)

var (
	// ErrUnsupported is returned by drivers that cannot run on this platform.
	ErrUnsupported = errors.New("hardware driver unsupported on this platform")
	// ErrUnknownDriver is returned for a driver name that is not recognized.
	ErrUnknownDriver = errors.New("unknown hardware driver")
)

// ValidateDriver checks a configured driver name.
func ValidateDriver(name string) error {
	switch name {
	case DriverParport, DriverSim, DriverGPIO:
		return nil
	default:
		return ErrUnknownDriver
	}
}
