package gate

import (
	"net/netip"
	"time"
)

// RingerState is the debounced view of the call button.
type RingerState struct {
	// LastDetected is when the sensor last reported an assertion.
	LastDetected time.Time
	// IsRinging reports whether the button was pressed recently enough.
	IsRinging bool
}

// BuzzerState is the view of the gate solenoid.
type BuzzerState struct {
	// LastFired is when the solenoid was last energized.
	LastFired time.Time
	// IsActive reports whether the solenoid is currently energized.
	IsActive bool
}

// Subscription is a client that receives ring notifications.
type Subscription struct {
	// Address is the UDP sender of the subscribe command and the identity key.
	Address netip.AddrPort
	// SubscribedAt is when the entry was created.
	SubscribedAt time.Time
	// RenewedAt is when the entry was last created or renewed.
	RenewedAt time.Time
}

// ActuationResult is the outcome of an attempt to open the gate.
type ActuationResult int

const (
	// Opened means the solenoid was energized.
	Opened ActuationResult = iota
	// AlreadyOpenRecently means the request was refused by the rest period.
	AlreadyOpenRecently
	// HardwareFailure means the actuator reported an error.
	HardwareFailure
)

// String returns the journal and log name of the result.
func (r ActuationResult) String() string {
	switch r {
	case Opened:
		return "opened"
	case AlreadyOpenRecently:
		return "already_open_recently"
	case HardwareFailure:
		return "hardware_failure"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of controller state taken after a poll tick.
type Snapshot struct {
	// TakenAt is the tick instant.
	TakenAt time.Time
	// Ringer is the ringer state.
	Ringer RingerState
	// Buzzer is the buzzer state.
	Buzzer BuzzerState
	// Subscribers are the current subscriptions.
	Subscribers []Subscription
	// Ticks counts completed poll ticks.
	Ticks uint64
	// Commands counts dispatched datagrams.
	Commands uint64
	// Notifications counts successful ring notifications.
	Notifications uint64
}

// Clone returns a copy that shares no slices with the original.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Subscribers = append([]Subscription(nil), s.Subscribers...)

	return &cloned
}
