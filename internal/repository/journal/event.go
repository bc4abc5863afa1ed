package journal

import (
	"time"

	"github.com/rs/xid"
)

// Kind classifies an event.
type Kind uint8

const (
	// KindStarted is written once the poll loop is running.
	KindStarted Kind = iota + 1
	// KindStopped is written on shutdown.
	KindStopped
	// KindRingStarted marks a rising edge of the ringing flag.
	KindRingStarted
	// KindRingEnded marks a falling edge of the ringing flag.
	KindRingEnded
	// KindCommand records one dispatched datagram.
	KindCommand
	// KindNotified records a ring fan-out pass.
	KindNotified
	// KindExpired records a subscription removed by the TTL purge.
	KindExpired
	// KindFault records a hardware or transport fault.
	KindFault
)

// String returns the name printed by the journal dump.
func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "started"
	case KindStopped:
		return "stopped"
	case KindRingStarted:
		return "ring_started"
	case KindRingEnded:
		return "ring_ended"
	case KindCommand:
		return "command"
	case KindNotified:
		return "notified"
	case KindExpired:
		return "expired"
	case KindFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Event is one journal record.
type Event struct {
	// ID is a sortable unique identifier.
	ID string `cbor:"1,keyasint"`
	// Timestamp is when the event happened.
	Timestamp time.Time `cbor:"2,keyasint"`
	// Kind classifies the event.
	Kind Kind `cbor:"3,keyasint"`
	// Peer is the remote address involved, if any.
	Peer string `cbor:"4,keyasint,omitempty"`
	// Command is the command token for KindCommand.
	Command string `cbor:"5,keyasint,omitempty"`
	// Outcome is the short result of the command or fan-out.
	Outcome string `cbor:"6,keyasint,omitempty"`
	// Count is a counter attached to the event, such as notified subscribers.
	Count int `cbor:"7,keyasint,omitempty"`
	// Detail carries an error message or free-form note.
	Detail string `cbor:"8,keyasint,omitempty"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(kind Kind, at time.Time) Event {
	return Event{
		ID:        xid.New().String(),
		Timestamp: at,
		Kind:      kind,
	}
}
