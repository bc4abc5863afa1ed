package gate

import "errors"

var (
	// ErrHardwareFault marks sensor and actuator I/O failures. Never fatal.
	ErrHardwareFault = errors.New("hardware fault")
	// ErrTransportFault marks datagram send and receive failures. Never fatal.
	ErrTransportFault = errors.New("transport fault")
	// ErrProtocolFault marks malformed or unrecognized datagrams. Never fatal.
	ErrProtocolFault = errors.New("protocol fault")
	// ErrStartupFault marks failures that prevent the poll loop from starting.
	ErrStartupFault = errors.New("startup fault")
)
