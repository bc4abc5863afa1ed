//go:build !linux

package parport

import "github.com/oshokin/gatekeeper/internal/hardware"

// Port is unavailable outside Linux.
type Port struct{}

// Open always fails outside Linux.
func Open(string, byte) (*Port, error) {
	return nil, hardware.ErrUnsupported
}

// IsAsserted always fails outside Linux.
func (*Port) IsAsserted() (bool, error) {
	return false, hardware.ErrUnsupported
}

// Set always fails outside Linux.
func (*Port) Set(bool) error {
	return hardware.ErrUnsupported
}

// Close is a no-op outside Linux.
func (*Port) Close() error {
	return nil
}
