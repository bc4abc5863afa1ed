//go:build linux

package parport

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/oshokin/gatekeeper/internal/domain/gate"
)

// Port is a claimed parallel port. It serves as both the ringer sensor and
// the buzzer actuator.
type Port struct {
	// fd is the open ppdev descriptor.
	fd int
	// statusBit selects the ringer line in the status register.
	statusBit byte
	// mu serializes ioctl sequences.
	mu sync.Mutex
}

// Open opens and claims the parallel port device.
func Open(device string, statusBit byte) (*Port, error) {
	if device == "" {
		device = DefaultDevice
	}

	if statusBit == 0 {
		statusBit = DefaultStatusBit
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	if err = ioctl(fd, ppClaim, nil); err != nil {
		_ = unix.Close(fd)

		return nil, fmt.Errorf("claim %s: %w", device, err)
	}

	return &Port{
		fd:        fd,
		statusBit: statusBit,
	}, nil
}

// IsAsserted reads the status register and reports whether the ringer is pressed.
func (p *Port) IsAsserted() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var status byte

	if err := ioctl(p.fd, ppRStatus, unsafe.Pointer(&status)); err != nil {
		return false, fmt.Errorf("%w: read status register: %w", gate.ErrHardwareFault, err)
	}

	return ringerAsserted(status, p.statusBit), nil
}

// Set writes the solenoid state to the data register.
func (p *Port) Set(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.frobControl(); err != nil {
		return err
	}

	data := dataByte(on)

	if err := ioctl(p.fd, ppWData, unsafe.Pointer(&data)); err != nil {
		return fmt.Errorf("%w: write data register: %w", gate.ErrHardwareFault, err)
	}

	return p.frobControl()
}

// Close releases and closes the port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = ioctl(p.fd, ppRelease, nil)

	return unix.Close(p.fd)
}

func (p *Port) frobControl() error {
	f := frob{
		mask: controlFrobMask,
		val:  controlFrobValue,
	}

	if err := ioctl(p.fd, ppFControl, unsafe.Pointer(&f)); err != nil {
		return fmt.Errorf("%w: frob control register: %w", gate.ErrHardwareFault, err)
	}

	return nil
}

// ioctl issues a ppdev request. arg points at the request payload, or is nil.
func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}

	return nil
}
