//go:build !tinygo

package gpio

import (
	"errors"
	"sync"
)

// errIRQBusy is returned when a handler is already installed.
var errIRQBusy = errors.New("pin interrupt already set")

// FakePin implements IRQPin in memory for host builds and tests.
type FakePin struct {
	// level is the current line level.
	level bool
	// edge is the armed interrupt edge.
	edge Edge
	// handler is the armed interrupt callback.
	handler func()
	// mu protects all fields.
	mu sync.Mutex
}

// NewFakePin creates a pin at the given level.
func NewFakePin(level bool) *FakePin {
	return &FakePin{
		level: level,
	}
}

// Get returns the line level.
func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.level
}

// Set drives the line level without raising an interrupt.
func (p *FakePin) Set(high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.level = high
}

// SetIRQ arms the interrupt.
func (p *FakePin) SetIRQ(edge Edge, handler func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handler != nil {
		return errIRQBusy
	}

	p.edge = edge
	p.handler = handler

	return nil
}

// ClearIRQ disarms the interrupt.
func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.edge = EdgeNone
	p.handler = nil

	return nil
}

// Drive changes the line level and fires the handler when the armed edge matches.
func (p *FakePin) Drive(high bool) {
	p.mu.Lock()

	was := p.level
	p.level = high

	fire := p.handler != nil && was != high &&
		(p.edge == EdgeBoth || (p.edge == EdgeRising && high) || (p.edge == EdgeFalling && !high))
	handler := p.handler

	p.mu.Unlock()

	if fire {
		handler()
	}
}
