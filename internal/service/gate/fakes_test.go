package gate

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/oshokin/gatekeeper/internal/repository/journal"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
)

var errSensorUnplugged = errors.New("sensor unplugged")

// fakeSensor returns a configurable reading.
type fakeSensor struct {
	// asserted is the reading returned by IsAsserted.
	asserted bool
	// err is returned by IsAsserted when set.
	err error
	// mu protects the fields.
	mu sync.Mutex
}

func (s *fakeSensor) set(asserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.asserted, s.err = asserted, err
}

// IsAsserted returns the configured reading.
func (s *fakeSensor) IsAsserted() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.asserted, s.err
}

// fakeActuator records solenoid switches.
type fakeActuator struct {
	// on is the current solenoid state.
	on bool
	// switches counts Set calls.
	switches int
	// mu protects the fields.
	mu sync.Mutex
}

// Set records the state.
func (a *fakeActuator) Set(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.on = on
	a.switches++

	return nil
}

func (a *fakeActuator) isOn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.on
}

// sent is one datagram written by the controller.
type sent struct {
	// payload is the datagram body.
	payload string
	// to is the destination.
	to netip.AddrPort
}

// fakeTransport queues inbound datagrams and records outbound ones.
type fakeTransport struct {
	// inbound is the receive queue.
	inbound []udp.Datagram
	// outbound lists sent datagrams in order.
	outbound []sent
	// sleep makes WaitReadable block for the timeout when nothing is queued.
	sleep bool
	// mu protects the fields.
	mu sync.Mutex
}

func (f *fakeTransport) push(payload string, from netip.AddrPort) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inbound = append(f.inbound, udp.Datagram{Payload: []byte(payload), From: from})
}

// WaitReadable reports whether a datagram is queued.
func (f *fakeTransport) WaitReadable(ctx context.Context, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	ready, sleep := len(f.inbound) > 0, f.sleep
	f.mu.Unlock()

	if ready || !sleep {
		return ready, nil
	}

	select {
	case <-ctx.Done():
	case <-time.After(timeout):
	}

	return false, nil
}

// Recv pops the oldest datagram.
func (f *fakeTransport) Recv() (udp.Datagram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.inbound) == 0 {
		return udp.Datagram{}, udp.ErrNoDatagram
	}

	dg := f.inbound[0]
	f.inbound = f.inbound[1:]

	return dg, nil
}

// Send records the datagram.
func (f *fakeTransport) Send(payload []byte, to netip.AddrPort) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outbound = append(f.outbound, sent{payload: string(payload), to: to})

	return nil
}

// drain returns and clears the sent datagrams.
func (f *fakeTransport) drain() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.outbound
	f.outbound = nil

	return out
}

func (f *fakeTransport) queued() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.inbound)
}

// memoryJournal keeps events in memory.
type memoryJournal struct {
	// events are the appended events.
	events []journal.Event
	// mu protects events.
	mu sync.Mutex
}

// Append stores the event.
func (m *memoryJournal) Append(_ context.Context, event journal.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)

	return nil
}

func (m *memoryJournal) kinds() []journal.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()

	kinds := make([]journal.Kind, 0, len(m.events))
	for _, e := range m.events {
		kinds = append(kinds, e.Kind)
	}

	return kinds
}
