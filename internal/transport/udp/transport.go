package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/oshokin/gatekeeper/internal/domain/gate"
)

// DefaultMaxDatagram is the largest command the daemon reads.
const DefaultMaxDatagram = 255

var (
	// ErrNoDatagram is returned by Recv when WaitReadable did not report data.
	ErrNoDatagram = errors.New("no datagram pending")
	// ErrShortWrite is returned when the kernel accepted fewer bytes than sent.
	ErrShortWrite = errors.New("short datagram write")
	// errNotUDP is returned when the listener is not a UDP socket.
	errNotUDP = errors.New("listener is not a UDP socket")
)

// Datagram is one received packet.
type Datagram struct {
	// Payload holds the received bytes, truncated to the buffer size.
	Payload []byte
	// From is the sender, with IPv4-mapped IPv6 addresses unmapped.
	From netip.AddrPort
}

// Transport is a bound UDP socket.
type Transport struct {
	// conn is the listening socket.
	conn *net.UDPConn
	// buf is the receive buffer.
	buf []byte
	// pending holds the datagram read by WaitReadable.
	pending *Datagram
}

// Listen binds a UDP socket on address.
func Listen(ctx context.Context, address string, maxDatagram int) (*Transport, error) {
	if maxDatagram <= 0 {
		maxDatagram = DefaultMaxDatagram
	}

	lc := net.ListenConfig{}

	pc, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()

		return nil, errNotUDP
	}

	return &Transport{
		conn: conn,
		buf:  make([]byte, maxDatagram),
	}, nil
}

// WaitReadable waits up to timeout for a datagram. It returns false without
// an error when nothing arrived in time.
func (t *Transport) WaitReadable(ctx context.Context, timeout time.Duration) (bool, error) {
	if t.pending != nil {
		return true, nil
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return false, fmt.Errorf("%w: set read deadline: %w", gate.ErrTransportFault, err)
	}

	n, from, err := t.conn.ReadFromUDPAddrPort(t.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, nil
		}

		return false, fmt.Errorf("%w: read datagram: %w", gate.ErrTransportFault, err)
	}

	t.pending = &Datagram{
		Payload: append([]byte(nil), t.buf[:n]...),
		From:    netip.AddrPortFrom(from.Addr().Unmap(), from.Port()),
	}

	return true, nil
}

// Recv returns the datagram found by WaitReadable.
func (t *Transport) Recv() (Datagram, error) {
	if t.pending == nil {
		return Datagram{}, ErrNoDatagram
	}

	dg := *t.pending
	t.pending = nil

	return dg, nil
}

// Send writes one datagram to the destination.
func (t *Transport) Send(payload []byte, to netip.AddrPort) error {
	n, err := t.conn.WriteToUDPAddrPort(payload, to)
	if err != nil {
		return fmt.Errorf("%w: send to %s: %w", gate.ErrTransportFault, to, err)
	}

	if n != len(payload) {
		return fmt.Errorf("%w: send to %s: %w", gate.ErrTransportFault, to, ErrShortWrite)
	}

	return nil
}

// LocalAddr returns the bound address.
func (t *Transport) LocalAddr() netip.AddrPort {
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Close releases the socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}
