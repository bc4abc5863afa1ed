package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultTimeout bounds how long the client waits for a reply.
const DefaultTimeout = 2 * time.Second

// errAddressRequired is returned when Dial gets an empty address.
var errAddressRequired = errors.New("address must be provided")

// Client talks to a gate daemon over a connected UDP socket. The local port
// stays fixed for the life of the client, which keeps subscriptions stable.
type Client struct {
	// conn is the connected socket.
	conn *net.UDPConn
	// timeout bounds each request.
	timeout time.Duration
	// buf is the receive buffer.
	buf []byte
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the reply timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Dial connects a UDP socket to the gate at address.
func Dial(ctx context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	var d net.Dialer

	conn, err := d.DialContext(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("dial gate: %w", err)
	}

	client := &Client{
		conn:    conn.(*net.UDPConn),
		timeout: DefaultTimeout,
		buf:     make([]byte, DefaultMaxDatagram),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Request sends a command and waits for one reply.
func (c *Client) Request(ctx context.Context, command string) (string, error) {
	if err := c.Send(command); err != nil {
		return "", err
	}

	return c.Receive(ctx, c.timeout)
}

// Send writes a command without waiting for a reply.
func (c *Client) Send(command string) error {
	if _, err := c.conn.Write([]byte(command)); err != nil {
		return fmt.Errorf("send %q: %w", command, err)
	}

	return nil
}

// Receive waits up to timeout for the next datagram from the gate.
func (c *Client) Receive(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("set read deadline: %w", err)
	}

	n, err := c.conn.Read(c.buf)
	if err != nil {
		return "", fmt.Errorf("receive reply: %w", err)
	}

	return string(c.buf[:n]), nil
}

// Close releases the socket.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}
