package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/oshokin/gatekeeper/internal/logger"
	"github.com/oshokin/gatekeeper/internal/protocol"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
)

// DefaultAddress is the gate on this host.
const DefaultAddress = "127.0.0.1:30012"

// pollReceive bounds each read of the background receiver so it notices cancellation.
const pollReceive = 500 * time.Millisecond

// ErrRejected is returned when the gate refuses a subscription.
var ErrRejected = errors.New("subscription rejected")

// Options configures the UDP commands.
type Options struct {
	// Address is the gate host:port.
	Address string
	// Timeout bounds the wait for each reply.
	Timeout time.Duration
	// Out receives the printed replies.
	Out io.Writer
}

func (o *Options) address() string {
	if o.Address == "" {
		return DefaultAddress
	}

	return o.Address
}

// Command sends one command and prints the reply.
func Command(ctx context.Context, opts *Options, command string) error {
	ctx = logger.WithName(ctx, "gatectl")

	client, err := udp.Dial(ctx, opts.address(), udp.WithTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Sending command", "address", opts.address(), "command", command)

	reply, err := client.Request(ctx, command)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(opts.Out, reply)

	return err
}

// Subscribe subscribes, renews at half the advertised lifetime and prints
// every ring notification until ctx is done. It unsubscribes on the way out.
func Subscribe(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "gatectl")

	client, err := udp.Dial(ctx, opts.address(), udp.WithTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	reply, err := client.Request(ctx, protocol.TokenSubscribe)
	if err != nil {
		return err
	}

	ttl, ok := ParseSubscribed(reply)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRejected, strings.TrimSpace(reply))
	}

	_, _ = fmt.Fprint(opts.Out, reply)

	logger.InfoKV(ctx, "Subscribed", "address", opts.address(), "ttl", ttl)

	renew := time.NewTicker(max(ttl/2, time.Second))
	defer renew.Stop()

	messages, errs := receiveLoop(ctx, client)

	for {
		select {
		case <-ctx.Done():
			// Best effort; the entry expires on its own otherwise.
			_ = client.Send(protocol.TokenUnsubscribe)

			return nil
		case <-renew.C:
			if err := client.Send(protocol.TokenSubscribe); err != nil {
				logger.WarnKV(ctx, "Renewal failed", "error", err)
			}
		case msg := <-messages:
			if msg == protocol.ReplyRinging {
				_, _ = fmt.Fprintf(opts.Out, "%s RING!\n", time.Now().Format(time.DateTime))

				continue
			}

			logger.DebugKV(ctx, "Gate replied", "reply", strings.TrimSpace(msg))
		case err := <-errs:
			return err
		}
	}
}

// ParseSubscribed extracts the lifetime from a subscription reply.
func ParseSubscribed(reply string) (time.Duration, bool) {
	var seconds int
	if _, err := fmt.Sscanf(reply, "Subscribed for %d seconds.", &seconds); err != nil || seconds <= 0 {
		return 0, false
	}

	return time.Duration(seconds) * time.Second, true
}

// receiveLoop reads datagrams in the background until ctx is done.
func receiveLoop(ctx context.Context, client *udp.Client) (<-chan string, <-chan error) {
	var (
		messages = make(chan string)
		errs     = make(chan error, 1)
	)

	go func() {
		for ctx.Err() == nil {
			msg, err := client.Receive(ctx, pollReceive)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}

				if ctx.Err() == nil {
					errs <- err
				}

				return
			}

			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return messages, errs
}
