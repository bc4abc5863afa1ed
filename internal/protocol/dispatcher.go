package protocol

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"time"

	"github.com/oshokin/gatekeeper/internal/domain/gate"
	"github.com/oshokin/gatekeeper/internal/registry"
)

// Ringer exposes the debounced ringing flag.
type Ringer interface {
	IsRinging() bool
}

// Buzzer opens the gate.
type Buzzer interface {
	TryOpen(now time.Time) (gate.ActuationResult, error)
}

// Registry stores subscribers.
type Registry interface {
	Subscribe(addr netip.AddrPort, now time.Time) (registry.Result, error)
	Remove(addr netip.AddrPort) bool
	TTL() time.Duration
}

// Options tunes the dispatcher.
type Options struct {
	// RejectUnknown answers unrecognized commands with "Huh?" instead of dropping them.
	RejectUnknown bool
}

// Reply is the outcome of dispatching one datagram.
type Reply struct {
	// Command is what was parsed.
	Command Command
	// Payload is the response datagram; nil means nothing is sent.
	Payload []byte
	// Outcome is a short machine-readable result for logs and the journal.
	Outcome string
	// Evicted is set when a subscribe displaced another subscriber.
	Evicted netip.AddrPort
	// Err carries the fault behind a failed command, if any.
	Err error
}

// Dispatcher interprets commands. It keeps no state of its own.
type Dispatcher struct {
	// ringer answers status queries.
	ringer Ringer
	// buzzer serves open requests.
	buzzer Buzzer
	// registry serves subscriptions.
	registry Registry
	// opts holds behavior switches.
	opts Options
}

// NewDispatcher wires the collaborators into a dispatcher.
func NewDispatcher(ringer Ringer, buzzer Buzzer, registry Registry, opts Options) *Dispatcher {
	return &Dispatcher{
		ringer:   ringer,
		buzzer:   buzzer,
		registry: registry,
		opts:     opts,
	}
}

// Dispatch runs the command carried by payload on behalf of from.
func (d *Dispatcher) Dispatch(payload []byte, from netip.AddrPort, now time.Time) Reply {
	cmd := Parse(payload)

	switch cmd.Kind {
	case KindStatus:
		return d.status(cmd)
	case KindOpen:
		return d.open(cmd, now)
	case KindSubscribe:
		return d.subscribe(cmd, from, now)
	case KindUnsubscribe:
		return d.unsubscribe(cmd, from)
	default:
		return d.unknown(cmd)
	}
}

func (d *Dispatcher) status(cmd Command) Reply {
	if d.ringer.IsRinging() {
		return Reply{Command: cmd, Payload: []byte(ReplyRinging), Outcome: "ringing"}
	}

	return Reply{Command: cmd, Payload: []byte(ReplyNothing), Outcome: "idle"}
}

func (d *Dispatcher) open(cmd Command, now time.Time) Reply {
	result, err := d.buzzer.TryOpen(now)

	reply := Reply{
		Command: cmd,
		Outcome: result.String(),
		Err:     err,
	}

	switch result {
	case gate.Opened:
		reply.Payload = []byte(ReplyAcknowledged)
	case gate.AlreadyOpenRecently:
		reply.Payload = []byte(ReplyAlreadyOpened)
	default:
		reply.Payload = []byte(ReplyInternalError)
	}

	return reply
}

func (d *Dispatcher) subscribe(cmd Command, from netip.AddrPort, now time.Time) Reply {
	result, err := d.registry.Subscribe(from, now)
	if err != nil {
		reply := Reply{
			Command: cmd,
			Outcome: "rejected",
			Err:     err,
		}

		if errors.Is(err, registry.ErrRegistryFull) {
			reply.Payload = []byte(ReplyTooMany)
		} else {
			reply.Payload = []byte(ReplyInternalError)
		}

		return reply
	}

	return Reply{
		Command: cmd,
		Payload: fmt.Appendf(nil, replySubscribedTmpl, advertisedSeconds(d.registry.TTL())),
		Outcome: result.Outcome.String(),
		Evicted: result.Evicted.Address,
	}
}

func (d *Dispatcher) unsubscribe(cmd Command, from netip.AddrPort) Reply {
	outcome := "not_subscribed"
	if d.registry.Remove(from) {
		outcome = "removed"
	}

	return Reply{Command: cmd, Payload: []byte(ReplyUnsubscribed), Outcome: outcome}
}

func (d *Dispatcher) unknown(cmd Command) Reply {
	reply := Reply{
		Command: cmd,
		Outcome: "unrecognized",
		Err:     fmt.Errorf("%w: unrecognized command %q", gate.ErrProtocolFault, cmd.Token),
	}

	if d.opts.RejectUnknown {
		reply.Payload = []byte(ReplyBadRequest)
	}

	return reply
}

// advertisedSeconds rounds ttl up so a sub-second remainder is never
// reported as a shorter window.
func advertisedSeconds(ttl time.Duration) int {
	return int(math.Ceil(ttl.Seconds()))
}
