package gate

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/oshokin/gatekeeper/internal/buzzer"
	"github.com/oshokin/gatekeeper/internal/clock"
	domain "github.com/oshokin/gatekeeper/internal/domain/gate"
	"github.com/oshokin/gatekeeper/internal/logger"
	"github.com/oshokin/gatekeeper/internal/protocol"
	"github.com/oshokin/gatekeeper/internal/registry"
	"github.com/oshokin/gatekeeper/internal/repository/journal"
	"github.com/oshokin/gatekeeper/internal/ringer"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
)

// Sensor reports whether the call button is asserted.
type Sensor interface {
	IsAsserted() (bool, error)
}

// Transport is the datagram socket the loop serves.
type Transport interface {
	WaitReadable(ctx context.Context, timeout time.Duration) (bool, error)
	Recv() (udp.Datagram, error)
	Send(payload []byte, to netip.AddrPort) error
}

// Config holds the timing and policy knobs of the loop.
type Config struct {
	// RingerReset is how long the ringing flag survives the last assertion.
	RingerReset time.Duration
	// BuzzerOn is how long the solenoid stays energized.
	BuzzerOn time.Duration
	// BuzzerRest is the minimum gap between two openings.
	BuzzerRest time.Duration
	// SubscriptionTTL is how long a subscription lives without renewal.
	SubscriptionTTL time.Duration
	// PollInterval is the sleep between ticks.
	PollInterval time.Duration
	// SelectTimeout bounds the wait for a datagram inside a tick.
	SelectTimeout time.Duration
	// MaxSubscribers caps the registry.
	MaxSubscribers int
	// Policy applies when the registry is full.
	Policy registry.Policy
	// RejectUnknown answers unknown commands with "Huh?".
	RejectUnknown bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the process clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

// WithJournal records loop events to repo.
func WithJournal(repo journal.Repository) Option {
	return func(c *Controller) {
		c.journal = repo
	}
}

// Controller is the poll loop.
type Controller struct {
	// sensor reads the call button.
	sensor Sensor
	// transport is the UDP socket.
	transport Transport
	// clock provides the tick instants.
	clock clock.Clock
	// journal records events.
	journal journal.Repository
	// tracker debounces the ringer.
	tracker *ringer.Tracker
	// buzzer rate-limits the solenoid.
	buzzer *buzzer.Controller
	// registry stores subscribers.
	registry *registry.Registry
	// dispatcher interprets datagrams.
	dispatcher *protocol.Dispatcher
	// pollInterval is the sleep between ticks.
	pollInterval time.Duration
	// selectTimeout bounds the datagram wait.
	selectTimeout time.Duration
	// sensorFailing is set while the sensor keeps returning errors.
	sensorFailing bool
	// ticks counts completed ticks.
	ticks uint64
	// commands counts dispatched datagrams.
	commands uint64
	// notifications counts delivered ring notifications.
	notifications uint64
	// snapshot is the state published after the last tick.
	snapshot atomic.Pointer[domain.Snapshot]
}

// New assembles a controller. The actuator is wrapped by the buzzer rate limiter.
func New(cfg Config, sensor Sensor, actuator buzzer.Actuator, transport Transport, opts ...Option) *Controller {
	c := &Controller{
		sensor:        sensor,
		transport:     transport,
		clock:         clock.Real{},
		journal:       journal.Discard{},
		tracker:       ringer.NewTracker(cfg.RingerReset),
		buzzer:        buzzer.NewController(actuator, cfg.BuzzerOn, cfg.BuzzerRest),
		pollInterval:  cfg.PollInterval,
		selectTimeout: cfg.SelectTimeout,
		registry: registry.New(registry.Config{
			TTL:            cfg.SubscriptionTTL,
			MaxSubscribers: cfg.MaxSubscribers,
			Policy:         cfg.Policy,
		}),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.dispatcher = protocol.NewDispatcher(c.tracker, c.buzzer, c.registry, protocol.Options{
		RejectUnknown: cfg.RejectUnknown,
	})

	c.publish(c.clock.Now())

	return c
}

// Tracker exposes the ringer tracker so interrupt-driven sensors can feed it.
func (c *Controller) Tracker() *ringer.Tracker {
	return c.tracker
}

// Snapshot returns a copy of the state published after the last tick. It is
// safe to call from any goroutine.
func (c *Controller) Snapshot() *domain.Snapshot {
	return c.snapshot.Load().Clone()
}

// Run ticks until ctx is done, then releases the solenoid.
func (c *Controller) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "gate-loop")

	c.record(ctx, journal.NewEvent(journal.KindStarted, c.clock.Now()))
	logger.InfoKV(ctx, "Poll loop started",
		"poll_interval", c.pollInterval,
		"select_timeout", c.selectTimeout,
		"subscription_ttl", c.registry.TTL())

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		c.Tick(ctx)

		timer.Reset(c.pollInterval)

		select {
		case <-ctx.Done():
			return c.shutdown(ctx)
		case <-timer.C:
		}
	}
}

// Tick runs one iteration of the loop.
func (c *Controller) Tick(ctx context.Context) {
	now := c.clock.Now()

	change := c.tracker.Sample(c.readSensor(ctx, now), now)

	if err := c.buzzer.TickOff(now); err != nil {
		c.fault(ctx, now, err)
	}

	for _, expired := range c.registry.PurgeExpired(now) {
		logger.DebugKV(ctx, "Subscription expired", "peer", expired.Address)

		event := journal.NewEvent(journal.KindExpired, now)
		event.Peer = expired.Address.String()
		c.record(ctx, event)
	}

	switch {
	case change.Rose:
		c.notifyRing(ctx, now)
	case change.Fell:
		logger.Info(ctx, "Ringer quiet")
		c.record(ctx, journal.NewEvent(journal.KindRingEnded, now))
	}

	c.serveOne(ctx)

	c.ticks++
	c.publish(c.clock.Now())
}

// readSensor samples the button. A failing sensor counts as not asserted.
func (c *Controller) readSensor(ctx context.Context, now time.Time) bool {
	asserted, err := c.sensor.IsAsserted()
	if err != nil {
		if !c.sensorFailing {
			c.sensorFailing = true
			c.fault(ctx, now, fmt.Errorf("%w: read ringer: %w", domain.ErrHardwareFault, err))
		}

		return false
	}

	if c.sensorFailing {
		c.sensorFailing = false
		logger.Info(ctx, "Ringer sensor recovered")
	}

	return asserted
}

// notifyRing fans the ring message out to every live subscriber.
func (c *Controller) notifyRing(ctx context.Context, now time.Time) {
	report := c.registry.NotifyAll([]byte(protocol.ReplyRinging), c.transport.Send)

	c.notifications += uint64(report.Delivered)

	for _, failure := range report.Failures {
		logger.WarnKV(ctx, "Ring notification failed", "peer", failure.Address, "error", failure.Err)
	}

	logger.InfoKV(ctx, "Ringer pressed", "notified", report.Delivered, "failed", len(report.Failures))

	c.record(ctx, journal.NewEvent(journal.KindRingStarted, now))

	event := journal.NewEvent(journal.KindNotified, now)
	event.Count = report.Delivered

	if len(report.Failures) > 0 {
		event.Outcome = "partial"
		event.Detail = fmt.Sprintf("%d failed", len(report.Failures))
	}

	c.record(ctx, event)
}

// serveOne waits for a datagram and answers it. At most one datagram is
// consumed per tick.
func (c *Controller) serveOne(ctx context.Context) {
	readable, err := c.transport.WaitReadable(ctx, c.selectTimeout)
	if err != nil {
		c.fault(ctx, c.clock.Now(), err)

		return
	}

	if !readable {
		return
	}

	dg, err := c.transport.Recv()
	if err != nil {
		c.fault(ctx, c.clock.Now(), err)

		return
	}

	now := c.clock.Now()
	reply := c.dispatcher.Dispatch(dg.Payload, dg.From, now)

	c.commands++

	peerCtx := logger.WithKV(ctx, "peer", dg.From)

	switch {
	case errors.Is(reply.Err, domain.ErrProtocolFault):
		logger.DebugKV(peerCtx, "Unrecognized datagram", "payload", string(dg.Payload))
	case reply.Err != nil:
		logger.ErrorKV(peerCtx, "Command failed", "command", reply.Command.Token, "error", reply.Err)
	default:
		logger.InfoKV(peerCtx, "Command handled", "command", reply.Command.Token, "outcome", reply.Outcome)
	}

	if reply.Evicted.IsValid() {
		logger.InfoKV(peerCtx, "Evicted oldest subscriber", "evicted", reply.Evicted)
	}

	// Unknown datagrams are not journaled, so a flood cannot grow the file.
	if reply.Command.Kind != protocol.KindUnknown {
		event := journal.NewEvent(journal.KindCommand, now)
		event.Peer = dg.From.String()
		event.Command = reply.Command.Token
		event.Outcome = reply.Outcome

		if reply.Err != nil {
			event.Detail = reply.Err.Error()
		}

		c.record(ctx, event)
	}

	if reply.Payload == nil {
		return
	}

	if err := c.transport.Send(reply.Payload, dg.From); err != nil {
		c.fault(ctx, now, err)
	}
}

// shutdown releases the solenoid after the loop stops.
func (c *Controller) shutdown(ctx context.Context) error {
	// The parent context is done; keep the logger but drop the cancellation.
	ctx = context.WithoutCancel(ctx)

	now := c.clock.Now()
	err := c.buzzer.Release()

	c.publish(now)
	c.record(ctx, journal.NewEvent(journal.KindStopped, now))

	if err != nil {
		logger.ErrorKV(ctx, "Failed to release solenoid", "error", err)

		return err
	}

	logger.Info(ctx, "Poll loop stopped")

	return nil
}

// fault logs and journals a non-fatal error.
func (c *Controller) fault(ctx context.Context, now time.Time, err error) {
	logger.WarnKV(ctx, "Fault", "error", err)

	event := journal.NewEvent(journal.KindFault, now)
	event.Detail = err.Error()
	c.record(ctx, event)
}

func (c *Controller) record(ctx context.Context, event journal.Event) {
	if err := c.journal.Append(ctx, event); err != nil {
		logger.WarnKV(ctx, "Failed to write journal", "error", err)
	}
}

func (c *Controller) publish(now time.Time) {
	c.snapshot.Store(&domain.Snapshot{
		TakenAt:       now,
		Ringer:        c.tracker.State(),
		Buzzer:        c.buzzer.State(),
		Subscribers:   c.registry.List(),
		Ticks:         c.ticks,
		Commands:      c.commands,
		Notifications: c.notifications,
	})
}
