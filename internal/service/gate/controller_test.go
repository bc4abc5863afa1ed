package gate

import (
	"context"
	"net/netip"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gatekeeper/internal/clock"
	"github.com/oshokin/gatekeeper/internal/protocol"
	"github.com/oshokin/gatekeeper/internal/registry"
	"github.com/oshokin/gatekeeper/internal/repository/journal"
)

var (
	alice = netip.MustParseAddrPort("192.0.2.10:40001")
	bob   = netip.MustParseAddrPort("192.0.2.11:40002")
)

// testConfig mirrors the daemon defaults.
func testConfig() Config {
	return Config{
		RingerReset:     15 * time.Second,
		BuzzerOn:        time.Second,
		BuzzerRest:      10 * time.Second,
		SubscriptionTTL: 60 * time.Second,
		PollInterval:    100 * time.Millisecond,
		SelectTimeout:   100 * time.Millisecond,
		MaxSubscribers:  registry.DefaultMaxSubscribers,
		Policy:          registry.PolicyReject,
		RejectUnknown:   true,
	}
}

// harness bundles a controller with its fakes.
type harness struct {
	ctrl      *Controller
	sensor    *fakeSensor
	actuator  *fakeActuator
	transport *fakeTransport
	journal   *memoryJournal
	clock     *clock.Fake
}

func newHarness(cfg Config) *harness {
	h := &harness{
		sensor:    new(fakeSensor),
		actuator:  new(fakeActuator),
		transport: new(fakeTransport),
		journal:   new(memoryJournal),
		clock:     clock.NewFake(time.Unix(1_700_000_000, 0)),
	}

	h.ctrl = New(cfg, h.sensor, h.actuator, h.transport, WithClock(h.clock), WithJournal(h.journal))

	return h
}

// TestTick_StatusSeesSameTickAssertion answers RING! when the query and the
// first assertion land in the same tick.
func TestTick_StatusSeesSameTickAssertion(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.transport.push("Sup?", alice)
	h.ctrl.Tick(ctx)
	require.Equal(t, []sent{{payload: protocol.ReplyNothing, to: alice}}, h.transport.drain())

	h.sensor.set(true, nil)
	h.transport.push("Sup?", alice)
	h.ctrl.Tick(ctx)
	require.Equal(t, []sent{{payload: protocol.ReplyRinging, to: alice}}, h.transport.drain())
}

// TestTick_OneDatagramPerTick leaves extra datagrams for later ticks.
func TestTick_OneDatagramPerTick(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.transport.push("Sup?", alice)
	h.transport.push("Sup?", bob)

	h.ctrl.Tick(ctx)
	require.Len(t, h.transport.drain(), 1)
	require.Equal(t, 1, h.transport.queued())

	h.ctrl.Tick(ctx)
	require.Equal(t, []sent{{payload: protocol.ReplyNothing, to: bob}}, h.transport.drain())
	require.Equal(t, uint64(2), h.ctrl.Snapshot().Commands)
}

// TestTick_NotifiesOncePerRisingEdge fans out on the rising edge only.
func TestTick_NotifiesOncePerRisingEdge(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.transport.push("subscribe", alice)
	h.ctrl.Tick(ctx)
	h.transport.push("subscribe", bob)
	h.ctrl.Tick(ctx)
	h.transport.drain()

	h.sensor.set(true, nil)
	h.ctrl.Tick(ctx)

	require.ElementsMatch(t, []sent{
		{payload: protocol.ReplyRinging, to: alice},
		{payload: protocol.ReplyRinging, to: bob},
	}, h.transport.drain())

	// Still held down: no further fan-out.
	h.clock.Advance(time.Second)
	h.ctrl.Tick(ctx)
	require.Empty(t, h.transport.drain())

	// Released and decayed, then pressed again.
	h.sensor.set(false, nil)
	h.clock.Advance(15 * time.Second)
	h.ctrl.Tick(ctx)
	require.False(t, h.ctrl.Snapshot().Ringer.IsRinging)

	h.sensor.set(true, nil)
	h.ctrl.Tick(ctx)
	require.Len(t, h.transport.drain(), 2)
	require.Equal(t, uint64(4), h.ctrl.Snapshot().Notifications)
}

// TestTick_PurgeBeforeNotify never notifies a subscription that expired this tick.
func TestTick_PurgeBeforeNotify(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.transport.push("subscribe", alice)
	h.ctrl.Tick(ctx)
	require.Equal(t, []sent{{payload: "Subscribed for 60 seconds.\n", to: alice}}, h.transport.drain())

	h.clock.Advance(60*time.Second + time.Millisecond)
	h.sensor.set(true, nil)
	h.ctrl.Tick(ctx)

	require.Empty(t, h.transport.drain())
	require.Empty(t, h.ctrl.Snapshot().Subscribers)
	require.Contains(t, h.journal.kinds(), journal.KindExpired)
}

// TestTick_SubscriptionSurvivesExactTTL keeps an entry renewed exactly TTL ago.
func TestTick_SubscriptionSurvivesExactTTL(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.transport.push("subscribe", alice)
	h.ctrl.Tick(ctx)
	h.transport.drain()

	h.clock.Advance(60 * time.Second)
	h.sensor.set(true, nil)
	h.ctrl.Tick(ctx)

	require.Equal(t, []sent{{payload: protocol.ReplyRinging, to: alice}}, h.transport.drain())
}

// TestTick_BuzzerCycle opens, refuses during the rest period and turns off after the on-time.
func TestTick_BuzzerCycle(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.transport.push("OPEN!", alice)
	h.ctrl.Tick(ctx)
	require.Equal(t, []sent{{payload: protocol.ReplyAcknowledged, to: alice}}, h.transport.drain())
	require.True(t, h.actuator.isOn())
	require.True(t, h.ctrl.Snapshot().Buzzer.IsActive)

	h.clock.Advance(time.Second)
	h.ctrl.Tick(ctx)
	require.True(t, h.actuator.isOn())

	h.clock.Advance(time.Millisecond)
	h.transport.push("OPEN!", bob)
	h.ctrl.Tick(ctx)
	require.False(t, h.actuator.isOn())
	require.Equal(t, []sent{{payload: protocol.ReplyAlreadyOpened, to: bob}}, h.transport.drain())

	h.clock.Advance(9 * time.Second)
	h.transport.push("OPEN!", bob)
	h.ctrl.Tick(ctx)
	require.Equal(t, []sent{{payload: protocol.ReplyAcknowledged, to: bob}}, h.transport.drain())
}

// TestTick_SensorErrorCountsAsReleased treats a failing sensor as not asserted.
func TestTick_SensorErrorCountsAsReleased(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.sensor.set(true, errSensorUnplugged)
	h.transport.push("Sup?", alice)
	h.ctrl.Tick(ctx)
	h.ctrl.Tick(ctx)

	require.Equal(t, []sent{{payload: protocol.ReplyNothing, to: alice}}, h.transport.drain())

	faults := 0

	for _, k := range h.journal.kinds() {
		if k == journal.KindFault {
			faults++
		}
	}

	require.Equal(t, 1, faults)
}

// TestTick_UnknownCommand answers Huh? or stays silent depending on configuration.
func TestTick_UnknownCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	h.transport.push("hello", alice)
	h.ctrl.Tick(context.Background())
	require.Equal(t, []sent{{payload: protocol.ReplyBadRequest, to: alice}}, h.transport.drain())
	require.NotContains(t, h.journal.kinds(), journal.KindCommand)

	h.transport.push("Sup?", alice)
	h.ctrl.Tick(context.Background())
	require.Equal(t, []journal.Kind{journal.KindCommand}, h.journal.kinds())

	cfg := testConfig()
	cfg.RejectUnknown = false

	h = newHarness(cfg)
	h.transport.push("hello", alice)
	h.ctrl.Tick(context.Background())
	require.Empty(t, h.transport.drain())
}

// TestTick_InterruptEdgeIsNotified reports a press seen only by the interrupt path.
func TestTick_InterruptEdgeIsNotified(t *testing.T) {
	t.Parallel()

	h := newHarness(testConfig())
	ctx := context.Background()

	h.transport.push("subscribe", alice)
	h.ctrl.Tick(ctx)
	h.transport.drain()

	h.ctrl.Tracker().Interrupt(true, h.clock.Now())
	h.ctrl.Tick(ctx)

	require.Equal(t, []sent{{payload: protocol.ReplyRinging, to: alice}}, h.transport.drain())
}

// TestRun_ReleasesOnShutdown stops on cancellation and de-energizes the solenoid.
func TestRun_ReleasesOnShutdown(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var (
			sensor    = new(fakeSensor)
			actuator  = new(fakeActuator)
			transport = &fakeTransport{sleep: true}
			events    = new(memoryJournal)
		)

		ctrl := New(testConfig(), sensor, actuator, transport, WithJournal(events))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		transport.push("OPEN!", alice)

		done := make(chan error, 1)

		go func() {
			done <- ctrl.Run(ctx)
		}()

		synctest.Wait()
		require.True(t, actuator.isOn())

		require.NoError(t, <-done)
		require.False(t, actuator.isOn())

		kinds := events.kinds()
		require.Equal(t, journal.KindStarted, kinds[0])
		require.Equal(t, journal.KindStopped, kinds[len(kinds)-1])

		// An idle tick takes the 100 ms select plus the 100 ms poll.
		require.InDelta(t, 10, ctrl.Snapshot().Ticks, 2)
	})
}
