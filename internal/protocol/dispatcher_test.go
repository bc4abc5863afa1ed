package protocol

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gatekeeper/internal/buzzer"
	"github.com/oshokin/gatekeeper/internal/domain/gate"
	"github.com/oshokin/gatekeeper/internal/registry"
	"github.com/oshokin/gatekeeper/internal/ringer"
)

var errTestActuator = errors.New("actuator unplugged")

// fakeActuator records solenoid commands and can be told to fail.
type fakeActuator struct {
	// calls records every Set argument.
	calls []bool
	// err is returned from Set when non-nil.
	err error
}

// Set records the call and returns the configured error.
func (f *fakeActuator) Set(on bool) error {
	f.calls = append(f.calls, on)

	return f.err
}

// fixture bundles a dispatcher with real collaborators.
type fixture struct {
	tracker    *ringer.Tracker
	actuator   *fakeActuator
	registry   *registry.Registry
	dispatcher *Dispatcher
}

func newFixture(opts Options, regCfg registry.Config) *fixture {
	f := &fixture{
		tracker:  ringer.NewTracker(15 * time.Second),
		actuator: new(fakeActuator),
		registry: registry.New(regCfg),
	}

	f.dispatcher = NewDispatcher(
		f.tracker,
		buzzer.NewController(f.actuator, time.Second, 10*time.Second),
		f.registry,
		opts,
	)

	return f
}

var client = netip.MustParseAddrPort("192.0.2.10:40000")

// TestDispatch_Status answers Nothing before and RING! after a sensor assertion.
func TestDispatch_Status(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	f := newFixture(Options{}, registry.Config{})

	reply := f.dispatcher.Dispatch([]byte("Sup?"), client, now)
	require.Equal(t, ReplyNothing, string(reply.Payload))

	f.tracker.Sample(true, now)

	reply = f.dispatcher.Dispatch([]byte("Sup?"), client, now)
	require.Equal(t, ReplyRinging, string(reply.Payload))
	require.Equal(t, KindStatus, reply.Command.Kind)
}

// TestDispatch_OpenTwice acknowledges the first OPEN! and refuses the immediate second one.
func TestDispatch_OpenTwice(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	f := newFixture(Options{}, registry.Config{})

	reply := f.dispatcher.Dispatch([]byte("OPEN!"), client, now)
	require.Equal(t, ReplyAcknowledged, string(reply.Payload))
	require.NoError(t, reply.Err)

	reply = f.dispatcher.Dispatch([]byte("OPEN!"), client, now)
	require.Equal(t, ReplyAlreadyOpened, string(reply.Payload))

	require.Equal(t, []bool{true}, f.actuator.calls)
}

// TestDispatch_OpenHardwareFailure replies with the internal error string.
func TestDispatch_OpenHardwareFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(Options{}, registry.Config{})
	f.actuator.err = errTestActuator

	reply := f.dispatcher.Dispatch([]byte("OPEN!"), client, time.Unix(1000, 0))
	require.Equal(t, ReplyInternalError, string(reply.Payload))
	require.Equal(t, gate.HardwareFailure.String(), reply.Outcome)
	require.ErrorIs(t, reply.Err, gate.ErrHardwareFault)
}

// TestDispatch_SubscribeUsesSender registers the UDP sender and ignores payload addresses.
func TestDispatch_SubscribeUsesSender(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	f := newFixture(Options{}, registry.Config{TTL: time.Minute})

	reply := f.dispatcher.Dispatch([]byte("subscribe 203.0.113.5:9"), client, now)
	require.Equal(t, "Subscribed for 60 seconds.\n", string(reply.Payload))
	require.Equal(t, registry.Created.String(), reply.Outcome)

	_, ok := f.registry.Find(client)
	require.True(t, ok)

	_, ok = f.registry.Find(netip.MustParseAddrPort("203.0.113.5:9"))
	require.False(t, ok)

	reply = f.dispatcher.Dispatch([]byte("subscribe "), client, now.Add(time.Second))
	require.Equal(t, registry.Renewed.String(), reply.Outcome)
	require.Equal(t, 1, f.registry.Len())
}

// TestDispatch_SubscribeRoundsTTLUp never advertises a window shorter than the real one.
func TestDispatch_SubscribeRoundsTTLUp(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]string{
		500 * time.Millisecond:  "Subscribed for 1 seconds.\n",
		1500 * time.Millisecond: "Subscribed for 2 seconds.\n",
		30 * time.Second:        "Subscribed for 30 seconds.\n",
	}

	for ttl, want := range cases {
		t.Run(ttl.String(), func(t *testing.T) {
			t.Parallel()

			f := newFixture(Options{}, registry.Config{TTL: ttl})

			reply := f.dispatcher.Dispatch([]byte("subscribe"), client, time.Unix(1000, 0))
			require.Equal(t, want, string(reply.Payload))
		})
	}
}

// TestDispatch_SubscribeWhenFull answers Too many subscribers under the reject policy.
func TestDispatch_SubscribeWhenFull(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	f := newFixture(Options{}, registry.Config{MaxSubscribers: 1, Policy: registry.PolicyReject})

	f.dispatcher.Dispatch([]byte("subscribe"), client, now)

	reply := f.dispatcher.Dispatch([]byte("subscribe"), netip.MustParseAddrPort("192.0.2.11:1"), now)
	require.Equal(t, ReplyTooMany, string(reply.Payload))
	require.ErrorIs(t, reply.Err, registry.ErrRegistryFull)
	require.Equal(t, 1, f.registry.Len())
}

// TestDispatch_Unsubscribe removes the sender's entry.
func TestDispatch_Unsubscribe(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	f := newFixture(Options{}, registry.Config{})

	f.dispatcher.Dispatch([]byte("subscribe"), client, now)

	reply := f.dispatcher.Dispatch([]byte("unsubscribe"), client, now)
	require.Equal(t, ReplyUnsubscribed, string(reply.Payload))
	require.Equal(t, "removed", reply.Outcome)
	require.Zero(t, f.registry.Len())
}

// TestDispatch_Unknown pins both unknown-command policies.
func TestDispatch_Unknown(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)

	reject := newFixture(Options{RejectUnknown: true}, registry.Config{})
	reply := reject.dispatcher.Dispatch([]byte("LET ME IN"), client, now)
	require.Equal(t, ReplyBadRequest, string(reply.Payload))
	require.ErrorIs(t, reply.Err, gate.ErrProtocolFault)

	silent := newFixture(Options{RejectUnknown: false}, registry.Config{})
	reply = silent.dispatcher.Dispatch([]byte("LET ME IN"), client, now)
	require.Nil(t, reply.Payload)
	require.ErrorIs(t, reply.Err, gate.ErrProtocolFault)
}
