package client

import (
	"bytes"
	"context"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/gatekeeper/internal/clock"
	"github.com/oshokin/gatekeeper/internal/discovery"
	"github.com/oshokin/gatekeeper/internal/hardware/sim"
	"github.com/oshokin/gatekeeper/internal/service/gate"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
)

// syncBuffer is a goroutine-safe output sink.
type syncBuffer struct {
	// buf holds the written bytes.
	buf bytes.Buffer
	// mu protects buf.
	mu sync.Mutex
}

// Write appends p.
func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

// String returns the written text.
func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// startGate runs an in-process daemon on the simulated driver and returns
// its address and button.
func startGate(t *testing.T) (string, *sim.Ringer) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	transport, err := udp.Listen(ctx, "127.0.0.1:0", udp.DefaultMaxDatagram)
	require.NoError(t, err)

	ringer := sim.NewRinger(clock.Real{})

	ctrl := gate.New(gate.Config{
		RingerReset:     time.Second,
		BuzzerOn:        100 * time.Millisecond,
		BuzzerRest:      time.Second,
		SubscriptionTTL: 4 * time.Second,
		PollInterval:    10 * time.Millisecond,
		SelectTimeout:   10 * time.Millisecond,
		RejectUnknown:   true,
	}, ringer, sim.NewBuzzer(ctx), transport)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = ctrl.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = transport.Close()
	})

	return transport.LocalAddr().String(), ringer
}

// TestCommand_OneShot prints the reply of each command.
func TestCommand_OneShot(t *testing.T) {
	t.Parallel()

	addr, _ := startGate(t)

	cases := []struct {
		command string
		want    string
	}{
		{command: "Sup?", want: "Nothing.\n"},
		{command: "OPEN!", want: "Acknowledged. Buzzing it open.\n"},
		{command: "OPEN!", want: "Already opened recently.\n"},
		{command: "unsubscribe", want: "Unsubscribed.\n"},
		{command: "knock knock", want: "Huh?\n"},
	}

	for _, tc := range cases {
		out := new(bytes.Buffer)

		err := Command(context.Background(), &Options{Address: addr, Out: out}, tc.command)
		require.NoError(t, err)
		require.Equal(t, tc.want, out.String(), tc.command)
	}
}

// TestSubscribe_PrintsRings prints a ring pushed by the gate.
func TestSubscribe_PrintsRings(t *testing.T) {
	t.Parallel()

	addr, ringer := startGate(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := new(syncBuffer)
	done := make(chan error, 1)

	go func() {
		done <- Subscribe(ctx, &Options{Address: addr, Out: out})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Subscribed for 4 seconds.")
	}, 5*time.Second, 10*time.Millisecond)

	ringer.Press(200 * time.Millisecond)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "RING!")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

// TestParseSubscribed extracts the advertised lifetime.
func TestParseSubscribed(t *testing.T) {
	t.Parallel()

	ttl, ok := ParseSubscribed("Subscribed for 60 seconds.\n")
	require.True(t, ok)
	require.Equal(t, time.Minute, ttl)

	_, ok = ParseSubscribed("Too many subscribers.\n")
	require.False(t, ok)

	_, ok = ParseSubscribed("Subscribed for 0 seconds.\n")
	require.False(t, ok)
}

// recordingSender collects shell output datagrams.
type recordingSender struct {
	// sent lists the commands in order.
	sent []string
}

// Send records command.
func (r *recordingSender) Send(command string) error {
	r.sent = append(r.sent, command)

	return nil
}

// TestExecShellLine maps aliases and passes raw input through.
func TestExecShellLine(t *testing.T) {
	t.Parallel()

	var (
		s   = new(recordingSender)
		out = new(bytes.Buffer)
	)

	require.NoError(t, execShellLine("status", s, out))
	require.NoError(t, execShellLine("  OPEN  ", s, out))
	require.NoError(t, execShellLine("Sup?", s, out))
	require.NoError(t, execShellLine("", s, out))
	require.NoError(t, execShellLine("help", s, out))
	require.ErrorIs(t, execShellLine("quit", s, out), errQuit)

	require.Equal(t, []string{"Sup?", "OPEN!", "Sup?"}, s.sent)
	require.Contains(t, out.String(), "Commands:")
}

// TestPrintServices renders discovered gates.
func TestPrintServices(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	require.NoError(t, printServices(out, nil))
	require.Equal(t, "No gatekeepers found.\n", out.String())

	out.Reset()
	require.NoError(t, printServices(out, []discovery.Service{{
		Instance:        "front-gate",
		ID:              uuid.Nil,
		Version:         "1.0.0",
		SubscriptionTTL: time.Minute,
		Addresses:       []netip.AddrPort{netip.MustParseAddrPort("192.0.2.1:30012")},
	}}))
	require.Contains(t, out.String(), "front-gate\tversion=1.0.0\tttl=1m0s")
	require.Contains(t, out.String(), "192.0.2.1:30012")
}
