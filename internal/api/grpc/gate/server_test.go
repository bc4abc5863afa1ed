package gate

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	domain "github.com/oshokin/gatekeeper/internal/domain/gate"
)

// fakeService returns a fixed snapshot.
type fakeService struct {
	// snap is returned by Snapshot.
	snap *domain.Snapshot
}

// Snapshot returns the configured snapshot.
func (f *fakeService) Snapshot() *domain.Snapshot { return f.snap }

func testSnapshot() *domain.Snapshot {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	return &domain.Snapshot{
		TakenAt: at,
		Ringer: domain.RingerState{
			IsRinging:    true,
			LastDetected: at.Add(-time.Second),
		},
		Subscribers: []domain.Subscription{{
			Address:      netip.MustParseAddrPort("192.0.2.1:5000"),
			SubscribedAt: at.Add(-time.Minute),
			RenewedAt:    at.Add(-time.Second),
		}},
		Ticks:    42,
		Commands: 3,
	}
}

// TestServer_GetStatus renders the snapshot fields.
func TestServer_GetStatus(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeService{snap: testSnapshot()}, "front-gate")

	out, err := s.GetStatus(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)

	fields := out.AsMap()
	require.Equal(t, "front-gate", fields["instance"])
	require.Equal(t, float64(42), fields["ticks"])

	ringer, ok := fields["ringer"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, ringer["is_ringing"])

	buzzer, ok := fields["buzzer"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "", buzzer["last_fired"])

	subs, ok := fields["subscribers"].([]any)
	require.True(t, ok)
	require.Len(t, subs, 1)
}

// TestServer_NoSnapshot reports Unavailable before the first publication.
func TestServer_NoSnapshot(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService), "front-gate")

	_, err := s.GetStatus(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.Unavailable, status.Code(err))

	_, err = s.ListSubscribers(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.Unavailable, status.Code(err))
}

// TestAdminClient_OverConnection calls the service through a real gRPC stack.
func TestAdminClient_OverConnection(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(1 << 16)

	srv := grpc.NewServer()
	RegisterAdminServer(srv, NewServer(&fakeService{snap: testSnapshot()}, "front-gate"))

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	client := NewAdminClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, "front-gate", resp.GetFields()["instance"].GetStringValue())

	subs, err := client.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs.GetFields()["subscribers"].GetListValue().GetValues(), 1)
}
