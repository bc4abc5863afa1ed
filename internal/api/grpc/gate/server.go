package gate

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/gatekeeper/internal/domain/gate"
	"github.com/oshokin/gatekeeper/internal/version"
)

// Service is the read side of the poll loop.
type Service interface {
	Snapshot() *domain.Snapshot
}

// Server implements AdminServer.
type Server struct {
	// service provides the published snapshot.
	service Service
	// instance identifies this daemon.
	instance string
}

// NewServer wires the snapshot source into a gRPC handler.
func NewServer(service Service, instance string) *Server {
	return &Server{
		service:  service,
		instance: instance,
	}
}

// GetStatus returns the full snapshot.
func (s *Server) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.service.Snapshot()
	if snap == nil {
		return nil, status.Error(codes.Unavailable, "controller has not published a snapshot")
	}

	out, err := structpb.NewStruct(StatusFields(snap, s.instance))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}

	return out, nil
}

// ListSubscribers returns only the subscriptions.
func (s *Server) ListSubscribers(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.service.Snapshot()
	if snap == nil {
		return nil, status.Error(codes.Unavailable, "controller has not published a snapshot")
	}

	out, err := structpb.NewStruct(map[string]any{
		"subscribers": subscriberList(snap.Subscribers),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode subscribers: %v", err)
	}

	return out, nil
}

// StatusFields converts a snapshot into structpb-compatible values. The HTTP
// status API renders the same fields.
func StatusFields(snap *domain.Snapshot, instance string) map[string]any {
	return map[string]any{
		"instance":      instance,
		"version":       version.Short(),
		"build":         version.Fields(),
		"taken_at":      formatTime(snap.TakenAt),
		"ticks":         snap.Ticks,
		"commands":      snap.Commands,
		"notifications": snap.Notifications,
		"ringer": map[string]any{
			"is_ringing":    snap.Ringer.IsRinging,
			"last_detected": formatTime(snap.Ringer.LastDetected),
		},
		"buzzer": map[string]any{
			"is_active":  snap.Buzzer.IsActive,
			"last_fired": formatTime(snap.Buzzer.LastFired),
		},
		"subscribers": subscriberList(snap.Subscribers),
	}
}

func subscriberList(subs []domain.Subscription) []any {
	list := make([]any, 0, len(subs))

	for _, sub := range subs {
		list = append(list, map[string]any{
			"address":       sub.Address.String(),
			"subscribed_at": formatTime(sub.SubscribedAt),
			"renewed_at":    formatTime(sub.RenewedAt),
		})
	}

	return list
}

// formatTime renders t as RFC 3339, or an empty string for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}
