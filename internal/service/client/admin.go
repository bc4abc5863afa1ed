package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"

	grpcgate "github.com/oshokin/gatekeeper/internal/api/grpc/gate"
	"github.com/oshokin/gatekeeper/internal/discovery"
	"github.com/oshokin/gatekeeper/internal/logger"
)

// DefaultAdminAddress is the gRPC admin API on this host.
const DefaultAdminAddress = "127.0.0.1:30013"

// Admin prints the controller snapshot fetched from the gRPC admin API.
func Admin(ctx context.Context, address string, timeout time.Duration, out io.Writer) error {
	ctx = logger.WithName(ctx, "gatectl")

	if address == "" {
		address = DefaultAdminAddress
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", address, err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	status, err := grpcgate.NewAdminClient(conn).GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	_, err = fmt.Fprintln(out, string(data))

	return err
}

// Discover browses the local link and prints every gate found.
func Discover(ctx context.Context, timeout time.Duration, out io.Writer) error {
	ctx = logger.WithName(ctx, "gatectl")

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	services, err := discovery.Browse(ctx)
	if err != nil {
		return err
	}

	return printServices(out, services)
}

func printServices(out io.Writer, services []discovery.Service) error {
	if len(services) == 0 {
		_, err := fmt.Fprintln(out, "No gatekeepers found.")

		return err
	}

	for _, svc := range services {
		addrs := make([]string, 0, len(svc.Addresses))
		for _, a := range svc.Addresses {
			addrs = append(addrs, a.String())
		}

		if _, err := fmt.Fprintf(out, "%s\tversion=%s\tttl=%s\tid=%s\t%s\n",
			svc.Instance, svc.Version, svc.SubscriptionTTL, svc.ID, strings.Join(addrs, ",")); err != nil {
			return err
		}
	}

	return nil
}
