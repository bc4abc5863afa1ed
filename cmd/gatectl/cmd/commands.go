package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/gatekeeper/internal/service/client"
)

var (
	// subscribeCmd keeps a subscription alive and prints rings.
	subscribeCmd = &cobra.Command{
		Use:   "subscribe [gate-address]",
		Short: "Print a line every time someone rings.",
		Long: `Subscribes to ring notifications and renews the subscription at half its
lifetime until interrupted. The subscription is withdrawn on exit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Subscribe(ctx, options(cmd, args))
		},
	}

	// shellCmd runs the interactive prompt.
	shellCmd = &cobra.Command{
		Use:   "shell [gate-address]",
		Short: "Open an interactive prompt.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Shell(cmd.Context(), options(cmd, args))
		},
	}

	// discoverCmd lists gates advertised over mDNS.
	discoverCmd = &cobra.Command{
		Use:   "discover",
		Short: "Find gatekeepers on the local network.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Discover(cmd.Context(), timeout, cmd.OutOrStdout())
		},
	}

	// adminCmd queries the gRPC admin API.
	adminCmd = &cobra.Command{
		Use:   "admin [grpc-address]",
		Short: "Print the daemon status from the gRPC admin API.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) > 0 {
				address = args[0]
			}

			return client.Admin(cmd.Context(), address, timeout, cmd.OutOrStdout())
		},
	}
)
