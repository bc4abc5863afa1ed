package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/oshokin/gatekeeper/internal/logger"
	"github.com/oshokin/gatekeeper/internal/protocol"
	"github.com/oshokin/gatekeeper/internal/service/client"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
	"github.com/oshokin/gatekeeper/internal/version"
)

var (
	// timeout bounds each reply.
	timeout time.Duration

	// rootCmd represents the base command of the client.
	rootCmd = &cobra.Command{
		Use:   "gatectl",
		Short: "Talk to a gatekeeper daemon.",
		Long: `Sends commands to a gatekeeper daemon over its UDP text protocol.

Every command takes an optional gate address (default ` + client.DefaultAddress + `).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// oneShot builds a subcommand that sends a single protocol token.
func oneShot(use, short, token string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [gate-address]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Command(ctx, options(cmd, args), token)
		},
	}
}

// options builds client options from flags and the optional address argument.
func options(cmd *cobra.Command, args []string) *client.Options {
	opts := &client.Options{
		Timeout: timeout,
		Out:     cmd.OutOrStdout(),
	}

	if len(args) > 0 {
		opts.Address = args[0]
	}

	return opts
}

// Execute runs the gatectl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	rootCmd.AddCommand(
		oneShot("status", "Ask whether someone is ringing.", protocol.TokenStatus),
		oneShot("open", "Buzz the gate open.", protocol.TokenOpen),
		oneShot("unsubscribe", "Stop ring notifications for this address.", protocol.TokenUnsubscribe),
		subscribeCmd,
		shellCmd,
		discoverCmd,
		adminCmd,
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error(context.Background(), err)
		atexit.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", udp.DefaultTimeout, "reply timeout")
}
