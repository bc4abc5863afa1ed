package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/oshokin/gatekeeper/internal/config"
	"github.com/oshokin/gatekeeper/internal/logger"
	"github.com/oshokin/gatekeeper/internal/service/server"
	"github.com/oshokin/gatekeeper/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// driver overrides the hardware driver.
	driver string
	// journalPath overrides the journal file.
	journalPath string
	// allowMultiple skips the running-instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the daemon.
	rootCmd = &cobra.Command{
		Use:   "gatekeeper [listen-address]",
		Short: "Run the gate-access controller.",
		Long: `Watches the gate call button, answers status queries over UDP, notifies
subscribers when someone rings and buzzes the gate open on request.

The UDP listen address can be provided as argument to override the config
(e.g., :30012, 0.0.0.0:30012). The protocol is unauthenticated: anyone who can
reach the port can open the gate, so bind it to a trusted network only.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				Driver:        driver,
				JournalPath:   journalPath,
				AllowMultiple: allowMultiple,
			})
		},
	}
)

// Execute runs the gatekeeper CLI and exits with non-zero status on error.
// Exit hooks, such as releasing the solenoid, run on both paths.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(journalCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+" if present)")
	rootCmd.Flags().StringVarP(&driver, "driver", "d", "", "hardware driver override: parport, sim or gpio")
	rootCmd.Flags().StringVarP(&journalPath, "journal", "j", "", "event journal path override")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the running-instance check")
}
