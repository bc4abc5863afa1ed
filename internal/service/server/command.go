package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/tebeka/atexit"
	"google.golang.org/grpc"

	grpcgate "github.com/oshokin/gatekeeper/internal/api/grpc/gate"
	"github.com/oshokin/gatekeeper/internal/api/http/status"
	"github.com/oshokin/gatekeeper/internal/config"
	"github.com/oshokin/gatekeeper/internal/discovery"
	domain "github.com/oshokin/gatekeeper/internal/domain/gate"
	"github.com/oshokin/gatekeeper/internal/logger"
	"github.com/oshokin/gatekeeper/internal/registry"
	"github.com/oshokin/gatekeeper/internal/repository/journal"
	"github.com/oshokin/gatekeeper/internal/service/gate"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
	"github.com/oshokin/gatekeeper/internal/version"
)

// Options controls the gatekeeper process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress overrides the UDP listen address from config.
	ListenAddress string
	// Driver overrides the hardware driver from config.
	Driver string
	// JournalPath overrides the journal path from config.
	JournalPath string
	// AllowMultiple skips the running-instance check.
	AllowMultiple bool
	// Ready, when set, receives the bound UDP address once the loop starts.
	Ready func(addr string)
}

// Run starts the daemon and blocks until ctx is canceled. Startup failures
// wrap domain.ErrStartupFault.
//
//nolint:funlen // Linear wiring of the daemon components.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "gatekeeper")

	cfg, err := loadSettings(opts)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStartupFault, err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if !opts.AllowMultiple {
		if err := checkSingleInstance(executableName()); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStartupFault, err)
		}
	}

	devs, err := openDevices(ctx, &cfg.Hardware)
	if err != nil {
		return fmt.Errorf("%w: open %s hardware: %w", domain.ErrStartupFault, cfg.Hardware.Driver, err)
	}

	// Make sure the solenoid is never left energized, even on atexit.Exit.
	var releaseOnce sync.Once

	release := func() {
		releaseOnce.Do(func() {
			if err := devs.release(); err != nil {
				logger.ErrorKV(ctx, "Failed to release hardware", "error", err)
			}
		})
	}

	atexit.Register(release)
	defer release()

	transport, err := udp.Listen(ctx, cfg.ListenAddress, cfg.Protocol.MaxDatagram)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStartupFault, err)
	}

	defer func() {
		_ = transport.Close()
	}()

	var repo journal.Repository = journal.Discard{}

	if cfg.Journal.Path != "" {
		fileRepo, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStartupFault, err)
		}

		atexit.Register(func() { _ = fileRepo.Close() })

		defer func() {
			_ = fileRepo.Close()
		}()

		repo = fileRepo
	}

	ctrl := gate.New(gateConfig(cfg), devs.sensor, devs.actuator, transport, gate.WithJournal(repo))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		id       = instanceID(cfg.Discovery.Instance)
		wg       sync.WaitGroup
		adminErr = make(chan error, 2)
	)

	if cfg.Admin.GRPCAddress != "" {
		if err := startGRPC(ctx, &wg, cfg.Admin.GRPCAddress, grpcgate.NewServer(ctrl, id.String()), adminErr); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrStartupFault, err)
		}
	}

	if devs.interrupts != nil {
		if err := devs.interrupts.Start(ctx, ctrl.Tracker()); err != nil {
			return fmt.Errorf("%w: arm ringer interrupt: %w", domain.ErrStartupFault, err)
		}
	}

	if cfg.Admin.HTTPAddress != "" {
		var httpOpts []status.Option
		if devs.presser != nil {
			httpOpts = append(httpOpts, status.WithSimulator(devs.presser))
		}

		httpServer := status.NewServer(ctrl, id.String(), httpOpts...)

		wg.Go(func() {
			if err := httpServer.Serve(ctx, cfg.Admin.HTTPAddress); err != nil {
				adminErr <- err
			}
		})
	}

	local := transport.LocalAddr()

	if cfg.Discovery.Enabled {
		advertiser, err := discovery.Advertise(discovery.Info{
			Instance:        cfg.Discovery.Instance,
			ID:              id,
			Version:         version.Short(),
			Port:            int(local.Port()),
			SubscriptionTTL: cfg.Timing.SubscriptionTTL,
		})
		if err != nil {
			// Discovery is a convenience; the gate still works without it.
			logger.WarnKV(ctx, "mDNS advertisement failed", "error", err)
		} else {
			defer advertiser.Shutdown()
		}
	}

	logger.InfoKV(ctx, "Gatekeeper listening",
		"listen_address", local.String(),
		"driver", cfg.Hardware.Driver,
		"instance", id.String(),
		"version", version.Short())

	if opts.Ready != nil {
		opts.Ready(local.String())
	}

	loopErr := make(chan error, 1)

	go func() {
		loopErr <- ctrl.Run(ctx)
	}()

	select {
	case err = <-loopErr:
	case err = <-adminErr:
		logger.ErrorKV(ctx, "Admin API failed", "error", err)
		cancel()
		<-loopErr
	}

	cancel()
	wg.Wait()

	return err
}

// loadSettings reads the configuration and applies command-line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	overridden := false

	for _, o := range []struct {
		value string
		field *string
	}{
		{opts.ListenAddress, &cfg.ListenAddress},
		{opts.Driver, &cfg.Hardware.Driver},
		{opts.JournalPath, &cfg.Journal.Path},
	} {
		if o.value != "" {
			*o.field = o.value
			overridden = true
		}
	}

	if overridden {
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validate overrides: %w", err)
		}
	}

	return cfg, nil
}

// gateConfig maps the settings onto the poll loop.
func gateConfig(cfg *config.Config) gate.Config {
	return gate.Config{
		RingerReset:     cfg.Timing.RingerReset,
		BuzzerOn:        cfg.Timing.BuzzerOn,
		BuzzerRest:      cfg.Timing.BuzzerRest,
		SubscriptionTTL: cfg.Timing.SubscriptionTTL,
		PollInterval:    cfg.Timing.PollInterval,
		SelectTimeout:   cfg.Timing.SelectTimeout,
		MaxSubscribers:  cfg.Registry.MaxSubscribers,
		Policy:          registry.Policy(cfg.Registry.Policy),
		RejectUnknown:   cfg.RejectsUnknown(),
	}
}

// startGRPC binds the admin gRPC API and serves it until ctx is done.
func startGRPC(ctx context.Context, wg *sync.WaitGroup, address string, srv *grpcgate.Server, errs chan<- error) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	grpcgate.RegisterAdminServer(grpcServer, srv)

	logger.InfoKV(ctx, "gRPC admin API listening", "address", lis.Addr().String())

	wg.Go(func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	})

	wg.Go(func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errs <- fmt.Errorf("serve gRPC: %w", err)
		}
	})

	return nil
}
