package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/gatekeeper/internal/hardware"
	"github.com/oshokin/gatekeeper/internal/hardware/parport"
	"github.com/oshokin/gatekeeper/internal/logger"
	"github.com/oshokin/gatekeeper/internal/registry"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
)

// Config holds the daemon settings.
type Config struct {
	// ListenAddress is the UDP command socket address.
	ListenAddress string `yaml:"listen_addr"`
	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level"`
	// Hardware selects and configures the ringer and buzzer driver.
	Hardware Hardware `yaml:"hardware"`
	// Timing holds every time constant of the controller.
	Timing Timing `yaml:"timing"`
	// Registry bounds the subscriber registry.
	Registry Registry `yaml:"registry"`
	// Protocol tunes the command dispatcher.
	Protocol Protocol `yaml:"protocol"`
	// Journal configures the event journal.
	Journal Journal `yaml:"journal"`
	// Admin configures the read-only admin APIs.
	Admin Admin `yaml:"admin"`
	// Discovery configures mDNS advertisement.
	Discovery Discovery `yaml:"discovery"`
}

// Hardware selects the I/O driver.
type Hardware struct {
	// Driver is "parport", "sim" or "gpio".
	Driver string `yaml:"driver"`
	// Device is the ppdev node for the parport driver.
	Device string `yaml:"device"`
	// RingerStatusBit is the status register bit wired to the ringer.
	RingerStatusBit uint8 `yaml:"ringer_status_bit"`
}

// Timing holds the controller time constants.
type Timing struct {
	// RingerReset is how long the ringing flag survives the last assertion.
	RingerReset time.Duration `yaml:"ringer_reset"`
	// BuzzerOn is how long the solenoid stays energized.
	BuzzerOn time.Duration `yaml:"buzzer_on"`
	// BuzzerRest is the minimum gap between two openings.
	BuzzerRest time.Duration `yaml:"buzzer_rest"`
	// SubscriptionTTL is how long a subscription lives without renewal.
	SubscriptionTTL time.Duration `yaml:"subscription_ttl"`
	// PollInterval is the sleep between ticks.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SelectTimeout bounds the datagram wait inside a tick.
	SelectTimeout time.Duration `yaml:"select_timeout"`
}

// Registry bounds the subscriber registry.
type Registry struct {
	// MaxSubscribers caps the number of subscriptions.
	MaxSubscribers int `yaml:"max_subscribers"`
	// Policy is "reject" or "evict-oldest".
	Policy string `yaml:"policy"`
}

// Protocol tunes the dispatcher.
type Protocol struct {
	// RejectUnknown answers unknown commands with "Huh?". Defaults to true.
	RejectUnknown *bool `yaml:"reject_unknown,omitempty"`
	// MaxDatagram is the receive buffer size.
	MaxDatagram int `yaml:"max_datagram"`
}

// Journal configures the event journal.
type Journal struct {
	// Path is the journal file. Empty disables the journal. The file is not
	// rotated; every recognized command from any peer appends a record.
	Path string `yaml:"path"`
}

// Admin configures the admin APIs.
type Admin struct {
	// GRPCAddress is the gRPC listen address. Empty disables it.
	GRPCAddress string `yaml:"grpc_addr"`
	// HTTPAddress is the HTTP listen address. Empty disables it.
	HTTPAddress string `yaml:"http_addr"`
}

// Discovery configures mDNS.
type Discovery struct {
	// Enabled turns advertisement on.
	Enabled bool `yaml:"enabled"`
	// Instance is the advertised instance name.
	Instance string `yaml:"instance"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "gatekeeper.yaml"

	// DefaultListenAddress is the well-known gatekeeper UDP port.
	DefaultListenAddress = ":30012"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultRingerReset is how long ringing is reported after the last press.
	DefaultRingerReset = 15 * time.Second

	// DefaultBuzzerOn is how long the solenoid stays energized.
	DefaultBuzzerOn = time.Second

	// DefaultBuzzerRest is the minimum gap between two openings.
	DefaultBuzzerRest = 10 * time.Second

	// DefaultPollInterval is the sleep between ticks.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultSelectTimeout bounds the datagram wait inside a tick.
	DefaultSelectTimeout = 100 * time.Millisecond

	// DefaultInstance is the advertised mDNS instance name.
	DefaultInstance = "gatekeeper"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// maxUDPPayload is the largest IPv4 UDP payload.
	maxUDPPayload = 65507
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrInvalidTiming is returned for non-positive or inconsistent durations.
	ErrInvalidTiming = errors.New("invalid timing")
	// ErrInvalidStatusBit is returned when the ringer bit is not a single status line.
	ErrInvalidStatusBit = errors.New("ringer status bit must be one of 0x08, 0x10, 0x20, 0x40, 0x80")
	// ErrInvalidLogLevel is returned for an unknown log level.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidDatagramSize is returned when the receive buffer is out of range.
	ErrInvalidDatagramSize = errors.New("max datagram must be between 1 and 65507")
	// ErrInvalidMaxSubscribers is returned for a negative registry cap.
	ErrInvalidMaxSubscribers = errors.New("max subscribers must not be negative")
)

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := new(Config)

	// Defaults alone always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path, overlays the environment
// and validates it. When path is empty and the default file does not exist,
// the defaults are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
		// Run on defaults.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := ApplyEnv(&cfg, filepath.Join(filepath.Dir(path), DefaultEnvFilename)); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// RejectsUnknown reports whether unknown commands get a "Huh?" reply.
func (c *Config) RejectsUnknown() bool {
	return c.Protocol.RejectUnknown == nil || *c.Protocol.RejectUnknown
}

// Validate fills in defaults and checks the settings.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	applyDefaults(settings)

	if _, err := net.ResolveUDPAddr("udp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, settings.LogLevel)
	}

	if err := hardware.ValidateDriver(settings.Hardware.Driver); err != nil {
		return fmt.Errorf("%w: %q", err, settings.Hardware.Driver)
	}

	bit := settings.Hardware.RingerStatusBit
	if bit&0xF8 == 0 || bit&(bit-1) != 0 {
		return fmt.Errorf("%w: got 0x%02x", ErrInvalidStatusBit, bit)
	}

	if err := validateTiming(&settings.Timing); err != nil {
		return err
	}

	if settings.Registry.MaxSubscribers < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxSubscribers, settings.Registry.MaxSubscribers)
	}

	if _, err := registry.ParsePolicy(settings.Registry.Policy); err != nil {
		return err
	}

	if settings.Protocol.MaxDatagram < 1 || settings.Protocol.MaxDatagram > maxUDPPayload {
		return fmt.Errorf("%w: got %d", ErrInvalidDatagramSize, settings.Protocol.MaxDatagram)
	}

	for name, addr := range map[string]string{
		"grpc": settings.Admin.GRPCAddress,
		"http": settings.Admin.HTTPAddress,
	} {
		if addr == "" {
			continue
		}

		if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
			return fmt.Errorf("invalid %s admin address: %w", name, err)
		}
	}

	return nil
}

// applyDefaults fills zero values. Negative durations and sizes are left
// for validation to reject.
func applyDefaults(settings *Config) {
	setDefault(&settings.ListenAddress, DefaultListenAddress)
	setDefault(&settings.LogLevel, DefaultLogLevel)
	setDefault(&settings.Hardware.Driver, hardware.DriverParport)
	setDefault(&settings.Hardware.Device, parport.DefaultDevice)
	setDefault(&settings.Registry.Policy, string(registry.PolicyReject))
	setDefault(&settings.Discovery.Instance, DefaultInstance)

	if settings.Hardware.RingerStatusBit == 0 {
		settings.Hardware.RingerStatusBit = parport.DefaultStatusBit
	}

	if settings.Registry.MaxSubscribers == 0 {
		settings.Registry.MaxSubscribers = registry.DefaultMaxSubscribers
	}

	if settings.Protocol.MaxDatagram == 0 {
		settings.Protocol.MaxDatagram = udp.DefaultMaxDatagram
	}

	t := &settings.Timing
	setDefault(&t.RingerReset, DefaultRingerReset)
	setDefault(&t.BuzzerOn, DefaultBuzzerOn)
	setDefault(&t.BuzzerRest, DefaultBuzzerRest)
	setDefault(&t.SubscriptionTTL, registry.DefaultTTL)
	setDefault(&t.PollInterval, DefaultPollInterval)
	setDefault(&t.SelectTimeout, DefaultSelectTimeout)
}

// validateTiming requires positive durations and a rest period longer than
// the on-time, otherwise the solenoid could be re-fired while still energized.
func validateTiming(t *Timing) error {
	for name, d := range map[string]time.Duration{
		"ringer_reset":     t.RingerReset,
		"buzzer_on":        t.BuzzerOn,
		"buzzer_rest":      t.BuzzerRest,
		"subscription_ttl": t.SubscriptionTTL,
		"poll_interval":    t.PollInterval,
		"select_timeout":   t.SelectTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidTiming, name, d)
		}
	}

	// The subscribe reply advertises the TTL in whole seconds.
	if t.SubscriptionTTL%time.Second != 0 {
		return fmt.Errorf("%w: subscription_ttl must be a whole number of seconds, got %s",
			ErrInvalidTiming, t.SubscriptionTTL)
	}

	if t.BuzzerOn >= t.BuzzerRest {
		return fmt.Errorf("%w: buzzer_on (%s) must be shorter than buzzer_rest (%s)",
			ErrInvalidTiming, t.BuzzerOn, t.BuzzerRest)
	}

	return nil
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
