package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFilename is the optional dotenv file read next to the settings file.
const DefaultEnvFilename = ".env"

// Environment keys that override YAML values.
const (
	EnvListenAddress  = "GATEKEEPER_LISTEN_ADDR"
	EnvLogLevel       = "GATEKEEPER_LOG_LEVEL"
	EnvHardwareDriver = "GATEKEEPER_HARDWARE_DRIVER"
	EnvJournalPath    = "GATEKEEPER_JOURNAL_PATH"
)

// ApplyEnv overrides settings from the dotenv file at envPath, if it exists,
// and then from the process environment, which wins.
func ApplyEnv(cfg *Config, envPath string) error {
	file, err := godotenv.Read(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", envPath, err)
	}

	applyOverrides(cfg, func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}

		v, ok := file[key]

		return v, ok
	})

	return nil
}

// applyOverrides copies every non-empty value found by lookup.
func applyOverrides(cfg *Config, lookup func(string) (string, bool)) {
	for key, field := range map[string]*string{
		EnvListenAddress:  &cfg.ListenAddress,
		EnvLogLevel:       &cfg.LogLevel,
		EnvHardwareDriver: &cfg.Hardware.Driver,
		EnvJournalPath:    &cfg.Journal.Path,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}
}
