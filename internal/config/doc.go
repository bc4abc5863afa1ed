// Package config defines the daemon settings and provides helpers to load,
// validate and save them in YAML format.
//
// Missing values are filled with defaults by Validate. A .env file next to
// the settings file and the process environment may override a few keys
// (see ApplyEnv), so containers can be tuned without editing YAML.
package config
