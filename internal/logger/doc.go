// Package logger wraps zap with a process-wide sugared logger and context
// helpers (ToContext, FromContext, WithName, WithKV, WithFields).
//
// Log lines go to stderr so gatectl can print replies on stdout. The level is
// atomic and can be raised or lowered after startup from the daemon config.
package logger
