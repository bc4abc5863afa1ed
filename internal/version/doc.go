// Package version exposes build metadata for gatekeeper and gatectl.
//
// Version, Commit and BuildTime are injected at build time via ldflags.
// The daemon reports them through the admin APIs and mDNS TXT records.
package version
