// Package server is the composition root of the gatekeeper daemon. It loads
// the settings, acquires the hardware and the UDP socket, starts the optional
// admin APIs and mDNS advertisement, and runs the poll loop until the context
// is canceled.
package server
