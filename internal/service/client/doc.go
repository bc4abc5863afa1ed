// Package client implements the gatectl commands: one-shot UDP requests,
// a renewing subscription that prints ring notifications, an interactive
// shell, mDNS discovery and the gRPC admin query.
package client
