// Package discovery advertises the daemon over mDNS and finds running
// daemons on the local link.
//
// The service type is _gatekeeper._udp in the local. domain. TXT records
// carry the build version, a stable instance ID and the subscription TTL so
// clients can pick a renewal interval before subscribing.
package discovery
