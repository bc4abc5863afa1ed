// Package udp provides the datagram transport used by the gate daemon and
// the small request/response client used by gatectl.
//
// Transport emulates select(2) on top of read deadlines: WaitReadable blocks
// for at most the given timeout and stashes the datagram it received, and
// Recv hands that datagram out.
package udp
