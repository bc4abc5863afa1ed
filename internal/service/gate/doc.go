// Package gate runs the poll loop that ties the ringer tracker, the buzzer
// controller, the subscriber registry and the protocol dispatcher to the
// hardware and the UDP socket.
//
// One goroutine owns all controller state. Each tick samples the ringer,
// expires the buzzer and stale subscriptions, fans out a ring notification on
// a rising edge, services at most one datagram and then publishes a Snapshot
// that other goroutines may read.
package gate
