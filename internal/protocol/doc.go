// Package protocol implements the gate's UDP text protocol.
//
// Every datagram carries one command. Parse tokenizes the payload on
// whitespace and matches the first token as a whole word; Dispatcher runs
// the command against the ringer, the buzzer and the subscriber registry
// and returns at most one reply. The protocol is deliberately
// unauthenticated: anyone who can reach the port can open the gate.
//
//	Sup?          -> RING! | Nothing.
//	OPEN!         -> Acknowledged. Buzzing it open. | Already opened recently. | Internal error.
//	subscribe     -> Subscribed for N seconds. | Too many subscribers.
//	unsubscribe   -> Unsubscribed.
//	anything else -> Huh? (or nothing when rejection is disabled)
package protocol
