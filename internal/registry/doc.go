// Package registry keeps the set of clients subscribed to ring notifications.
//
// Subscriptions are keyed by the exact UDP sender address, expire after a
// TTL unless renewed, and are capped by a maximum count with either a
// reject or an evict-oldest policy. Removal compacts the backing slice in a
// separate pass, and fan-out iterates over a copy, so expiry and
// notification can never corrupt each other.
package registry
