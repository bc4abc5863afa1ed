// Package gate contains the core domain types of the gate controller.
//
// It defines the ringer and buzzer states, subscriptions, actuation results,
// the error taxonomy, and the Snapshot published by the poll loop for
// read-only consumers.
package gate
