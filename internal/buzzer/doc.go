// Package buzzer rate-limits the gate solenoid.
//
// The Controller energizes the actuator on request, de-energizes it after
// the on-time, and refuses new activations during the rest period that
// follows every firing.
package buzzer
