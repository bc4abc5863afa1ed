// Package sim provides an in-process ringer and buzzer for running the
// daemon without a parallel port. Pressing the simulated button holds the
// line asserted for a given duration; the simulated solenoid only logs and
// counts its activations.
package sim
