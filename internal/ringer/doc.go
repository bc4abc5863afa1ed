// Package ringer debounces the call-button signal.
//
// The Tracker turns raw sensor readings into a ringing flag that stays set
// for a reset period after the last assertion. It has two entry points into
// the same transition rule: Sample for the poll loop and Interrupt for
// edge-triggered GPIO callbacks.
package ringer
