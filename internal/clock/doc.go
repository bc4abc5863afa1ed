// Package clock provides the time source shared by the gate components.
//
// Real reads the wall clock with its monotonic reading preserved, so
// differences between two Now values are immune to wall-clock jumps. Fake is
// advanced by hand in tests.
package clock
