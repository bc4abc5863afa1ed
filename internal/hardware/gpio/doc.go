// Package gpio adapts digital pins to the gate capabilities for the
// microcontroller target.
//
// The ringer is interrupt-driven: the pin-change handler only samples the
// level and hands it to a buffered channel without blocking, and a pump
// goroutine applies it to the tracker. On TinyGo builds pins come from the
// machine package; host builds use FakePin.
package gpio
