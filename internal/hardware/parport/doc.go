// Package parport drives the gate through a PC parallel port using the
// Linux ppdev interface.
//
// The ringer is wired to a status line that reads 0 while the button is
// pressed. The solenoid relay hangs off the data lines: 0xFF energizes it,
// 0x00 releases it. Every data write is bracketed by a control-register
// frob, as the relay board expects.
package parport
