// Package hardware defines the capabilities the gate core consumes from the
// physical world. Concrete drivers live in the subpackages: parport (Linux
// ppdev), sim (in-process simulation) and gpio (interrupt-driven pins for
// the microcontroller target).
package hardware
