package gpio

// Edge selects which level transitions raise an interrupt.
type Edge int

const (
	// EdgeNone disables interrupts.
	EdgeNone Edge = iota
	// EdgeRising fires on low-to-high.
	EdgeRising
	// EdgeFalling fires on high-to-low.
	EdgeFalling
	// EdgeBoth fires on any change.
	EdgeBoth
)

// Pin is a digital line.
type Pin interface {
	Get() bool
	Set(high bool)
}

// IRQPin is a digital input that can call back on level changes. The
// handler runs in interrupt context and must not block.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}
