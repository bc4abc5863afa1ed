package parport

// ioctl request numbers from linux/ppdev.h, computed for the generic
// _IOC layout (dir<<30 | size<<16 | 'p'<<8 | nr).
const (
	ppClaim    = 0x0000708b // _IO('p', 0x8b)
	ppRelease  = 0x0000708c // _IO('p', 0x8c)
	ppRStatus  = 0x80017081 // _IOR('p', 0x81, unsigned char)
	ppWData    = 0x40017086 // _IOW('p', 0x86, unsigned char)
	ppFControl = 0x4002708e // _IOW('p', 0x8e, struct ppdev_frob_struct)
)

const (
	// DefaultDevice is the first parallel port.
	DefaultDevice = "/dev/parport0"

	// DefaultStatusBit is the status line carrying the ringer (SELECT, pin 13).
	DefaultStatusBit byte = 0x10

	// dataEnable and dataDisable are written to the data register.
	dataEnable  byte = 0xFF
	dataDisable byte = 0x00

	// controlFrobMask and controlFrobValue are applied around data writes.
	controlFrobMask  byte = 0x02
	controlFrobValue byte = 0x02
)

// frob mirrors struct ppdev_frob_struct.
type frob struct {
	mask byte
	val  byte
}

// ringerAsserted decodes the status register. The line is active-low.
func ringerAsserted(status, bit byte) bool {
	return status&bit == 0
}

// dataByte returns the data register value for the solenoid state.
func dataByte(on bool) byte {
	if on {
		return dataEnable
	}

	return dataDisable
}
