package parport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRingerAsserted checks the active-low decoding of the status register.
func TestRingerAsserted(t *testing.T) {
	t.Parallel()

	require.True(t, ringerAsserted(0x00, DefaultStatusBit))
	require.True(t, ringerAsserted(0xEF, DefaultStatusBit))
	require.False(t, ringerAsserted(0x10, DefaultStatusBit))
	require.False(t, ringerAsserted(0xFF, DefaultStatusBit))
}

// TestDataByte pins the relay data values.
func TestDataByte(t *testing.T) {
	t.Parallel()

	require.Equal(t, byte(0xFF), dataByte(true))
	require.Equal(t, byte(0x00), dataByte(false))
}

// TestOpen_MissingDevice fails cleanly when the device node does not exist.
func TestOpen_MissingDevice(t *testing.T) {
	t.Parallel()

	p, err := Open("/nonexistent/parport9", 0)
	require.Error(t, err)
	require.Nil(t, p)
}
