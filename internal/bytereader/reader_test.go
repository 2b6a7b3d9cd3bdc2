package bytereader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadPrimitivesBigEndian(t *testing.T) {
	data := []byte{0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04}
	r := New(data)

	require.Equal(t, uint8(0x01), r.ReadU8())
	require.Equal(t, uint16(0x0002), r.ReadU16())
	require.Equal(t, int32(3), r.ReadI32())
	require.Equal(t, int64(4), r.ReadI64())
	require.False(t, r.Failed())
	require.Equal(t, len(data), r.Offset())
}

func TestReadFloatsRoundTrip(t *testing.T) {
	// 3.14f encoded big-endian, then 2.71828 as float64 big-endian.
	r := New([]byte{0x40, 0x48, 0xf5, 0xc3, 0x40, 0x05, 0xbf, 0x0a, 0x89, 0xf1, 0xb0, 0xdc, 0x78, 0xe8})
	f32 := r.ReadF32()
	require.InDelta(t, 3.14, float64(f32), 0.001)
	f64 := r.ReadF64()
	require.InDelta(t, 2.71828, f64, 0.00001)
}

func TestPeekDoesNotAdvance(t *testing.T) {
	r := New([]byte{0xAB, 0xCD})
	require.Equal(t, uint8(0xAB), r.PeekU8())
	require.Equal(t, 0, r.Offset())
	require.Equal(t, uint8(0xAB), r.ReadU8())
	require.Equal(t, 1, r.Offset())
}

func TestStickyFailureOnOutOfBounds(t *testing.T) {
	r := New([]byte{0x01})
	require.Equal(t, uint8(0x01), r.ReadU8())

	// Next read is out of bounds.
	got := r.ReadU8()
	require.Equal(t, uint8(0), got)
	require.True(t, r.Failed())
	require.Equal(t, 1, r.FailOffset())
	require.Contains(t, r.FailDetail(), "unexpected end of input at offset 1")

	// Once failed, every further read is a no-op returning zero, and the
	// original failure offset/message are retained (sticky).
	require.Equal(t, uint16(0), r.ReadU16())
	require.Equal(t, int32(0), r.ReadI32())
	require.Nil(t, r.ReadBytes(4))
	require.Equal(t, 1, r.FailOffset())
}

func TestReadBytesExactAndShort(t *testing.T) {
	r := New([]byte{1, 2, 3, 4})
	got := r.ReadBytes(3)
	require.Equal(t, []byte{1, 2, 3}, got)
	require.False(t, r.Failed())

	r2 := New([]byte{1, 2})
	require.Nil(t, r2.ReadBytes(3))
	require.True(t, r2.Failed())
}

func TestNegativeLengthFailsImmediately(t *testing.T) {
	r := New([]byte{1, 2, 3})
	require.Nil(t, r.ReadBytes(-1))
	require.True(t, r.Failed())
}

func TestSkipAndRemaining(t *testing.T) {
	r := New([]byte{1, 2, 3, 4, 5})
	require.Equal(t, 5, r.Remaining())
	r.Skip(2)
	require.Equal(t, 2, r.Offset())
	require.Equal(t, 3, r.Remaining())

	r.Skip(10)
	require.True(t, r.Failed())
	require.Equal(t, 0, r.Remaining())
}

func TestSetOffset(t *testing.T) {
	r := New([]byte{1, 2, 3, 4})
	r.SetOffset(2)
	require.Equal(t, uint8(3), r.ReadU8())
}
