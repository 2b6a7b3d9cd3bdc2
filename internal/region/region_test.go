package region

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	require.Equal(t, 0, Index(0, 0))
	require.Equal(t, 1, Index(1, 0))
	require.Equal(t, 32, Index(0, 1))
	require.Equal(t, 5*32+3, Index(3, 5))
}

func newPopulatedRegion(t *testing.T) *Region {
	t.Helper()
	reg := &Region{}
	slot := &reg.Slots[Index(3, 5)]
	require.NoError(t, slot.SetDecompressed([]byte("fake nbt payload for chunk 3,5"), CompressionZlib))
	slot.Timestamp = 1234
	return reg
}

func TestWriteReadRoundTrip(t *testing.T) {
	reg := newPopulatedRegion(t)

	buf, res := Write(reg)
	require.True(t, res.IsOK())
	require.GreaterOrEqual(t, len(buf), MinFileSize)

	reread, res := Read(buf)
	require.True(t, res.IsOK())

	slot, ok := reread.Get(3, 5)
	require.True(t, ok)
	require.Equal(t, CompressionZlib, slot.Compression)
	require.Equal(t, uint32(1234), slot.Timestamp)

	raw, err := slot.Decompress()
	require.NoError(t, err)
	require.Equal(t, []byte("fake nbt payload for chunk 3,5"), raw)

	// Every other slot stays absent.
	for x := 0; x < GridSize; x++ {
		for z := 0; z < GridSize; z++ {
			if x == 3 && z == 5 {
				continue
			}
			_, ok := reread.Get(x, z)
			require.False(t, ok, "chunk (%d,%d) should be absent", x, z)
		}
	}
}

func TestWriteDefaultsUnsetCompressionToZlib(t *testing.T) {
	reg := &Region{}
	slot := &reg.Slots[Index(0, 0)]
	slot.Present = true
	slot.Payload = []byte("raw bytes, compression never set")
	// slot.Compression left at its zero value (CompressionNone).

	buf, res := Write(reg)
	require.True(t, res.IsOK())

	reread, res := Read(buf)
	require.True(t, res.IsOK())
	got, ok := reread.Get(0, 0)
	require.True(t, ok)
	require.Equal(t, CompressionZlib, got.Compression)
}

func TestSectorsDoNotOverlap(t *testing.T) {
	reg := &Region{}
	for i, coord := range [][2]int{{0, 0}, {1, 0}, {31, 31}, {5, 5}} {
		slot := &reg.Slots[Index(coord[0], coord[1])]
		payload := make([]byte, 100*(i+1))
		require.NoError(t, slot.SetDecompressed(payload, CompressionRaw))
	}

	buf, res := Write(reg)
	require.True(t, res.IsOK())

	reread, res := Read(buf)
	require.True(t, res.IsOK())
	for _, coord := range [][2]int{{0, 0}, {1, 0}, {31, 31}, {5, 5}} {
		_, ok := reread.Get(coord[0], coord[1])
		require.True(t, ok)
	}
}

func TestReadRejectsFileTooSmall(t *testing.T) {
	_, res := Read(make([]byte, 100))
	require.False(t, res.IsOK())
}

func TestReadRejectsOffsetCountXOR(t *testing.T) {
	data := make([]byte, MinFileSize)
	// Offset nonzero, count zero: entry = (5 << 8) | 0.
	data[0], data[1], data[2], data[3] = 0, 0, 5, 0
	_, res := Read(data)
	require.False(t, res.IsOK())
}

func TestReadRejectsOffsetOverlappingHeader(t *testing.T) {
	data := make([]byte, MinFileSize)
	// Offset 1 (inside the header), count 1: entry = (1 << 8) | 1.
	data[0], data[1], data[2], data[3] = 0, 0, 1, 1
	_, res := Read(data)
	require.False(t, res.IsOK())
}

func TestReadRejectsOverlappingSectors(t *testing.T) {
	data := make([]byte, MinFileSize+2*SectorSize)
	// Chunk 0: offset 2, count 2, with a minimal valid payload so it
	// parses cleanly and the overlap check on chunk 1 is what trips.
	data[0], data[1], data[2], data[3] = 0, 0, 2, 2
	payloadStart := 2 * SectorSize
	data[payloadStart+3] = 1 // length = 1
	data[payloadStart+4] = byte(CompressionRaw)
	// Chunk 1: offset 3, count 1 (overlaps chunk 0's second sector).
	data[4], data[5], data[6], data[7] = 0, 0, 3, 1
	_, res := Read(data)
	require.False(t, res.IsOK())
}

func TestReadRejectsInvalidCompressionType(t *testing.T) {
	data := make([]byte, MinFileSize+SectorSize)
	data[0], data[1], data[2], data[3] = 0, 0, 2, 1
	// length = 2, compression_type = 9 (invalid).
	payloadStart := 2 * SectorSize
	data[payloadStart+3] = 2
	data[payloadStart+4] = 9
	_, res := Read(data)
	require.False(t, res.IsOK())
}

func TestFirstPresent(t *testing.T) {
	reg := &Region{}
	_, _, ok := reg.FirstPresent()
	require.False(t, ok)

	reg.Slots[Index(7, 2)].Present = true
	x, z, ok := reg.FirstPresent()
	require.True(t, ok)
	require.Equal(t, 7, x)
	require.Equal(t, 2, z)
}

func TestWriteRejectsSectorCountOverflow(t *testing.T) {
	reg := &Region{}
	slot := &reg.Slots[0]
	slot.Present = true
	slot.Compression = CompressionRaw
	slot.Payload = make([]byte, 256*SectorSize) // needs 257 sectors, exceeds the 8-bit field.

	_, res := Write(reg)
	require.False(t, res.IsOK())
}
