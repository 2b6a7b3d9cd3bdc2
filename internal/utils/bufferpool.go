// Package utils provides small allocation and arithmetic helpers shared
// across the NBT edit engine's internal packages.
package utils

import "sync"

// pooledCap is sized for a decompressed region sector (4096 bytes): most
// String/Byte_Array payloads the codec decompresses fit in one sector
// without a reallocation.
const pooledCap = 4096

// growthCeiling bounds the doubling in GetBuffer: a whole-chunk Byte_Array
// (BlockStates, HeightMaps) can run past a megabyte, and doubling that on
// every growth would leave oversized buffers parked in the pool for
// unrelated small requests to inherit.
const growthCeiling = 1 << 20

var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, pooledCap)
	},
}

// GetBuffer returns a byte slice from the pool.
func GetBuffer(size int) []byte {
	buf := bufferPool.Get().([]byte)
	if cap(buf) < size {
		if size >= growthCeiling {
			return make([]byte, size, size) // Exact: avoid doubling large chunk payloads.
		}
		return make([]byte, size, size*2) // Increase capacity.
	}
	return buf[:size]
}

// ReleaseBuffer returns a buffer to the pool.
func ReleaseBuffer(buf []byte) {
	//nolint:staticcheck // SA6002: slice descriptor copy is acceptable for sync.Pool
	bufferPool.Put(buf[:0])
}
