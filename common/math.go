package common

import (
	"encoding/binary"
	"math"
)

// RoundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two; zero leaves the value unchanged.
//
// Parameters:
//   - alignment: the required alignment
//   - value: the value to align
//
// Returns:
//   - uint64: value rounded up to the next multiple of alignment
func RoundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// PackFloat32s serializes float values little-endian into a buffer of exactly size bytes.
// Values that do not fit are dropped and any remaining bytes are zero padding, which is
// how vec3 uniforms grow to their 16-byte WGSL footprint.
//
// Parameters:
//   - values: the float values to serialize in order
//   - size: the total buffer size in bytes
//
// Returns:
//   - []byte: the serialized buffer ready for GPU upload
func PackFloat32s(values []float32, size int) []byte {
	buf := make([]byte, size)
	for i, v := range values {
		off := i * 4
		if off+4 > size {
			break
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	return buf
}
