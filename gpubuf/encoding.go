package gpubuf

import (
	"encoding/binary"
	"math"
)

// Encode a list of floats using the little-endian layout expected by the
// device.
func Float32Bytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Decode a little-endian float list. Trailing bytes that do not form a
// complete float are ignored.
func BytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
