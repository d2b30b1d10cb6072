package gpubuf

import "fmt"

// Mirror is an Uploader that keeps a host-side copy of the device buffer
// contents and tracks upload volume. It stands in for a device queue when
// compiling scenes offline and in tests.
type Mirror struct {
	data []byte

	// Number of WriteBuffer calls and bytes copied since creation.
	Uploads       int
	UploadedBytes int
}

// Create a mirror for a buffer of the given size.
func NewMirror(size int) *Mirror {
	return &Mirror{data: make([]byte, size)}
}

// Implements Uploader.
func (m *Mirror) WriteBuffer(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > uint64(len(m.data)) {
		return fmt.Errorf("gpubuf: write of %d bytes at offset %d exceeds mirror size %d", len(data), offset, len(m.data))
	}
	copy(m.data[offset:], data)
	m.Uploads++
	m.UploadedBytes += len(data)
	return nil
}

// Get the mirrored contents.
func (m *Mirror) Bytes() []byte {
	return m.data
}
