package gpubuf

import (
	"fmt"
	"sort"

	"github.com/achilleasa/rtaccel/bvh"
	"github.com/gogpu/gputypes"
)

const defaultAlignment = 256

// Uploader is implemented by objects that can copy host memory into a
// device buffer. The offset is a byte offset into the device buffer.
type Uploader interface {
	WriteBuffer(offset uint64, data []byte) error
}

type byteRange struct {
	start, end int
}

// Buffer is host memory mirroring a single device buffer. The buffer is
// split into coarse partitions, each one bindable as a separate resource,
// which are in turn split into fine partitions holding independent
// logical arrays.
//
// Usage follows a fixed order: declare all coarse partitions, call
// Initialize to allocate host memory and then declare fine partitions and
// write data into them. Misuse (overflowing a partition or declaring
// coarse partitions after initialization) indicates a sizing bug and
// causes a panic.
type Buffer struct {
	name   string
	limits gputypes.Limits

	coarse []*coarsePartition
	size   int
	data   []byte

	dirty []byteRange
}

// Create a new buffer using the offset alignment requirements of the
// given device limits. Alignments that are not a power of 2 cannot be
// honored and cause a panic.
func NewBuffer(name string, limits gputypes.Limits) *Buffer {
	for _, alignment := range []uint32{limits.MinStorageBufferOffsetAlignment, limits.MinUniformBufferOffsetAlignment} {
		if !IsValidAlignment(alignment) {
			panic(fmt.Sprintf("gpubuf: buffer %q: offset alignment %d is not a power of 2", name, alignment))
		}
	}
	return &Buffer{
		name:   name,
		limits: limits,
	}
}

// Get buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Get the total buffer size in bytes including alignment padding.
func (b *Buffer) Size() int {
	return b.size
}

// Get the host memory backing the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Get the descriptor for creating the device buffer.
func (b *Buffer) Descriptor() gputypes.BufferDescriptor {
	usage := gputypes.BufferUsageCopyDst
	for _, cp := range b.coarse {
		usage |= cp.usage
	}
	return gputypes.BufferDescriptor{
		Label: b.name,
		Size:  uint64(b.size),
		Usage: usage,
	}
}

// Declare a coarse partition with the given size and usage and return its
// index. Padding is inserted in front of the partition so that its offset
// is a valid binding offset for its usage.
func (b *Buffer) AddCoarsePartition(name string, size int, usage gputypes.BufferUsage) int {
	if b.data != nil {
		panic(fmt.Sprintf("gpubuf: buffer %s: cannot add coarse partition %q after Initialize", b.name, name))
	}
	if size < 0 {
		panic(fmt.Sprintf("gpubuf: buffer %s: coarse partition %q has negative size %d", b.name, name, size))
	}

	offset := b.size + padding(b.size, alignmentFor(b.limits, usage))
	b.coarse = append(b.coarse, &coarsePartition{
		Partition: Partition{Name: name, Offset: offset, Size: size},
		usage:     usage,
	})
	b.size = offset + size
	return len(b.coarse) - 1
}

// Allocate host memory for all declared coarse partitions.
func (b *Buffer) Initialize() {
	b.data = make([]byte, b.size)
}

// Declare a fine partition of the given size inside a coarse partition
// and return its index. Fine partitions are packed back to back.
func (b *Buffer) AddFinePartition(coarse int, name string, size int, payload Payload) int {
	cp := b.coarsePartition(coarse)
	if cp.fineUsed+size > cp.Size {
		panic(fmt.Sprintf(
			"gpubuf: buffer %s: fine partition %q of size %d does not fit in coarse partition %q (%d of %d bytes used)",
			b.name, name, size, cp.Name, cp.fineUsed, cp.Size,
		))
	}

	cp.fine = append(cp.fine, Partition{Name: name, Offset: cp.fineUsed, Size: size, Payload: payload})
	cp.fineUsed += size
	return len(cp.fine) - 1
}

// Get the number of declared coarse partitions.
func (b *Buffer) CoarseCount() int {
	return len(b.coarse)
}

// Get the number of fine partitions in a coarse partition.
func (b *Buffer) FineCount(coarse int) int {
	return len(b.coarsePartition(coarse).fine)
}

// Get a coarse partition.
func (b *Buffer) Coarse(coarse int) Partition {
	return b.coarsePartition(coarse).Partition
}

// Get the usage of a coarse partition.
func (b *Buffer) Usage(coarse int) gputypes.BufferUsage {
	return b.coarsePartition(coarse).usage
}

// Get a fine partition.
func (b *Buffer) Fine(coarse, fine int) Partition {
	cp := b.coarsePartition(coarse)
	if fine < 0 || fine >= len(cp.fine) {
		panic(fmt.Sprintf("gpubuf: buffer %s: coarse partition %q has no fine partition %d", b.name, cp.Name, fine))
	}
	return cp.fine[fine]
}

// Get the host memory slice backing a coarse partition.
func (b *Buffer) CoarseBytes(coarse int) []byte {
	b.mustBeInitialized()
	cp := b.coarsePartition(coarse)
	return b.data[cp.Offset:cp.End()]
}

// Get the host memory slice backing a fine partition.
func (b *Buffer) FineBytes(coarse, fine int) []byte {
	b.mustBeInitialized()
	cp := b.coarsePartition(coarse)
	fp := b.Fine(coarse, fine)
	start := cp.Offset + fp.Offset
	return b.data[start : start+fp.Size]
}

// Copy data into a coarse partition and mark the partition dirty. Any
// remaining space in the partition is zeroed.
func (b *Buffer) BlitCoarse(coarse int, data []byte) {
	cp := b.coarsePartition(coarse)
	b.blit(cp.Name, cp.Offset, cp.Size, data)
}

// Copy data into a fine partition and mark the partition dirty. Any
// remaining space in the partition is zeroed.
func (b *Buffer) BlitFine(coarse, fine int, data []byte) {
	cp := b.coarsePartition(coarse)
	fp := b.Fine(coarse, fine)
	b.blit(cp.Name+"/"+fp.Name, cp.Offset+fp.Offset, fp.Size, data)
}

// Copy a list of floats into a fine partition.
func (b *Buffer) BlitFineFloats(coarse, fine int, data []float32) {
	b.BlitFine(coarse, fine, Float32Bytes(data))
}

// Flatten nodes into a fine partition applying the partition payload.
func (b *Buffer) BlitNodes(coarse, fine int, nodes []bvh.Node) {
	payload := b.Fine(coarse, fine).Payload
	b.BlitFineFloats(coarse, fine, bvh.FlattenNodes(nodes, payload.NodeBias, payload.PrimitiveBias))
}

// Flatten an index list into a fine partition applying the partition
// primitive bias.
func (b *Buffer) BlitIndices(coarse, fine int, indices []uint32) {
	payload := b.Fine(coarse, fine).Payload
	b.BlitFineFloats(coarse, fine, bvh.FlattenIndices(indices, payload.PrimitiveBias))
}

// Flatten triangles into a fine partition.
func (b *Buffer) BlitTriangles(coarse, fine int, tris []bvh.Triangle) {
	b.BlitFineFloats(coarse, fine, bvh.FlattenTriangles(tris))
}

func (b *Buffer) blit(name string, offset, size int, data []byte) {
	b.mustBeInitialized()
	if len(data) > size {
		panic(fmt.Sprintf("gpubuf: buffer %s: insufficient space (%d) in partition %s for copying data of length %d", b.name, size, name, len(data)))
	}

	dst := b.data[offset : offset+size]
	n := copy(dst, data)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	b.markDirty(offset, offset+size)
}

// Returns true if some regions have been modified since the last Flush.
func (b *Buffer) Dirty() bool {
	return len(b.dirty) != 0
}

// Upload all regions modified since the last call to Flush and return the
// number of uploaded bytes. Adjacent dirty regions are coalesced into a
// single upload.
func (b *Buffer) Flush(u Uploader) (int, error) {
	var uploaded int
	for len(b.dirty) > 0 {
		r := b.dirty[0]
		if err := u.WriteBuffer(uint64(r.start), b.data[r.start:r.end]); err != nil {
			return uploaded, fmt.Errorf("gpubuf: buffer %s: upload of range [%d, %d) failed: %w", b.name, r.start, r.end, err)
		}
		uploaded += r.end - r.start
		b.dirty = b.dirty[1:]
	}
	b.dirty = nil
	return uploaded, nil
}

// Add [start, end) to the sorted, non-overlapping dirty range list.
func (b *Buffer) markDirty(start, end int) {
	if start >= end {
		return
	}
	b.dirty = append(b.dirty, byteRange{start, end})
	sort.Slice(b.dirty, func(i, j int) bool { return b.dirty[i].start < b.dirty[j].start })

	merged := b.dirty[:1]
	for _, r := range b.dirty[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}
	b.dirty = merged
}

func (b *Buffer) coarsePartition(coarse int) *coarsePartition {
	if coarse < 0 || coarse >= len(b.coarse) {
		panic(fmt.Sprintf("gpubuf: buffer %s has no coarse partition %d", b.name, coarse))
	}
	return b.coarse[coarse]
}

func (b *Buffer) mustBeInitialized() {
	if b.data == nil {
		panic(fmt.Sprintf("gpubuf: buffer %s has not been initialized", b.name))
	}
}
