package gpubuf

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Payload holds the renumbering offsets applied to flattened tree data as
// it is written into a fine partition.
type Payload struct {
	// Added to the left child of internal nodes.
	NodeBias uint32 `yaml:"node_bias"`

	// Added to the left child of leaf nodes and to every entry of an
	// index list.
	PrimitiveBias uint32 `yaml:"primitive_bias"`
}

// Partition describes a region of a Buffer. Coarse partition offsets are
// absolute byte offsets in the buffer; fine partition offsets are relative
// to the start of their coarse partition.
type Partition struct {
	Name    string  `yaml:"name"`
	Offset  int     `yaml:"offset"`
	Size    int     `yaml:"size"`
	Payload Payload `yaml:"payload,omitempty"`
}

// End returns the first byte offset after the partition.
func (p Partition) End() int {
	return p.Offset + p.Size
}

type coarsePartition struct {
	Partition
	usage gputypes.BufferUsage

	fine     []Partition
	fineUsed int
}

// Calculate the padding required to move offset to the next multiple of
// alignment. Alignment must be a power of 2.
func padding(offset, alignment int) int {
	return (alignment - (offset & (alignment - 1))) & (alignment - 1)
}

// Get the offset alignment required for binding a buffer range with the
// given usage. Uniform bindings use the uniform alignment; everything else
// the storage alignment. Unset limits default to 256 bytes.
func alignmentFor(limits gputypes.Limits, usage gputypes.BufferUsage) int {
	alignment := limits.MinStorageBufferOffsetAlignment
	if usage.Contains(gputypes.BufferUsageUniform) {
		alignment = limits.MinUniformBufferOffsetAlignment
	}
	if alignment == 0 {
		alignment = defaultAlignment
	}
	if !IsValidAlignment(alignment) {
		panic(fmt.Sprintf("gpubuf: offset alignment %d is not a power of 2", alignment))
	}
	return int(alignment)
}

// IsValidAlignment returns true if alignment can be used as a buffer offset
// alignment. Zero selects the default alignment and is also accepted.
func IsValidAlignment(alignment uint32) bool {
	return alignment&(alignment-1) == 0
}
