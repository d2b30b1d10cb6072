package accel

import (
	"github.com/achilleasa/rtaccel/bvh"
	"github.com/gogpu/gputypes"
)

// Options control scene compilation.
type Options struct {
	// Build options for mesh BVHs.
	BLAS bvh.Options

	// Build options for the per-frame instance BVH.
	TLAS bvh.Options

	// Device limits used for aligning buffer partitions.
	Limits gputypes.Limits

	// The max number of instances the compiled buffers can hold. If zero,
	// the instance count at compile time is used.
	TLASCapacity int
}

// Get the default scene options: SAH for mesh BVHs which are built once
// and median splits for the TLAS which is rebuilt every frame.
func DefaultOptions() Options {
	return Options{
		BLAS:   bvh.DefaultOptions(bvh.SurfaceAreaHeuristic),
		TLAS:   bvh.DefaultOptions(bvh.MedianSplit),
		Limits: gputypes.DefaultLimits(),
	}
}
