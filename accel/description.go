package accel

import (
	"github.com/achilleasa/rtaccel/bvh"
	"github.com/achilleasa/rtaccel/types"
)

// Flattened BlasDescription size.
const (
	DescriptionStride = 20
	DescriptionSize   = DescriptionStride * 4
)

// BlasDescription is the TLAS view of a mesh instance: the world space
// bounds of the instance, the transform that maps world space rays into
// the mesh's local space and the index of the mesh BLAS root in the shared
// node list.
type BlasDescription struct {
	bbox   bvh.AABB
	center types.Vec3

	InverseModel  types.Mat4
	RootNodeIndex uint32
}

// Create a description for an instance of a mesh with the given local
// bounds placed in the world by model.
func NewBlasDescription(local bvh.AABB, model types.Mat4, rootNodeIndex uint32) BlasDescription {
	bbox := bvh.EmptyAABB()
	for _, corner := range local.Corners() {
		bbox.Grow(model.MulPoint(corner))
	}

	var inv types.Mat4
	if model.IsRigid() {
		inv = model.RigidInverse()
	} else {
		inv = model.Inv()
	}

	return BlasDescription{
		bbox:          bbox,
		center:        bbox.Center(),
		InverseModel:  inv,
		RootNodeIndex: rootNodeIndex,
	}
}

// Get the world space bounds of the instance.
func (d BlasDescription) BBox() bvh.AABB {
	return d.bbox
}

// Get the center of the world space bounds.
func (d BlasDescription) Centroid() types.Vec3 {
	return d.center
}

// Pack description into dst which must hold at least DescriptionStride
// floats: the row-major inverse model matrix followed by the root node
// index repeated 4 times.
func (d *BlasDescription) Flatten(dst []float32) {
	copy(dst[:16], d.InverseModel[:])
	root := float32(d.RootNodeIndex)
	dst[16], dst[17], dst[18], dst[19] = root, root, root, root
}

// Pack a list of descriptions.
func FlattenDescriptions(descs []BlasDescription) []float32 {
	out := make([]float32, len(descs)*DescriptionStride)
	for i := range descs {
		descs[i].Flatten(out[i*DescriptionStride:])
	}
	return out
}
