package bvh

import (
	"fmt"

	"github.com/achilleasa/rtaccel/types"
)

// The Bounded interface is implemented by all items that can be partitioned
// by the BVH builder. The builder only needs a bounding box and a point that
// is used to classify the item against a split plane.
type Bounded interface {
	BBox() AABB
	Centroid() types.Vec3
}

// A triangle primitive.
type Triangle struct {
	corners [3]types.Vec3
	normals [3]types.Vec3
	Color   types.Vec3

	centroid types.Vec3
	bbox     AABB
}

// Create a triangle from a list of corners and per-corner normals.
func NewTriangle(corners, normals []types.Vec3, color types.Vec3) (Triangle, error) {
	if len(corners) != 3 {
		return Triangle{}, fmt.Errorf("%w; got %d", ErrCornerCount, len(corners))
	}
	if len(normals) != len(corners) {
		return Triangle{}, fmt.Errorf("%w; got %d normals for %d corners", ErrNormalCount, len(normals), len(corners))
	}

	tri := Triangle{Color: color}
	copy(tri.normals[:], normals)
	tri.SetCorners([3]types.Vec3{corners[0], corners[1], corners[2]})
	return tri, nil
}

// Update the triangle corners and recalculate the centroid and bbox.
func (t *Triangle) SetCorners(corners [3]types.Vec3) {
	t.corners = corners
	t.centroid = corners[0].Add(corners[1]).Add(corners[2]).Mul(1.0 / 3.0)
	t.bbox = EmptyAABB()
	for _, c := range corners {
		t.bbox.Grow(c)
	}
}

// Update the per-corner normals.
func (t *Triangle) SetNormals(normals [3]types.Vec3) {
	t.normals = normals
}

// Get the triangle corners.
func (t Triangle) Corners() [3]types.Vec3 {
	return t.corners
}

// Get the per-corner normals.
func (t Triangle) Normals() [3]types.Vec3 {
	return t.normals
}

// Get the triangle AABB.
func (t Triangle) BBox() AABB {
	return t.bbox
}

// Get the arithmetic mean of the triangle corners.
func (t Triangle) Centroid() types.Vec3 {
	return t.centroid
}

// A sphere primitive.
type Sphere struct {
	Position types.Vec3
	Radius   float32
	Color    types.Vec3
}

// Create a sphere.
func NewSphere(position types.Vec3, radius float32, color types.Vec3) (Sphere, error) {
	if radius <= 0 {
		return Sphere{}, fmt.Errorf("%w; got %f", ErrRadius, radius)
	}
	return Sphere{Position: position, Radius: radius, Color: color}, nil
}

// Get the sphere AABB.
func (s Sphere) BBox() AABB {
	r := types.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: s.Position.Sub(r), Max: s.Position.Add(r)}
}

// Get the sphere center.
func (s Sphere) Centroid() types.Vec3 {
	return s.Position
}
