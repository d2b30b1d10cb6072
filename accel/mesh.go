package accel

import (
	"fmt"

	"github.com/achilleasa/rtaccel/bvh"
)

// Mesh is a triangle list together with its bottom level BVH. The BVH is
// built once when the mesh is created and never modified afterwards.
type Mesh struct {
	Name      string
	Triangles []bvh.Triangle
	BLAS      *bvh.BVH
}

// Create a mesh and build its BVH.
func NewMesh(name string, tris []bvh.Triangle, opts bvh.Options) (*Mesh, error) {
	blas, err := bvh.Build(tris, opts)
	if err != nil {
		return nil, fmt.Errorf("accel: mesh %q: %w", name, err)
	}
	return &Mesh{
		Name:      name,
		Triangles: tris,
		BLAS:      blas,
	}, nil
}

// Get the local space bounding box of the mesh.
func (m *Mesh) BBox() bvh.AABB {
	return m.BLAS.BBox()
}
