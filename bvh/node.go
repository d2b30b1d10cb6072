package bvh

import "github.com/achilleasa/rtaccel/types"

// Node is a BVH tree element. Its field order matches the 8 float layout
// consumed by the traversal shader:
//
//	[min.x, min.y, min.z, leftChild, max.x, max.y, max.z, primitiveCount]
//
// For internal nodes PrimitiveCount is 0 and LeftChild points to the left
// child; the right child is always stored at LeftChild+1. For leaf nodes
// LeftChild is the offset of the first slot in the index permutation list
// and PrimitiveCount the number of consecutive slots covered by the leaf.
type Node struct {
	Min       types.Vec3
	LeftChild uint32

	Max            types.Vec3
	PrimitiveCount uint32
}

// Returns true if this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.PrimitiveCount > 0
}

// Get node bounding box.
func (n *Node) BBox() AABB {
	return AABB{Min: n.Min, Max: n.Max}
}

// Set node bounding box.
func (n *Node) SetBBox(bbox AABB) {
	n.Min = bbox.Min
	n.Max = bbox.Max
}

// Get the index range [first, first+count) into the index list covered by a leaf.
func (n *Node) IndexRange() (first, count uint32) {
	return n.LeftChild, n.PrimitiveCount
}

// Get the left and right child indices of an internal node.
func (n *Node) Children() (left, right uint32) {
	return n.LeftChild, n.LeftChild + 1
}
