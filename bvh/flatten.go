package bvh

import "github.com/achilleasa/rtaccel/types"

// Element sizes of the flat GPU representation.
const (
	// A node is packed as 8 floats.
	NodeStride = 8

	// A triangle is packed as 28 floats: 3 x (corner.xyz, pad, normal.xyz,
	// pad) followed by color.rgb and a final pad.
	TriangleStride = 28

	// Each entry of the index permutation list is packed as one float.
	IndexStride = 1

	NodeSize     = NodeStride * 4
	TriangleSize = TriangleStride * 4
	IndexSize    = IndexStride * 4
)

// Pack node into dst which must hold at least NodeStride floats.
//
// The left child field is biased so that several trees can share a single
// buffer: internal nodes add nodeBias (the position of the tree's root in
// the shared node list) while leaves add primBias (the position of the
// tree's first index in the shared index list).
func (n *Node) Flatten(dst []float32, nodeBias, primBias uint32) {
	leftChild := n.LeftChild
	if n.IsLeaf() {
		leftChild += primBias
	} else {
		leftChild += nodeBias
	}

	dst[0], dst[1], dst[2] = n.Min[0], n.Min[1], n.Min[2]
	dst[3] = float32(leftChild)
	dst[4], dst[5], dst[6] = n.Max[0], n.Max[1], n.Max[2]
	dst[7] = float32(n.PrimitiveCount)
}

// Unpack a node from its flat representation.
func DecodeNode(src []float32) Node {
	return Node{
		Min:            types.Vec3{src[0], src[1], src[2]},
		LeftChild:      uint32(src[3]),
		Max:            types.Vec3{src[4], src[5], src[6]},
		PrimitiveCount: uint32(src[7]),
	}
}

// Pack a list of nodes applying the same biases to each one.
func FlattenNodes(nodes []Node, nodeBias, primBias uint32) []float32 {
	out := make([]float32, len(nodes)*NodeStride)
	for i := range nodes {
		nodes[i].Flatten(out[i*NodeStride:], nodeBias, primBias)
	}
	return out
}

// Pack an index permutation list adding bias to each entry.
func FlattenIndices(indices []uint32, bias uint32) []float32 {
	out := make([]float32, len(indices))
	for i, index := range indices {
		out[i] = float32(index + bias)
	}
	return out
}

// Pack triangle into dst which must hold at least TriangleStride floats.
func (t *Triangle) Flatten(dst []float32) {
	for c := 0; c < 3; c++ {
		base := c * 8
		dst[base+0], dst[base+1], dst[base+2] = t.corners[c][0], t.corners[c][1], t.corners[c][2]
		dst[base+3] = 0
		dst[base+4], dst[base+5], dst[base+6] = t.normals[c][0], t.normals[c][1], t.normals[c][2]
		dst[base+7] = 0
	}
	dst[24], dst[25], dst[26] = t.Color[0], t.Color[1], t.Color[2]
	dst[27] = 0
}

// Pack a list of triangles.
func FlattenTriangles(tris []Triangle) []float32 {
	out := make([]float32, len(tris)*TriangleStride)
	for i := range tris {
		tris[i].Flatten(out[i*TriangleStride:])
	}
	return out
}
