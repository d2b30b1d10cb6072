package bvh

import (
	"testing"

	"github.com/achilleasa/rtaccel/types"
)

func TestNodeFlattenBias(t *testing.T) {
	specs := []struct {
		node         Node
		nodeBias     uint32
		primBias     uint32
		expLeftChild float32
	}{
		// internal nodes are offset by the node bias
		{Node{LeftChild: 3, PrimitiveCount: 0}, 10, 100, 13},
		// leaves are offset by the primitive bias
		{Node{LeftChild: 3, PrimitiveCount: 2}, 10, 100, 103},
		{Node{LeftChild: 0, PrimitiveCount: 1}, 0, 0, 0},
	}

	out := make([]float32, NodeStride)
	for specIndex, spec := range specs {
		spec.node.Min = types.XYZ(-1, -2, -3)
		spec.node.Max = types.XYZ(1, 2, 3)
		spec.node.Flatten(out, spec.nodeBias, spec.primBias)

		if out[3] != spec.expLeftChild {
			t.Fatalf("[spec %d] expected left child to be %f; got %f", specIndex, spec.expLeftChild, out[3])
		}
		if out[7] != float32(spec.node.PrimitiveCount) {
			t.Fatalf("[spec %d] expected primitive count to be %d; got %f", specIndex, spec.node.PrimitiveCount, out[7])
		}
		if out[0] != -1 || out[1] != -2 || out[2] != -3 || out[4] != 1 || out[5] != 2 || out[6] != 3 {
			t.Fatalf("[spec %d] unexpected bounds in flattened node: %v", specIndex, out)
		}

		decoded := DecodeNode(out)
		if decoded.Min != spec.node.Min || decoded.Max != spec.node.Max || decoded.PrimitiveCount != spec.node.PrimitiveCount {
			t.Fatalf("[spec %d] expected decoded node to match; got %+v", specIndex, decoded)
		}
	}
}

func TestFlattenIndices(t *testing.T) {
	out := FlattenIndices([]uint32{2, 0, 1}, 5)
	exp := []float32{7, 5, 6}
	for i := range exp {
		if out[i] != exp[i] {
			t.Fatalf("expected index %d to be %f; got %f", i, exp[i], out[i])
		}
	}
}

func TestTriangleFlattenLayout(t *testing.T) {
	tri, err := NewTriangle(
		[]types.Vec3{types.XYZ(1, 2, 3), types.XYZ(4, 5, 6), types.XYZ(7, 8, 9)},
		[]types.Vec3{types.XYZ(0, 0, 1), types.XYZ(0, 1, 0), types.XYZ(1, 0, 0)},
		types.XYZ(0.25, 0.5, 0.75),
	)
	if err != nil {
		t.Fatal(err)
	}

	out := FlattenTriangles([]Triangle{tri, tri})
	if len(out) != 2*TriangleStride {
		t.Fatalf("expected %d floats; got %d", 2*TriangleStride, len(out))
	}

	corners, normals := tri.Corners(), tri.Normals()
	for c := 0; c < 3; c++ {
		for axis := 0; axis < 3; axis++ {
			if got := out[8*c+axis]; got != corners[c][axis] {
				t.Fatalf("expected corner %d axis %d to be %f; got %f", c, axis, corners[c][axis], got)
			}
			if got := out[8*c+4+axis]; got != normals[c][axis] {
				t.Fatalf("expected normal %d axis %d to be %f; got %f", c, axis, normals[c][axis], got)
			}
		}
	}
	if out[24] != 0.25 || out[25] != 0.5 || out[26] != 0.75 {
		t.Fatalf("expected color at [24:27]; got %v", out[24:27])
	}
	for _, pad := range []int{3, 7, 11, 15, 19, 23, 27} {
		if out[pad] != 0 {
			t.Fatalf("expected padding slot %d to be 0; got %f", pad, out[pad])
		}
	}
}

func TestNewTriangleValidation(t *testing.T) {
	n := types.XYZ(0, 0, 1)
	if _, err := NewTriangle([]types.Vec3{{}, {}}, []types.Vec3{n, n}, types.Vec3{}); err == nil {
		t.Fatal("expected an error for 2 corners")
	}
	if _, err := NewTriangle([]types.Vec3{{}, {}, {}}, []types.Vec3{n}, types.Vec3{}); err == nil {
		t.Fatal("expected an error for mismatched normal count")
	}
	if _, err := NewSphere(types.Vec3{}, 0, types.Vec3{}); err == nil {
		t.Fatal("expected an error for a zero radius sphere")
	}
}
