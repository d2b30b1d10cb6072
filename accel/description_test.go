package accel

import (
	"testing"

	"github.com/achilleasa/rtaccel/bvh"
	"github.com/achilleasa/rtaccel/types"
)

func approxEqual(a, b types.Vec3) bool {
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		if d > 1e-4 || d < -1e-4 {
			return false
		}
	}
	return true
}

func TestBlasDescriptionBounds(t *testing.T) {
	local := bvh.AABB{Min: types.XYZ(-1, -1, -1), Max: types.XYZ(1, 1, 1)}

	specs := []struct {
		model  types.Mat4
		expMin types.Vec3
		expMax types.Vec3
	}{
		{types.Ident4(), types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1)},
		{types.Translate4(types.XYZ(10, 0, -5)), types.XYZ(9, -1, -6), types.XYZ(11, 1, -4)},
		{types.Scale4(types.XYZ(2, 1, 3)), types.XYZ(-2, -1, -3), types.XYZ(2, 1, 3)},
		// A 45 degree rotation around Z grows the XY extents by sqrt(2)
		{types.RotateEuler4(types.XYZ(0, 0, 45)), types.XYZ(-1.41421, -1.41421, -1), types.XYZ(1.41421, 1.41421, 1)},
	}

	for specIndex, spec := range specs {
		desc := NewBlasDescription(local, spec.model, 7)
		bbox := desc.BBox()
		if !approxEqual(bbox.Min, spec.expMin) || !approxEqual(bbox.Max, spec.expMax) {
			t.Fatalf("[spec %d] expected bbox to be [%v, %v]; got [%v, %v]", specIndex, spec.expMin, spec.expMax, bbox.Min, bbox.Max)
		}
		if !approxEqual(desc.Centroid(), bbox.Center()) {
			t.Fatalf("[spec %d] expected centroid to be %v; got %v", specIndex, bbox.Center(), desc.Centroid())
		}
	}
}

func TestBlasDescriptionInverse(t *testing.T) {
	local := bvh.AABB{Min: types.XYZ(0, 0, 0), Max: types.XYZ(1, 2, 3)}
	models := []types.Mat4{
		types.Transform4(types.XYZ(3, -2, 8), types.XYZ(30, 60, 90)),
		types.Transform4(types.XYZ(0, 5, 0), types.XYZ(0, 0, 0)).Mul4(types.Scale4(types.XYZ(2, 2, 0.5))),
	}

	p := types.XYZ(0.25, 1.5, -2)
	for specIndex, model := range models {
		desc := NewBlasDescription(local, model, 0)
		if got := desc.InverseModel.MulPoint(model.MulPoint(p)); !approxEqual(got, p) {
			t.Fatalf("[spec %d] expected inverse model to map the transformed point back to %v; got %v", specIndex, p, got)
		}
	}
}

func TestBlasDescriptionFlatten(t *testing.T) {
	model := types.Translate4(types.XYZ(1, 2, 3))
	desc := NewBlasDescription(bvh.AABB{Max: types.XYZ(1, 1, 1)}, model, 42)

	out := FlattenDescriptions([]BlasDescription{desc})
	if len(out) != DescriptionStride {
		t.Fatalf("expected %d floats; got %d", DescriptionStride, len(out))
	}

	// Row-major inverse: the negated translation sits in the last column.
	if out[3] != -1 || out[7] != -2 || out[11] != -3 || out[15] != 1 {
		t.Fatalf("expected row-major inverse translation; got %v", out[:16])
	}
	for i := 16; i < 20; i++ {
		if out[i] != 42 {
			t.Fatalf("expected root node index at slot %d; got %f", i, out[i])
		}
	}
}
