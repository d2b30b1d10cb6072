package types

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approxEqual(a, b Mat4) bool {
	for i := range a {
		if abs(a[i]-b[i]) > 1e-4 {
			return false
		}
	}
	return true
}

func TestMglConversion(t *testing.T) {
	m := FromMgl(mgl32.Translate3D(1, 2, 3))

	expTranslation := Vec3{1, 2, 3}
	if m.Translation() != expTranslation {
		t.Fatalf("expected translation to be %v; got %v", expTranslation, m.Translation())
	}

	if m.Mgl() != mgl32.Translate3D(1, 2, 3) {
		t.Fatalf("expected round trip conversion to yield the original mathgl matrix")
	}
}

func TestMulPoint(t *testing.T) {
	m := Transform4(Vec3{10, 0, 0}, Vec3{0, 0, 90})
	p := m.MulPoint(Vec3{1, 0, 0})

	exp := Vec3{10, 1, 0}
	if p.Sub(exp).Len() > 1e-4 {
		t.Fatalf("expected rotated and translated point to be %v; got %v", exp, p)
	}
}

func TestRigidInverse(t *testing.T) {
	specs := []Mat4{
		Ident4(),
		Translate4(Vec3{-4, 5, 6}),
		Transform4(Vec3{1, 2, 3}, Vec3{30, 45, 60}),
		Transform4(Vec3{-10, 0.5, 7}, Vec3{270, 12, 199}),
	}

	for index, m := range specs {
		if !m.IsRigid() {
			t.Fatalf("[spec %d] expected matrix to be rigid", index)
		}

		inv := m.RigidInverse()
		if !approxEqual(inv.Mul4(m), Ident4()) {
			t.Fatalf("[spec %d] expected inv * m to be the identity; got %v", index, inv.Mul4(m))
		}

		if !approxEqual(inv, m.Inv()) {
			t.Fatalf("[spec %d] expected rigid inverse %v to match general inverse %v", index, inv, m.Inv())
		}
	}
}

func TestNonRigidDetection(t *testing.T) {
	m := Translate4(Vec3{1, 1, 1}).Mul4(Scale4(Vec3{2, 1, 1}))
	if m.IsRigid() {
		t.Fatal("expected scaled matrix not to be rigid")
	}

	if !approxEqual(m.Inv().Mul4(m), Ident4()) {
		t.Fatalf("expected general inverse to invert scaled matrix")
	}
}

func TestRigidDetectionNegativeDeviation(t *testing.T) {
	specs := []struct {
		index int
		value float32
	}{
		{12, -0.5},
		{15, 0.5},
	}
	for specIndex, spec := range specs {
		m := RotateEuler4(Vec3{30, -45, 10})
		m[spec.index] = spec.value
		if m.IsRigid() {
			t.Fatalf("[spec %d] expected matrix with m[%d] = %f not to be rigid", specIndex, spec.index, spec.value)
		}
	}

	// Reflections are orthonormal.
	m := Scale4(Vec3{1, 1, -1})
	if !m.IsRigid() {
		t.Fatal("expected reflection to pass the orthonormality check")
	}
	if m = Scale4(Vec3{1, 1, -1.5}); m.IsRigid() {
		t.Fatal("expected negative non-unit scale not to be rigid")
	}
}
