package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/f32"
)

// Mat4 is a 4x4 matrix stored in row-major order; element (row, col) lives
// at index row*4+col. Points are treated as column vectors so the
// translation part of an affine transform occupies indices 3, 7 and 11.
type Mat4 f32.Mat4

// Create an identity matrix.
func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Create a translation matrix.
func Translate4(t Vec3) Mat4 {
	return Mat4{
		1, 0, 0, t[0],
		0, 1, 0, t[1],
		0, 0, 1, t[2],
		0, 0, 0, 1,
	}
}

// Create a scale matrix.
func Scale4(s Vec3) Mat4 {
	return Mat4{
		s[0], 0, 0, 0,
		0, s[1], 0, 0,
		0, 0, s[2], 0,
		0, 0, 0, 1,
	}
}

// Create a rotation matrix from a set of euler angles (in degrees) that
// are applied in X, Y, Z order.
func RotateEuler4(degrees Vec3) Mat4 {
	const toRad = math32.Pi / 180.0
	q := mgl32.AnglesToQuat(degrees[0]*toRad, degrees[1]*toRad, degrees[2]*toRad, mgl32.XYZ)
	return FromMgl(q.Normalize().Mat4())
}

// Create a rigid transformation that rotates by the given euler angles (in
// degrees) and then translates to position.
func Transform4(position, degrees Vec3) Mat4 {
	return Translate4(position).Mul4(RotateEuler4(degrees))
}

// Convert a column-major mathgl matrix.
func FromMgl(m mgl32.Mat4) Mat4 {
	return Mat4(m.Transpose())
}

// Convert to a column-major mathgl matrix.
func (m Mat4) Mgl() mgl32.Mat4 {
	return mgl32.Mat4(m).Transpose()
}

// Multiply with another matrix and return the product m * m2.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[row*4+k] * m2[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// Multiply with a 4 component column vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3]*v[3],
		m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7]*v[3],
		m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11]*v[3],
		m[12]*v[0] + m[13]*v[1] + m[14]*v[2] + m[15]*v[3],
	}
}

// Transform a point (w = 1). The result is not divided by w.
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Transform a direction (w = 0).
func (m Mat4) MulDir(d Vec3) Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// Get the matrix transpose.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[col*4+row] = m[row*4+col]
		}
	}
	return out
}

// Get the translation component.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[3], m[7], m[11]}
}

// Returns true if the matrix is an affine transform whose upper 3x3 block
// is orthonormal, i.e. a rotation followed by a translation.
func (m Mat4) IsRigid() bool {
	if math32.Abs(m[12]) > rigidEpsilon || math32.Abs(m[13]) > rigidEpsilon || math32.Abs(m[14]) > rigidEpsilon || math32.Abs(m[15]-1) > rigidEpsilon {
		return false
	}

	rows := [3]Vec3{
		{m[0], m[1], m[2]},
		{m[4], m[5], m[6]},
		{m[8], m[9], m[10]},
	}
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			exp := float32(0)
			if i == j {
				exp = 1
			}
			if math32.Abs(rows[i].Dot(rows[j])-exp) > rigidEpsilon {
				return false
			}
		}
	}
	return true
}

// Invert a rigid transformation. The rotation block is replaced by its
// transpose and the translation by -R^T * t. The result is only valid if
// IsRigid returns true.
func (m Mat4) RigidInverse() Mat4 {
	out := Mat4{
		m[0], m[4], m[8], 0,
		m[1], m[5], m[9], 0,
		m[2], m[6], m[10], 0,
		0, 0, 0, 1,
	}

	t := m.Translation()
	out[3] = -(m[0]*t[0] + m[4]*t[1] + m[8]*t[2])
	out[7] = -(m[1]*t[0] + m[5]*t[1] + m[9]*t[2])
	out[11] = -(m[2]*t[0] + m[6]*t[1] + m[10]*t[2])
	return out
}

// Calculate the general matrix inverse. Singular matrices yield a zero matrix.
func (m Mat4) Inv() Mat4 {
	return FromMgl(m.Mgl().Inv())
}

const rigidEpsilon float32 = 1e-4

