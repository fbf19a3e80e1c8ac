// Package geom provides the 3D transform type used throughout the scene
// front end.
//
// A Transform carries both a 4x4 matrix and its inverse so that inverting
// is free and composing stays cheap. Transforms are plain values: they are
// comparable with ==, which the transform cache relies on for structural
// equality, and Hash provides the matching content hash.
package geom

import (
	"hash/fnv"
	"math"

	"golang.org/x/image/math/f64"
)

// Transform is an invertible affine (or projective) transformation of 3D
// points and vectors. The zero value is not valid; use Identity or one of
// the constructors.
type Transform struct {
	m    f64.Mat4
	mInv f64.Mat4
}

// Identity returns the identity transformation.
func Identity() Transform {
	return Transform{m: identityMat4, mInv: identityMat4}
}

// FromMatrix builds a transform from a row-major 4x4 matrix, computing its
// inverse. ok is false if the matrix is singular; the transform is still
// returned, with a NaN-filled inverse.
func FromMatrix(m f64.Mat4) (t Transform, ok bool) {
	inv, ok := invertMat4(m)
	return Transform{m: m, mInv: inv}, ok
}

// Translate returns a translation by delta.
func Translate(delta Vector3) Transform {
	return Transform{
		m: f64.Mat4{
			1, 0, 0, delta.X,
			0, 1, 0, delta.Y,
			0, 0, 1, delta.Z,
			0, 0, 0, 1,
		},
		mInv: f64.Mat4{
			1, 0, 0, -delta.X,
			0, 1, 0, -delta.Y,
			0, 0, 1, -delta.Z,
			0, 0, 0, 1,
		},
	}
}

// Scale returns a nonuniform scale about the origin.
func Scale(x, y, z float64) Transform {
	return Transform{
		m: f64.Mat4{
			x, 0, 0, 0,
			0, y, 0, 0,
			0, 0, z, 0,
			0, 0, 0, 1,
		},
		mInv: f64.Mat4{
			1 / x, 0, 0, 0,
			0, 1 / y, 0, 0,
			0, 0, 1 / z, 0,
			0, 0, 0, 1,
		},
	}
}

// Rotate returns a rotation of angle degrees about the given axis.
func Rotate(angleDeg float64, axis Vector3) Transform {
	a := axis.Normalize()
	sin, cos := math.Sincos(angleDeg * math.Pi / 180)

	var m f64.Mat4
	m[4*0+0] = a.X*a.X + (1-a.X*a.X)*cos
	m[4*0+1] = a.X*a.Y*(1-cos) - a.Z*sin
	m[4*0+2] = a.X*a.Z*(1-cos) + a.Y*sin

	m[4*1+0] = a.X*a.Y*(1-cos) + a.Z*sin
	m[4*1+1] = a.Y*a.Y + (1-a.Y*a.Y)*cos
	m[4*1+2] = a.Y*a.Z*(1-cos) - a.X*sin

	m[4*2+0] = a.X*a.Z*(1-cos) - a.Y*sin
	m[4*2+1] = a.Y*a.Z*(1-cos) + a.X*sin
	m[4*2+2] = a.Z*a.Z + (1-a.Z*a.Z)*cos

	m[4*3+3] = 1

	// A rotation matrix is orthogonal, so the inverse is the transpose.
	return Transform{m: m, mInv: transposeMat4(m)}
}

// LookAt returns the camera-to-world transformation for a camera at eye
// looking toward look with the given up direction.
func LookAt(eye, look Point3, up Vector3) Transform {
	dir := look.Sub(eye).Normalize()
	right := up.Normalize().Cross(dir).Normalize()
	newUp := dir.Cross(right)

	m := f64.Mat4{
		right.X, newUp.X, dir.X, eye.X,
		right.Y, newUp.Y, dir.Y, eye.Y,
		right.Z, newUp.Z, dir.Z, eye.Z,
		0, 0, 0, 1,
	}
	inv, _ := invertMat4(m)
	return Transform{m: m, mInv: inv}
}

// Mul returns the composition t * o (apply o first, then t).
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		m:    mulMat4(t.m, o.m),
		mInv: mulMat4(o.mInv, t.mInv),
	}
}

// Inverse returns the inverse transformation. This is free: the matrices
// are swapped, not recomputed.
func (t Transform) Inverse() Transform {
	return Transform{m: t.mInv, mInv: t.m}
}

// Transpose returns the transform with both matrices transposed.
func (t Transform) Transpose() Transform {
	return Transform{m: transposeMat4(t.m), mInv: transposeMat4(t.mInv)}
}

// IsIdentity reports whether t is the identity transformation.
func (t Transform) IsIdentity() bool {
	return t.m == identityMat4
}

// Matrix returns the row-major matrix of t.
func (t Transform) Matrix() f64.Mat4 {
	return t.m
}

// InverseMatrix returns the row-major inverse matrix of t.
func (t Transform) InverseMatrix() f64.Mat4 {
	return t.mInv
}

// ApplyPoint transforms a point, including the homogeneous divide for
// projective transforms.
func (t Transform) ApplyPoint(p Point3) Point3 {
	x := t.m[0]*p.X + t.m[1]*p.Y + t.m[2]*p.Z + t.m[3]
	y := t.m[4]*p.X + t.m[5]*p.Y + t.m[6]*p.Z + t.m[7]
	z := t.m[8]*p.X + t.m[9]*p.Y + t.m[10]*p.Z + t.m[11]
	w := t.m[12]*p.X + t.m[13]*p.Y + t.m[14]*p.Z + t.m[15]
	if w == 1 {
		return Point3{x, y, z}
	}
	return Point3{x / w, y / w, z / w}
}

// ApplyVector transforms a vector (no translation component).
func (t Transform) ApplyVector(v Vector3) Vector3 {
	return Vector3{
		X: t.m[0]*v.X + t.m[1]*v.Y + t.m[2]*v.Z,
		Y: t.m[4]*v.X + t.m[5]*v.Y + t.m[6]*v.Z,
		Z: t.m[8]*v.X + t.m[9]*v.Y + t.m[10]*v.Z,
	}
}

// Hash returns a content hash of the transform's matrix. Transforms that
// compare equal with == hash identically.
func (t Transform) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range t.m {
		bits := math.Float64bits(v)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	}
	return h.Sum64()
}
