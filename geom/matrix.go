package geom

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix operations on f64.Mat4 in row-major order: element (r, c) is
// m[4*r+c].

// identityMat4 is the 4x4 identity matrix.
var identityMat4 = f64.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// mulMat4 returns the matrix product a * b.
func mulMat4(a, b f64.Mat4) f64.Mat4 {
	var r f64.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[4*i+j] = a[4*i+0]*b[4*0+j] +
				a[4*i+1]*b[4*1+j] +
				a[4*i+2]*b[4*2+j] +
				a[4*i+3]*b[4*3+j]
		}
	}
	return r
}

// transposeMat4 returns the transpose of m.
func transposeMat4(m f64.Mat4) f64.Mat4 {
	var r f64.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[4*i+j] = m[4*j+i]
		}
	}
	return r
}

// invertMat4 returns the inverse of m using Gauss-Jordan elimination with
// partial pivoting. ok is false if m is singular; the returned matrix is
// then filled with NaNs so that downstream use is conspicuous rather than
// silently wrong.
func invertMat4(m f64.Mat4) (inv f64.Mat4, ok bool) {
	// Augment m with the identity and reduce in place.
	var a [4][8]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a[i][j] = m[4*i+j]
		}
		a[i][4+i] = 1
	}

	for col := 0; col < 4; col++ {
		// Pivot on the largest remaining entry in this column.
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if a[pivot][col] == 0 {
			nan := math.NaN()
			for i := range inv {
				inv[i] = nan
			}
			return inv, false
		}
		a[col], a[pivot] = a[pivot], a[col]

		d := 1 / a[col][col]
		for j := 0; j < 8; j++ {
			a[col][j] *= d
		}
		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			f := a[row][col]
			if f == 0 {
				continue
			}
			for j := 0; j < 8; j++ {
				a[row][j] -= f * a[col][j]
			}
		}
	}

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			inv[4*i+j] = a[i][4+j]
		}
	}
	return inv, true
}
