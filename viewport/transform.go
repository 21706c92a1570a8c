package viewport

import (
	"seehuhn.de/go/geom/matrix"
)

// Invert returns the inverse of m. ok is false for singular matrices.
func Invert(m matrix.Matrix) (inv matrix.Matrix, ok bool) {
	if m[0]*m[3]-m[1]*m[2] == 0 {
		return matrix.Matrix{}, false
	}
	return m.Inv(), true
}
