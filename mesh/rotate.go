package mesh

import "math"

// Matrix3 is a 3x3 rotation matrix in row-major order.
type Matrix3 [3][3]float64

// Apply returns M * v.
func (m Matrix3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Mul returns m * o.
func (m Matrix3) Mul(o Matrix3) Matrix3 {
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return out
}

// RotationMatrixXYZ builds the combined rotation Rz*Ry*Rx for the given
// angles in degrees, matching the X-then-Y-then-Z application order used
// when leveling scans.
func RotationMatrixXYZ(xDeg, yDeg, zDeg float64) Matrix3 {
	x := xDeg * math.Pi / 180
	y := yDeg * math.Pi / 180
	z := zDeg * math.Pi / 180

	rx := Matrix3{
		{1, 0, 0},
		{0, math.Cos(x), -math.Sin(x)},
		{0, math.Sin(x), math.Cos(x)},
	}
	ry := Matrix3{
		{math.Cos(y), 0, math.Sin(y)},
		{0, 1, 0},
		{-math.Sin(y), 0, math.Cos(y)},
	}
	rz := Matrix3{
		{math.Cos(z), -math.Sin(z), 0},
		{math.Sin(z), math.Cos(z), 0},
		{0, 0, 1},
	}

	return rz.Mul(ry).Mul(rx)
}

// RotateMesh rotates every vertex of the mesh in place by the given angles
// in degrees. Triangles are untouched; topology is rotation-invariant.
func RotateMesh(m *TriangleMesh, xDeg, yDeg, zDeg float64) {
	if xDeg == 0 && yDeg == 0 && zDeg == 0 {
		return
	}
	rot := RotationMatrixXYZ(xDeg, yDeg, zDeg)
	for i := range m.Vertices {
		m.Vertices[i] = rot.Apply(m.Vertices[i])
	}
}
