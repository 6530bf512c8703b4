package transform

// Quad is a quadrilateral given as four corners, x0, y0 … x3, y3, in
// clockwise order starting from the top left.
type Quad [8]float64

// Rect returns the quad covering a w x h pixel grid.
func Rect(w, h int) Quad {
	x, y := float64(w-1), float64(h-1)
	return Quad{0, 0, x, 0, x, y, 0, y}
}

// Homography is a planar projective transform in homogeneous coordinates.
// A point (x, y) maps to
//
//	((m00 x + m01 y + m02) / d, (m10 x + m11 y + m12) / d), d = m20 x + m21 y + m22
type Homography [3][3]float64

// TransformPoints implements Transform.
func (m Homography) TransformPoints(points []float64) {
	for i := 0; i+1 < len(points); i += 2 {
		x, y := points[i], points[i+1]
		d := m[2][0]*x + m[2][1]*y + m[2][2]
		points[i] = (m[0][0]*x + m[0][1]*y + m[0][2]) / d
		points[i+1] = (m[1][0]*x + m[1][1]*y + m[1][2]) / d
	}
}

// Mul returns the transform that applies n first, then m.
func (m Homography) Mul(n Homography) Homography {
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = m[r][0]*n[0][c] + m[r][1]*n[1][c] + m[r][2]*n[2][c]
		}
	}
	return out
}

// Adjugate returns the transposed cofactor matrix. Projectively it is the
// inverse of m, which is all TransformPoints needs.
func (m Homography) Adjugate() Homography {
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			r1, r2 := (c+1)%3, (c+2)%3
			c1, c2 := (r+1)%3, (r+2)%3
			out[r][c] = m[r1][c1]*m[r2][c2] - m[r1][c2]*m[r2][c1]
		}
	}
	return out
}

// SquareToQuad maps the unit square onto q.
func SquareToQuad(q Quad) Homography {
	x0, y0, x1, y1, x2, y2, x3, y3 := q[0], q[1], q[2], q[3], q[4], q[5], q[6], q[7]
	sx := x0 - x1 + x2 - x3
	sy := y0 - y1 + y2 - y3
	if sx == 0 && sy == 0 {
		// Parallelogram.
		return Homography{
			{x1 - x0, x2 - x1, x0},
			{y1 - y0, y2 - y1, y0},
			{0, 0, 1},
		}
	}
	dx1, dx2 := x1-x2, x3-x2
	dy1, dy2 := y1-y2, y3-y2
	det := dx1*dy2 - dx2*dy1
	g := (sx*dy2 - dx2*sy) / det
	h := (dx1*sy - sx*dy1) / det
	return Homography{
		{x1 - x0 + g*x1, x3 - x0 + h*x3, x0},
		{y1 - y0 + g*y1, y3 - y0 + h*y3, y0},
		{g, h, 1},
	}
}

// QuadToSquare maps q onto the unit square.
func QuadToSquare(q Quad) Homography {
	return SquareToQuad(q).Adjugate()
}

// QuadToQuad maps src onto dst.
func QuadToQuad(src, dst Quad) Homography {
	return SquareToQuad(dst).Mul(QuadToSquare(src))
}

// Keystone returns the transform that maps a width x height image whose top
// edge has been narrowed by skew (a fraction of the width, split evenly
// between both sides) back onto the full rectangle. Used with Remap it
// renders the rectangle as seen from below.
func Keystone(width, height int, skew float64) Homography {
	full := Rect(width, height)
	inset := skew * full[2] / 2
	narrowed := full
	narrowed[0] += inset
	narrowed[2] -= inset
	return QuadToQuad(narrowed, full)
}
