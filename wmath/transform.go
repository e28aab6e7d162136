// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package wmath

import (
	"math"

	"honnef.co/go/curve"
)

// Transform is a 2D affine transform in column-major [a b c d] order plus a
// translation, matching the layout we upload to the GPU.
type Transform struct {
	Matrix      [4]float64
	Translation [2]float64
}

var Identity = Transform{
	Matrix: [4]float64{1, 0, 0, 1},
}

func TransformFromAffine(transform curve.Affine) Transform {
	c := transform.Coefficients()
	return Transform{
		Matrix:      [4]float64{c[0], c[1], c[2], c[3]},
		Translation: [2]float64{c[4], c[5]},
	}
}

func TranslationTransform(v curve.Vec2) Transform {
	return Transform{
		Matrix:      [4]float64{1, 0, 0, 1},
		Translation: [2]float64{v.X, v.Y},
	}
}

func ScaleTransform(sx, sy float64) Transform {
	return Transform{Matrix: [4]float64{sx, 0, 0, sy}}
}

func (t Transform) Mul(other Transform) Transform {
	return Transform{
		Matrix: [4]float64{
			t.Matrix[0]*other.Matrix[0] + t.Matrix[2]*other.Matrix[1],
			t.Matrix[1]*other.Matrix[0] + t.Matrix[3]*other.Matrix[1],
			t.Matrix[0]*other.Matrix[2] + t.Matrix[2]*other.Matrix[3],
			t.Matrix[1]*other.Matrix[2] + t.Matrix[3]*other.Matrix[3],
		},
		Translation: [2]float64{
			t.Matrix[0]*other.Translation[0] +
				t.Matrix[2]*other.Translation[1] +
				t.Translation[0],
			t.Matrix[1]*other.Translation[0] +
				t.Matrix[3]*other.Translation[1] +
				t.Translation[1],
		},
	}
}

func (t Transform) Determinant() float64 {
	return t.Matrix[0]*t.Matrix[3] - t.Matrix[1]*t.Matrix[2]
}

// Invert returns the inverse transform. ok is false if t is singular, in
// which case callers must treat mapped geometry as not visible.
func (t Transform) Invert() (Transform, bool) {
	det := t.Determinant()
	if math.Abs(det) < Epsilon {
		return Transform{}, false
	}
	inv := 1 / det
	m := [4]float64{
		t.Matrix[3] * inv,
		-t.Matrix[1] * inv,
		-t.Matrix[2] * inv,
		t.Matrix[0] * inv,
	}
	return Transform{
		Matrix: m,
		Translation: [2]float64{
			-(m[0]*t.Translation[0] + m[2]*t.Translation[1]),
			-(m[1]*t.Translation[0] + m[3]*t.Translation[1]),
		},
	}, true
}

func (t Transform) Apply(p curve.Point) curve.Point {
	return curve.Point{
		X: t.Matrix[0]*p.X + t.Matrix[2]*p.Y + t.Translation[0],
		Y: t.Matrix[1]*p.X + t.Matrix[3]*p.Y + t.Translation[1],
	}
}

func (t Transform) ApplyVec(v curve.Vec2) curve.Vec2 {
	return curve.Vec2{
		X: t.Matrix[0]*v.X + t.Matrix[2]*v.Y,
		Y: t.Matrix[1]*v.X + t.Matrix[3]*v.Y,
	}
}

// MapRect maps the four corners of r and returns their bounding box.
func (t Transform) MapRect(r curve.Rect) curve.Rect {
	p0 := t.Apply(curve.Point{X: r.X0, Y: r.Y0})
	p1 := t.Apply(curve.Point{X: r.X1, Y: r.Y0})
	p2 := t.Apply(curve.Point{X: r.X0, Y: r.Y1})
	p3 := t.Apply(curve.Point{X: r.X1, Y: r.Y1})
	return curve.Rect{
		X0: min(min(p0.X, p1.X), min(p2.X, p3.X)),
		Y0: min(min(p0.Y, p1.Y), min(p2.Y, p3.Y)),
		X1: max(max(p0.X, p1.X), max(p2.X, p3.X)),
		Y1: max(max(p0.Y, p1.Y), max(p2.Y, p3.Y)),
	}
}

// InverseMapRect maps r through the inverse of t. ok is false for singular
// transforms.
func (t Transform) InverseMapRect(r curve.Rect) (curve.Rect, bool) {
	inv, ok := t.Invert()
	if !ok {
		return curve.Rect{}, false
	}
	return inv.MapRect(r), true
}

// IsAxisAligned reports whether t maps axis-aligned rects to axis-aligned
// rects, i.e. has no rotation or shear.
func (t Transform) IsAxisAligned() bool {
	return math.Abs(t.Matrix[1]) < Epsilon && math.Abs(t.Matrix[2]) < Epsilon
}

// ScaleFactors returns the length of the transformed unit vectors. Used for
// choosing raster scales for cached tasks.
func (t Transform) ScaleFactors() (sx, sy float64) {
	sx = math.Hypot(t.Matrix[0], t.Matrix[1])
	sy = math.Hypot(t.Matrix[2], t.Matrix[3])
	return sx, sy
}

// VisibleFace describes which face of a plane a transform presents.
type VisibleFace int

const (
	FaceFront VisibleFace = iota
	FaceBack
)

// Face reports FaceBack for transforms that mirror the plane (negative
// determinant), which backface-invisible clusters are culled against.
func (t Transform) Face() VisibleFace {
	if t.Determinant() < 0 {
		return FaceBack
	}
	return FaceFront
}
