// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package wmath

import (
	"math"

	"honnef.co/go/curve"
)

// ScaleOffset is the axis-aligned subset of Transform: a per-axis scale
// followed by a translation. Mapping rects through it is exact and cheap,
// which is why coordinate systems that only differ by scroll offsets and
// zoom share it instead of a full matrix.
type ScaleOffset struct {
	Scale  curve.Vec2
	Offset curve.Vec2
}

var IdentityScaleOffset = ScaleOffset{Scale: curve.Vec2{X: 1, Y: 1}}

// ScaleOffsetFromTransform extracts the scale/offset form of t. ok is false
// if t has rotation or shear.
func ScaleOffsetFromTransform(t Transform) (ScaleOffset, bool) {
	if !t.IsAxisAligned() {
		return ScaleOffset{}, false
	}
	return ScaleOffset{
		Scale:  curve.Vec2{X: t.Matrix[0], Y: t.Matrix[3]},
		Offset: curve.Vec2{X: t.Translation[0], Y: t.Translation[1]},
	}, true
}

func (so ScaleOffset) Transform() Transform {
	return Transform{
		Matrix:      [4]float64{so.Scale.X, 0, 0, so.Scale.Y},
		Translation: [2]float64{so.Offset.X, so.Offset.Y},
	}
}

// Accumulate returns the scale/offset that first applies so, then other.
func (so ScaleOffset) Accumulate(other ScaleOffset) ScaleOffset {
	return ScaleOffset{
		Scale: curve.Vec2{
			X: so.Scale.X * other.Scale.X,
			Y: so.Scale.Y * other.Scale.Y,
		},
		Offset: curve.Vec2{
			X: other.Scale.X*so.Offset.X + other.Offset.X,
			Y: other.Scale.Y*so.Offset.Y + other.Offset.Y,
		},
	}
}

func (so ScaleOffset) Invert() (ScaleOffset, bool) {
	if math.Abs(so.Scale.X) < Epsilon || math.Abs(so.Scale.Y) < Epsilon {
		return ScaleOffset{}, false
	}
	return ScaleOffset{
		Scale: curve.Vec2{X: 1 / so.Scale.X, Y: 1 / so.Scale.Y},
		Offset: curve.Vec2{
			X: -so.Offset.X / so.Scale.X,
			Y: -so.Offset.Y / so.Scale.Y,
		},
	}, true
}

func (so ScaleOffset) MapPoint(p curve.Point) curve.Point {
	return curve.Point{
		X: p.X*so.Scale.X + so.Offset.X,
		Y: p.Y*so.Scale.Y + so.Offset.Y,
	}
}

func (so ScaleOffset) MapVector(v curve.Vec2) curve.Vec2 {
	return curve.Vec2{X: v.X * so.Scale.X, Y: v.Y * so.Scale.Y}
}

// MapRect maps r, normalizing the result for negative scales.
func (so ScaleOffset) MapRect(r curve.Rect) curve.Rect {
	x0 := r.X0*so.Scale.X + so.Offset.X
	y0 := r.Y0*so.Scale.Y + so.Offset.Y
	x1 := r.X1*so.Scale.X + so.Offset.X
	y1 := r.Y1*so.Scale.Y + so.Offset.Y
	return curve.Rect{
		X0: min(x0, x1),
		Y0: min(y0, y1),
		X1: max(x0, x1),
		Y1: max(y0, y1),
	}
}

func (so ScaleOffset) UnmapRect(r curve.Rect) (curve.Rect, bool) {
	inv, ok := so.Invert()
	if !ok {
		return curve.Rect{}, false
	}
	return inv.MapRect(r), true
}
